package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
)

func newCreateAdminCommand() *Command {
	cmd := &Command{
		Name:        "create-admin",
		Description: "Create an administrator account",
		Flags:       flag.NewFlagSet("create-admin", flag.ExitOnError),
		Run:         runCreateAdmin,
	}

	cmd.Flags.String("username", "", "Username")
	cmd.Flags.String("email", "", "Email address")
	cmd.Flags.String("password", "", "Password")

	return cmd
}

func runCreateAdmin(args []string) error {
	cmd := newCreateAdminCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	username := cmd.Flags.Lookup("username").Value.String()
	email := cmd.Flags.Lookup("email").Value.String()
	password := cmd.Flags.Lookup("password").Value.String()

	if username == "" || email == "" || len(password) < 8 {
		return fmt.Errorf("--username, --email are required and --password must be at least 8 characters")
	}

	hash, err := identity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	cat, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	u := &catalog.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Permissions: catalog.Permissions{
			Admin:             true,
			UserManager:       true,
			StorageManager:    true,
			RepositoryManager: true,
		},
	}
	if err := cat.CreateUser(context.Background(), u); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("admin user created")
	return nil
}
