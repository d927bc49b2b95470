package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/identity"
)

func newIssueTokenCommand() *Command {
	cmd := &Command{
		Name:        "issue-token",
		Description: "Issue a personal access token for an existing user",
		Flags:       flag.NewFlagSet("issue-token", flag.ExitOnError),
		Run:         runIssueToken,
	}

	cmd.Flags.String("user", "", "Username or email")
	cmd.Flags.String("description", "", "Token description")

	return cmd
}

func runIssueToken(args []string) error {
	cmd := newIssueTokenCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	identifier := cmd.Flags.Lookup("user").Value.String()
	description := cmd.Flags.Lookup("description").Value.String()
	if identifier == "" {
		return fmt.Errorf("--user is required")
	}

	cat, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	u, err := cat.GetUserByUsernameOrEmail(ctx, identifier)
	if err != nil {
		return fmt.Errorf("looking up user %q: %w", identifier, err)
	}

	scopes := []catalog.Scope{catalog.ScopeReadRepository, catalog.ScopeWriteRepository}
	issuer := identity.NewTokenIssuer(cat)
	plaintext, token, err := issuer.Issue(ctx, u.ID, description, scopes, nil, nil)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}

	log.WithFields(logrus.Fields{"token_id": token.ID, "user": u.Username}).Info("token issued")
	fmt.Printf("%s\n", plaintext)
	return nil
}
