package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
)

func newCreateRepositoryCommand() *Command {
	cmd := &Command{
		Name:        "create-repository",
		Description: "Register a repository under an existing storage",
		Flags:       flag.NewFlagSet("create-repository", flag.ExitOnError),
		Run:         runCreateRepository,
	}

	cmd.Flags.String("storage", "", "Storage name")
	cmd.Flags.String("name", "", "Repository name")
	cmd.Flags.String("type", "", "Repository type: maven | npm")
	cmd.Flags.String("sub-type", "hosted", "Repository sub-type: hosted | proxy")
	cmd.Flags.String("visibility", string(catalog.VisibilityPublic), "public | hidden | private")

	return cmd
}

func runCreateRepository(args []string) error {
	cmd := newCreateRepositoryCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	storageName := cmd.Flags.Lookup("storage").Value.String()
	name := cmd.Flags.Lookup("name").Value.String()
	repoType := catalog.RepositoryType(cmd.Flags.Lookup("type").Value.String())
	subType := cmd.Flags.Lookup("sub-type").Value.String()
	visibility := catalog.Visibility(cmd.Flags.Lookup("visibility").Value.String())

	if storageName == "" || name == "" {
		return fmt.Errorf("--storage and --name are required")
	}
	if repoType != catalog.RepositoryTypeMaven && repoType != catalog.RepositoryTypeNpm {
		return fmt.Errorf("--type must be maven or npm")
	}

	cat, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	st, err := cat.GetStorageByName(ctx, storageName)
	if err != nil {
		return fmt.Errorf("looking up storage %q: %w", storageName, err)
	}

	r := &catalog.Repository{
		StorageID:  st.ID,
		Name:       name,
		Type:       repoType,
		SubType:    subType,
		Active:     true,
		Visibility: visibility,
	}
	if err := cat.CreateRepository(ctx, r); err != nil {
		return fmt.Errorf("creating repository: %w", err)
	}

	log.WithFields(logrus.Fields{"repository_id": r.ID, "name": r.Name}).Info("repository created")
	return nil
}
