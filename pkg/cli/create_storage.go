package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nitro-repo/nitro-repo/pkg/catalog"
	"github.com/nitro-repo/nitro-repo/pkg/storage"
)

func newCreateStorageCommand() *Command {
	cmd := &Command{
		Name:        "create-storage",
		Description: "Register a storage backend",
		Flags:       flag.NewFlagSet("create-storage", flag.ExitOnError),
		Run:         runCreateStorage,
	}

	cmd.Flags.String("name", "", "Storage name")
	cmd.Flags.String("kind", "local", "Storage kind: local | s3")
	cmd.Flags.String("local-path", "./data/storage", "Local backend root path (kind=local)")
	cmd.Flags.String("s3-bucket", "", "S3 bucket name (kind=s3)")
	cmd.Flags.String("s3-region", string(storage.RegionUSEast1), "S3 region (kind=s3)")

	return cmd
}

func runCreateStorage(args []string) error {
	cmd := newCreateStorageCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	name := cmd.Flags.Lookup("name").Value.String()
	kind := storage.Kind(cmd.Flags.Lookup("kind").Value.String())
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	cfg := storage.Config{Kind: kind}
	switch kind {
	case storage.KindLocal:
		cfg.Local = storage.LocalConfig{Path: cmd.Flags.Lookup("local-path").Value.String()}
	case storage.KindS3:
		cfg.S3 = storage.S3Config{
			BucketName: cmd.Flags.Lookup("s3-bucket").Value.String(),
			Region:     storage.Region(cmd.Flags.Lookup("s3-region").Value.String()),
		}
	default:
		return fmt.Errorf("unknown storage kind %q", kind)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding storage config: %w", err)
	}

	cat, db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	s := &catalog.Storage{Name: name, Kind: string(kind), Config: raw, Active: true}
	if err := cat.CreateStorage(context.Background(), s); err != nil {
		return fmt.Errorf("creating storage: %w", err)
	}

	log.WithFields(logrus.Fields{"storage_id": s.ID, "name": s.Name}).Info("storage created")
	return nil
}
