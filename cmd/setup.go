package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/musicvault/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Wrote %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set spotify.client_id to your app's client id\n")
	r.writePlain("2. Register %s as a redirect URI in the Spotify dashboard\n", shared.DefaultRedirectURI)
	r.writePlain("3. Run 'musicvault auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if err := r.open(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

// folder returns the --folder flag or the configured song folder.
func (r *Runner) folder(cmd *cli.Command) (string, error) {
	folder := cmd.String("folder")
	if folder == "" {
		folder = r.config.Vault.Folder
	}
	if folder == "" {
		return "", fmt.Errorf("%w: no folder given and vault.folder is empty", shared.ErrMissingConfig)
	}
	return folder, nil
}
