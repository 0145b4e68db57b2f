package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/gsotw/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "driver", r.config.Database.Driver, "path", r.config.Database.Path)

	db, err := r.database(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	version, err := shared.MigrationVersion(ctx, db, r.config.Database.Driver)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at migration %d\n", version)
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(ctx, db, r.config.Database.Driver); err != nil {
		return err
	}

	version, err := shared.MigrationVersion(ctx, db, r.config.Database.Driver)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Rolled back to migration %d\n", version)
}

// SetupConfig writes the bundled example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set access.passcode and the Spotify client credentials (or GSOTW_PASSCODE, SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'gsotw setup database'\n")
	return nil
}
