package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes config.toml (or the --config path) from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)

	r.writePlain("✓ Wrote %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Create an OAuth client (Desktop or Web) in the Google Cloud console with the YouTube Data API enabled\n")
	r.writePlain("2. Set credentials.youtube.client_secrets_path, or client_id and client_secret, in %s\n", r.configPath)
	r.writePlain("3. Run 'ytcat setup database' and then 'ytcat auth login'\n")
	return nil
}

func (r *Runner) openDatabase() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	r.db = db
	return db, nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, applied, err := shared.MigrationVersion(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (version %d, %d migrations applied)\n", r.config.Database.Path, version, applied)
}

// RollbackDatabase undoes the most recent migration.
func (r *Runner) RollbackDatabase(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	version, _, err := shared.MigrationVersion(db)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Rolled back to version %d\n", version)
}
