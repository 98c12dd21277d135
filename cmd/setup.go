package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/trendrank/internal/formatter"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/desertthunder/trendrank/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Init writes the template config if none exists and creates the database schema.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePlain("✓ Config written to %s\n", configPath)
	} else {
		r.logger.Info("config file exists, leaving it untouched", "path", configPath)
	}

	r.logger.Info("initializing database", "driver", r.config.Database.Driver, "path", r.config.Database.Path)
	if _, err := r.Store(); err != nil {
		return err
	}

	r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'trendrank roster import --file roster.toml'\n")
	r.writePlain("3. Schedule 'trendrank snapshot' and 'trendrank daily' once a day\n")
	return nil
}

// Migrate applies pending migrations, or rolls back the latest one with --down.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	if !cmd.Bool("down") {
		return r.writePlain("✓ Migrations applied\n")
	}

	if err := shared.RollbackMigration(store.DB); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return r.writePlain("✓ Rolled back the latest migration\n")
}

// RosterImport registers the artists listed in a roster file.
func (r *Runner) RosterImport(ctx context.Context, cmd *cli.Command) error {
	identities, err := tasks.LoadRoster(cmd.String("file"))
	if err != nil {
		return err
	}

	store, err := r.Store()
	if err != nil {
		return err
	}

	n, err := store.Identities.Upsert(ctx, identities)
	if err != nil {
		return err
	}
	r.recorder.RowsUpserted("artist_groups", n)

	r.logger.Info("Roster imported", "file", cmd.String("file"), "artists", n)
	return r.writePlain("✓ Registered %d artists\n", n)
}

// RosterList prints the registered identities.
func (r *Runner) RosterList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.Store()
	if err != nil {
		return err
	}

	identities, err := store.Identities.List(ctx)
	if err != nil {
		return err
	}
	return r.render(cmd, formatter.Roster(identities))
}
