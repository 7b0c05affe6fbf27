package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/Strob0t/CogniChat/internal/adapter/postgres"
	"github.com/Strob0t/CogniChat/internal/config"
)

// runMigrate dispatches migrate subcommands (up, down, version).
func runMigrate(cfg *config.Config, args []string) error {
	if cfg.Store.Backend != "postgres" {
		return errors.New("migrate: store.backend is not postgres")
	}
	if len(args) == 0 {
		return errors.New("usage: cognichat migrate up|down [--steps N]|version")
	}
	ctx := context.Background()

	switch args[0] {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
		fmt.Println("migrations applied")
	case "down":
		fs := flag.NewFlagSet("migrate down", flag.ContinueOnError)
		steps := fs.Int("steps", 1, "number of migrations to roll back")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *steps < 1 {
			return errors.New("--steps must be >= 1")
		}
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
			return err
		}
		fmt.Printf("rolled back %d migration(s)\n", *steps)
	case "version":
		v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		fmt.Printf("schema version %d\n", v)
	default:
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}
	return nil
}
