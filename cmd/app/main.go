// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"codeberg.org/mathrix/autonomouslab/internal/database"
	"codeberg.org/mathrix/autonomouslab/internal/server"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A missing .env file is fine; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	cmd := &cli.Command{
		Name:    "autonomouslab",
		Usage:   "Serve the AutonomousLab ebook site",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server",
				Action: server.Run,
			},
			{
				Name:      "reconcile",
				Usage:     "Verify a payment with the provider and grant access",
				ArgsUsage: "<email>",
				Action:    server.Reconcile,
			},
			{
				Name:      "grant",
				Usage:     "Grant access without a payment check",
				ArgsUsage: "<email>",
				Action:    server.Grant,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke access",
				ArgsUsage: "<email>",
				Action:    server.Revoke,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply pending migrations", Action: migrateUp},
					{Name: "down", Usage: "Roll back the last migration", Action: migrateDown},
					{Name: "status", Usage: "Print the schema version", Action: migrateStatus},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateUp(_ context.Context, cmd *cli.Command) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return database.RunMigrations(db.DB)
}

func migrateDown(_ context.Context, cmd *cli.Command) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return database.MigrateDown(db.DB)
}

func migrateStatus(_ context.Context, cmd *cli.Command) error {
	db, err := database.Connect(cmd.String("database-dsn"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	version, err := database.MigrationVersion(db.DB)
	if err != nil {
		return err
	}
	fmt.Printf("schema version: %d\n", version)
	return nil
}
