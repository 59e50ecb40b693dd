// Package main is the entry point for the Luminos community schema migration tool.
// This tool manages the SQLite and PostgreSQL record store schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/app"
	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/repository"
	"github.com/luminosmc/luminos-community/internal/store"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Luminos Community Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up", "status":
		if err := run(command, os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := fs.String("config", os.Getenv("LUMINOS_CONFIG"), "path to the configuration file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := app.NewLogger(cfg.Logging).Level(zerolog.WarnLevel)

	switch cfg.Store.Driver {
	case config.DriverSQLite, config.DriverPostgres:
	default:
		fmt.Printf("Store driver %q has no schema, nothing to do\n", cfg.Store.Driver)
		return nil
	}

	ctx := context.Background()
	s, err := repository.NewFactory(cfg.Store, logger).Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	m, ok := s.(store.Migrator)
	if !ok {
		return fmt.Errorf("store driver %q does not support migrations", cfg.Store.Driver)
	}

	before, err := m.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if command == "status" {
		fmt.Printf("Driver: %s\n", cfg.Store.Driver)
		fmt.Printf("Schema version: %d\n", before)
		return nil
	}

	if err := m.Migrate(ctx); err != nil {
		return err
	}
	after, err := m.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if after == before {
		fmt.Printf("Schema is up to date (version %d)\n", after)
		return nil
	}
	fmt.Printf("Migrated schema from version %d to %d\n", before, after)
	return nil
}

func printUsage() {
	fmt.Println(`Luminos Community Migration Tool

Usage:
  luminos-migrate <command> [--config path]

Commands:
  up          Run all pending migrations
  status      Show current schema version
  version     Print version information
  help        Show this help message

Environment Variables:
  LUMINOS_CONFIG            Default configuration file path
  LUMINOS_STORE_DRIVER      sqlite or postgres
  LUMINOS_STORE_SQLITE_PATH SQLite database file`)
}
