package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"accounts/config"
	"accounts/internal/errors"
	logs "accounts/internal/infra/log"
	"accounts/internal/infra/persistence/postgres"

	pgLib "github.com/slighter12/go-lib/database/postgres"
)

// Supported subcommands:
// - up:   apply all pending migrations
// - down: roll every migration back

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, direction string) error {
	if direction != postgres.MigrateUp && direction != postgres.MigrateDown {
		return errors.Errorf("unknown subcommand %q", direction)
	}

	cfg, err := config.New()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if cfg.Postgres == nil {
		return errors.New("postgres configuration is missing")
	}

	logger, err := logs.New(logs.Params{Config: cfg})
	if err != nil {
		return errors.Wrap(err, "failed to create logger")
	}

	db, err := pgLib.New(cfg.Postgres)
	if err != nil {
		return errors.Wrap(err, "failed to create PostgreSQL client")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}
	defer sqlDB.Close()

	return postgres.Migrate(ctx, sqlDB, direction, logger)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <up|down>\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Reads config/config.yaml and environment overrides for the postgres connection.")
}
