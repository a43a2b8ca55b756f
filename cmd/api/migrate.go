package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"certdocs/internal/config"
	"certdocs/internal/database"
	"certdocs/internal/database/migration"
	"certdocs/internal/logging"
)

var migrateCommand = &cli.Command{
	Name:   "migrate",
	Usage:  "Create the database schema if it does not exist",
	Action: migrate,
}

func migrate(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cCtx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.Location())

	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return migration.EnsureMigrated(ctx, db, logger.WithField("db_host", cfg.Database.Host))
}
