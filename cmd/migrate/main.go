// Command migrate runs schema operations for the configured database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"spaapi/internal/config"
	"spaapi/internal/database"
	"spaapi/internal/observability"
)

func main() {
	if err := run(); err != nil {
		observability.Logger.Error("Migration command failed", "error", err)
		os.Exit(1)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := observability.WithRunID(context.Background(), observability.NewRunID())
	log := observability.Logger

	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.InfoContext(ctx, "SQL migrations applied", "dialect", db.Dialector.Name())
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.InfoContext(ctx, "Automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.InfoContext(ctx, "Schema status",
			"mode", status.Mode,
			"env", status.Environment,
			"dialect", status.Dialect,
			"run_sql", status.WillRunSQL,
			"run_auto", status.WillRunAutoMigrate,
			"applied", len(status.AppliedVersions),
			"pending", len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			log.InfoContext(ctx, "Pending migration", "migration", m.String())
		}
	case "down":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: go run ./cmd/migrate down <version>")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.InfoContext(ctx, "Rolled back migration", "version", version)
	default:
		return usage()
	}

	return nil
}
