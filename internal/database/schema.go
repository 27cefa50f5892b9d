package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"spaapi/internal/config"
	"spaapi/internal/observability"

	"gorm.io/gorm"
)

// Values for DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan is what ApplySchema will do for a given configuration.
type schemaPlan struct {
	Mode    string
	SQL     bool
	Auto    bool
	OptedIn bool // auto mode running where it would normally be refused
}

// planSchema resolves DB_SCHEMA_MODE against the environment. SQL migrations
// are the source of truth; AutoMigrate is a development convenience and is
// refused in production-like environments unless explicitly allowed.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	prodLike := config.IsProdLike(cfg.Env)
	plan := schemaPlan{Mode: mode}

	switch mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL = true
		plan.Auto = !prodLike
	case SchemaModeAuto:
		if prodLike {
			if !cfg.DBAutoMigrateAllowDestructive {
				return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
			}
			plan.OptedIn = true
		}
		plan.Auto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

// ApplySchema brings the database schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.Auto {
		return nil
	}

	if plan.OptedIn {
		observability.Logger.WarnContext(ctx, "AutoMigrate enabled in a production-like environment", slog.String("env", cfg.Env))
	}
	targets, err := autoMigrateModels(ctx, db)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if len(targets) == 0 {
		observability.Logger.InfoContext(ctx, "AutoMigrate skipped: all models are owned by SQL migrations", slog.String("mode", plan.Mode))
		return nil
	}
	observability.Logger.InfoContext(ctx, "Running GORM AutoMigrate",
		slog.String("mode", plan.Mode), slog.String("env", cfg.Env), slog.Int("models", len(targets)))
	if err := db.WithContext(ctx).AutoMigrate(targets...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// SchemaStatus describes what ApplySchema would do and which migrations are pending.
type SchemaStatus struct {
	Mode               string
	Environment        string
	Dialect            string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// GetSchemaStatus reports the plan and, when SQL migrations are in play,
// the applied and pending versions.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		Dialect:            db.Dialector.Name(),
		WillRunSQL:         plan.SQL,
		WillRunAutoMigrate: plan.Auto,
	}
	if !plan.SQL {
		return status, nil
	}

	if status.AppliedVersions, err = AppliedVersions(ctx, db); err != nil {
		return nil, err
	}
	status.PendingMigrations = pendingMigrations(GetMigrations(status.Dialect), status.AppliedVersions)
	return status, nil
}
