package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"spaapi/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// AppliedMigration is one row of the migration ledger.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the ledger table name.
func (AppliedMigration) TableName() string {
	return "migration_logs"
}

var ledgerDDL = map[string]string{
	"postgres": `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
	"sqlite": `
CREATE TABLE IF NOT EXISTS migration_logs (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
}

// migrationLedger records which SQL migrations ran. Script execution and the
// ledger write share a transaction, so a failed script leaves no row behind.
type migrationLedger struct {
	db *gorm.DB
}

func newMigrationLedger(db *gorm.DB) *migrationLedger {
	return &migrationLedger{db: db}
}

func (l *migrationLedger) ensure(ctx context.Context) error {
	dialect := l.db.Dialector.Name()
	ddl, ok := ledgerDDL[dialect]
	if !ok {
		return fmt.Errorf("no sql migrations for dialect %q", dialect)
	}
	if err := l.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("create migration_logs: %w", err)
	}
	return nil
}

// versions lists applied versions in ascending order. A missing ledger table
// means nothing has been applied yet.
func (l *migrationLedger) versions(ctx context.Context) ([]int, error) {
	if !l.db.Migrator().HasTable(&AppliedMigration{}) {
		return []int{}, nil
	}
	var versions []int
	if err := l.db.WithContext(ctx).Model(&AppliedMigration{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read migration_logs: %w", err)
	}
	return versions, nil
}

func (l *migrationLedger) apply(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("apply migration %s: %w", m.String(), err)
		}
		if err := tx.Create(&AppliedMigration{Version: m.Version, Name: m.Name}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", m.String(), err)
		}
		return nil
	})
}

func (l *migrationLedger) revert(ctx context.Context, m Migration) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("roll back migration %s: %w", m.String(), err)
		}
		if err := tx.Where("version = ?", m.Version).Delete(&AppliedMigration{}).Error; err != nil {
			return fmt.Errorf("unrecord migration %s: %w", m.String(), err)
		}
		return nil
	})
}

// AppliedVersions returns the versions recorded in migration_logs.
func AppliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	return newMigrationLedger(db).versions(ctx)
}

// RunMigrations applies every registered migration for the connection's
// dialect that is not yet in migration_logs. Running it twice is a no-op.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	span, ctx := observability.NewSpan(ctx, "db.migrate", attribute.String("db.system", db.Dialector.Name()))
	defer span.End()

	applied, err := runMigrations(ctx, db)
	if err != nil {
		span.SetError(err)
		return err
	}
	observability.Logger.InfoContext(ctx, "SQL migrations complete",
		slog.String("dialect", db.Dialector.Name()), slog.Int("applied", applied))
	return nil
}

func runMigrations(ctx context.Context, db *gorm.DB) (int, error) {
	ledger := newMigrationLedger(db)
	if err := ledger.ensure(ctx); err != nil {
		return 0, err
	}

	registered := GetMigrations(db.Dialector.Name())
	done, err := ledger.versions(ctx)
	if err != nil {
		return 0, err
	}
	if err := checkKnownVersions(done, registered); err != nil {
		return 0, err
	}

	pending := pendingMigrations(registered, done)
	for _, m := range pending {
		observability.Logger.InfoContext(ctx, "Applying migration", slog.String("migration", m.String()))
		if err := ledger.apply(ctx, m); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

// pendingMigrations keeps registration order.
func pendingMigrations(registered []Migration, applied []int) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}

// checkKnownVersions fails when the database is ahead of this build, which
// usually means an older binary is pointed at a newer schema.
func checkKnownVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range slices.Sorted(slices.Values(applied)) {
		known := slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version })
		if !known {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf("migration_logs has versions unknown to this build: %s", strings.Join(unknown, ", "))
}

// RollbackMigration runs the down script of an applied migration and removes
// its ledger row.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(db.Dialector.Name(), version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	ledger := newMigrationLedger(db)
	applied, err := ledger.versions(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	observability.Logger.InfoContext(ctx, "Rolling back migration", slog.String("migration", m.String()))
	return ledger.revert(ctx, *m)
}
