package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"spaapi/internal/observability"
)

// Migration is one versioned schema change with its rollback script.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

// Migrations are kept per GORM dialect name ("postgres", "sqlite").
//
//go:embed migrations
var migrationFS embed.FS

var migrations = map[string][]Migration{}

func init() {
	for _, dialect := range []string{"postgres", "sqlite"} {
		if err := RegisterMigrations(migrationFS, dialect); err != nil {
			fmt.Printf("failed to register internal %s migrations: %v\n", dialect, err)
		}
	}
}

// RegisterMigrations loads migrations/<dialect> from fsys into the registry.
func RegisterMigrations(fsys fs.FS, dialect string) error {
	loaded, err := LoadMigrations(fsys, path.Join("migrations", dialect))
	if err != nil {
		return err
	}
	migrations[dialect] = loaded
	return nil
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir, sorted by version.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var loaded []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		parts := strings.SplitN(base, "_", 2)
		if len(parts) != 2 {
			observability.Logger.Warn("Skipping migration with invalid naming", slog.String("file", name))
			continue
		}

		version, err := strconv.Atoi(parts[0])
		if err != nil {
			observability.Logger.Warn("Skipping migration with invalid version", slog.String("file", name))
			continue
		}

		upBytes, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read up migration %s: %w", name, err)
		}

		downName := base + ".down.sql"
		downBytes, err := fs.ReadFile(fsys, path.Join(dir, downName))
		if err != nil {
			return nil, fmt.Errorf("failed to read down migration %s: %w", downName, err)
		}

		loaded = append(loaded, Migration{
			Version:    version,
			Name:       parts[1],
			UpScript:   string(upBytes),
			DownScript: string(downBytes),
		})
	}

	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].Version < loaded[j].Version
	})

	for i := 1; i < len(loaded); i++ {
		if loaded[i].Version == loaded[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %06d in %s", loaded[i].Version, dir)
		}
	}

	return loaded, nil
}

// GetMigrations returns the registered migrations for a dialect.
func GetMigrations(dialect string) []Migration {
	return migrations[dialect]
}

// GetMigrationByVersion returns the migration with the given version, or nil.
func GetMigrationByVersion(dialect string, version int) *Migration {
	for _, m := range migrations[dialect] {
		if m.Version == version {
			return &m
		}
	}
	return nil
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}
