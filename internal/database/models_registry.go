package database

import (
	"context"

	"spaapi/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
	}
}

// sqlOwnedTables are created by the embedded SQL migrations of every dialect.
// Once any migration is recorded, AutoMigrate must not touch them: its column
// diff never matches the hand-written DDL, and on SQLite it answers the
// mismatch by rebuilding the table.
var sqlOwnedTables = map[string]bool{
	"users": true,
}

// autoMigrateModels returns the models AutoMigrate may manage on db.
func autoMigrateModels(ctx context.Context, db *gorm.DB) ([]interface{}, error) {
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	all := PersistentModels()
	if len(applied) == 0 {
		return all, nil
	}

	var managed []interface{}
	for _, model := range all {
		if t, ok := model.(schema.Tabler); ok && sqlOwnedTables[t.TableName()] {
			continue
		}
		managed = append(managed, model)
	}
	return managed, nil
}
