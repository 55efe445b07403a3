package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationRenameLegacyKeys = "2025-01-15_rename_legacy_storage_keys"

// Keys written by the browser edition of the app, mapped to their current names.
var legacyKeyRenames = map[string]string{
	"gojjo_cinema_user_data": storage.KeyUserData,
	"gojjo_cinema_comments":  storage.KeyComments,
}

// Legacy mock tokens cannot authenticate against signed tokens and are dropped.
const legacyTokenKey = "gojjo_cinema_token"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRenameLegacyKeys, apply: renameLegacyKeys},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// renameLegacyKeys moves legacy entries to their current key. When a profile already has the
// current key, the current entry wins and the legacy row is discarded.
func renameLegacyKeys(tx *gorm.DB) error {
	for legacy, current := range legacyKeyRenames {
		err := tx.Exec(`UPDATE storage_entries SET entry_key = ?
			WHERE entry_key = ? AND NOT EXISTS (
				SELECT 1 FROM storage_entries AS existing
				WHERE existing.profile_id = storage_entries.profile_id AND existing.entry_key = ?
			)`, current, legacy, current).Error
		if err != nil {
			return err
		}
	}
	legacyKeys := []string{legacyTokenKey}
	for legacy := range legacyKeyRenames {
		legacyKeys = append(legacyKeys, legacy)
	}
	return tx.Where("entry_key IN ?", legacyKeys).Delete(&storage.Entry{}).Error
}
