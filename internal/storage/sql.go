package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one persisted document row.
type Entry struct {
	ProfileID string    `gorm:"column:profile_id;primaryKey;size:190;not null"`
	Key       string    `gorm:"column:entry_key;primaryKey;size:190;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "storage_entries"
}

// SQLStoreConfig describes the dependencies of a SQLStore.
type SQLStoreConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// SQLStore persists documents in the storage_entries table.
type SQLStore struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewSQLStore constructs a SQLStore. The schema is expected to be migrated by the caller.
func NewSQLStore(cfg SQLStoreConfig) (*SQLStore, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("storage: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SQLStore{
		db:     cfg.Database,
		clock:  clock,
		logger: loggerOrDefault(cfg.Logger),
	}, nil
}

func (s *SQLStore) Read(ctx context.Context, profileID, key string) ([]byte, bool) {
	if err := validateAddress(profileID, key); err != nil {
		logFailure(s.logger, "read", profileID, key, err)
		return nil, false
	}
	var entry Entry
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND entry_key = ?", profileID, key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	if err != nil {
		logFailure(s.logger, "read", profileID, key, err)
		return nil, false
	}
	value := []byte(entry.Value)
	if !json.Valid(value) {
		logFailure(s.logger, "read", profileID, key, errInvalidDocument)
		return nil, false
	}
	return value, true
}

func (s *SQLStore) Write(ctx context.Context, profileID, key string, value []byte) {
	if err := validateAddress(profileID, key); err != nil {
		logFailure(s.logger, "write", profileID, key, err)
		return
	}
	entry := Entry{
		ProfileID: profileID,
		Key:       key,
		Value:     string(value),
		UpdatedAt: s.clock().UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile_id"}, {Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		logFailure(s.logger, "write", profileID, key, err)
	}
}

func (s *SQLStore) Remove(ctx context.Context, profileID, key string) {
	if err := validateAddress(profileID, key); err != nil {
		logFailure(s.logger, "remove", profileID, key, err)
		return
	}
	err := s.db.WithContext(ctx).
		Where("profile_id = ? AND entry_key = ?", profileID, key).
		Delete(&Entry{}).Error
	if err != nil {
		logFailure(s.logger, "remove", profileID, key, err)
	}
}
