package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// BoltStore persists documents in a BoltDB file, one bucket per profile.
type BoltStore struct {
	db     *bolt.DB
	logger *zap.Logger
}

// NewBoltStore opens (or creates) the BoltDB file at path.
func NewBoltStore(path string, logger *zap.Logger) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: bolt path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open bolt db: %w", err)
	}
	return &BoltStore{db: db, logger: loggerOrDefault(logger)}, nil
}

// Close releases the underlying file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Read(_ context.Context, profileID, key string) ([]byte, bool) {
	if err := validateAddress(profileID, key); err != nil {
		logFailure(s.logger, "read", profileID, key, err)
		return nil, false
	}
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(profileID))
		if bucket == nil {
			return nil
		}
		if stored := bucket.Get([]byte(key)); stored != nil {
			value = make([]byte, len(stored))
			copy(value, stored)
		}
		return nil
	})
	if err != nil {
		logFailure(s.logger, "read", profileID, key, err)
		return nil, false
	}
	if value == nil {
		return nil, false
	}
	if !json.Valid(value) {
		logFailure(s.logger, "read", profileID, key, errInvalidDocument)
		return nil, false
	}
	return value, true
}

func (s *BoltStore) Write(_ context.Context, profileID, key string, value []byte) {
	if err := validateAddress(profileID, key); err != nil {
		logFailure(s.logger, "write", profileID, key, err)
		return
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(profileID))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), value)
	})
	if err != nil {
		logFailure(s.logger, "write", profileID, key, err)
	}
}

func (s *BoltStore) Remove(_ context.Context, profileID, key string) {
	if err := validateAddress(profileID, key); err != nil {
		logFailure(s.logger, "remove", profileID, key, err)
		return
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(profileID))
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		logFailure(s.logger, "remove", profileID, key, err)
	}
}
