// Package storage provides the per-profile key-value documents backing the user library.
//
// Every implementation is fail-soft: a read that cannot be served reports the
// entry as absent, and writes or removals that cannot be applied are dropped.
// Callers substitute defaults for absent entries.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Document keys persisted for each profile.
const (
	KeyUserData  = "user_data"
	KeyComments  = "comments"
	KeyAuthToken = "auth_token"
)

const maxIdentifierLength = 190

var (
	errMissingProfile   = errors.New("storage: profile id required")
	errMissingKey       = errors.New("storage: entry key required")
	errInvalidDocument  = errors.New("storage: stored value is not valid json")
	errIdentifierLength = errors.New("storage: identifier exceeds storage bounds")
	noOpLogger          = zap.NewNop()
)

// Store reads and writes JSON documents scoped to a profile.
type Store interface {
	Read(ctx context.Context, profileID, key string) ([]byte, bool)
	Write(ctx context.Context, profileID, key string, value []byte)
	Remove(ctx context.Context, profileID, key string)
}

// ReadJSON decodes the stored document into dest. It reports false when the
// entry is absent or does not decode.
func ReadJSON(ctx context.Context, store Store, profileID, key string, dest any) bool {
	raw, ok := store.Read(ctx, profileID, key)
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

// WriteJSON encodes value and stores it. Unencodable values are dropped.
func WriteJSON(ctx context.Context, store Store, profileID, key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	store.Write(ctx, profileID, key, encoded)
}

func validateAddress(profileID, key string) error {
	if strings.TrimSpace(profileID) == "" {
		return errMissingProfile
	}
	if strings.TrimSpace(key) == "" {
		return errMissingKey
	}
	if len(profileID) > maxIdentifierLength || len(key) > maxIdentifierLength {
		return errIdentifierLength
	}
	return nil
}

func loggerOrDefault(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return noOpLogger
	}
	return logger
}

func logFailure(logger *zap.Logger, operation, profileID, key string, err error) {
	logger.Warn("storage operation failed",
		zap.String("operation", operation),
		zap.String("profile_id", profileID),
		zap.String("key", key),
		zap.Error(err))
}
