package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps documents in process memory. Used for tests and memory-only mode.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Read(_ context.Context, profileID, key string) ([]byte, bool) {
	if validateAddress(profileID, key) != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.entries[profileID][key]
	if !ok || !json.Valid(value) {
		return nil, false
	}
	return append([]byte(nil), value...), true
}

func (s *MemoryStore) Write(_ context.Context, profileID, key string, value []byte) {
	if validateAddress(profileID, key) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	perProfile, ok := s.entries[profileID]
	if !ok {
		perProfile = make(map[string][]byte)
		s.entries[profileID] = perProfile
	}
	perProfile[key] = append([]byte(nil), value...)
}

func (s *MemoryStore) Remove(_ context.Context, profileID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	perProfile := s.entries[profileID]
	if perProfile == nil {
		return
	}
	delete(perProfile, key)
	if len(perProfile) == 0 {
		delete(s.entries, profileID)
	}
}
