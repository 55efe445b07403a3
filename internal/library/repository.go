package library

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
)

// Repository reads and writes the user_data document of a profile.
type Repository struct {
	store storage.Store
}

// NewRepository constructs a Repository over store.
func NewRepository(store storage.Store) (*Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("library: backing store required")
	}
	return &Repository{store: store}, nil
}

// Load returns the persisted library, or defaults for anything absent or malformed.
func (r *Repository) Load(ctx context.Context, profileID string) UserLibrary {
	raw, ok := r.store.Read(ctx, profileID, storage.KeyUserData)
	if !ok {
		return Defaults()
	}
	return Decode(raw)
}

// Save overwrites the persisted library with lib in a single write.
func (r *Repository) Save(ctx context.Context, profileID string, lib UserLibrary) {
	r.store.Write(ctx, profileID, storage.KeyUserData, Encode(lib))
}
