package library

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// State tracks the lifecycle of a Facade.
type State int32

const (
	// StateUninitialized is a facade that has not read its library yet.
	StateUninitialized State = iota
	// StateLoading is held while the first read is in progress.
	StateLoading
	// StateReady means the in-memory library is available. It is never left.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Listener receives the library after every mutation.
type Listener func(UserLibrary)

// Facade owns the in-memory working copy of one profile's library.
// Mutations update memory first, persist the full snapshot, then notify listeners
// before returning. A failed write never rolls the memory copy back.
type Facade struct {
	profileID string
	repo      *Repository
	logger    *zap.Logger

	state atomic.Int32

	mu      sync.Mutex
	current UserLibrary

	listenersMu sync.RWMutex
	listeners   map[int64]Listener
	nextID      int64
}

// NewFacade constructs an uninitialized Facade for profileID.
func NewFacade(profileID string, repo *Repository, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{
		profileID: profileID,
		repo:      repo,
		logger:    logger,
		listeners: make(map[int64]Listener),
	}
}

// ProfileID returns the owning profile.
func (f *Facade) ProfileID() string {
	return f.profileID
}

// State reports the lifecycle state.
func (f *Facade) State() State {
	return State(f.state.Load())
}

// Init loads the library on first use. Later calls return the in-memory copy.
func (f *Facade) Init(ctx context.Context) UserLibrary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensureLoadedLocked(ctx)
	return f.current.Clone()
}

// Current returns the in-memory library, or false before Init.
func (f *Facade) Current() (UserLibrary, bool) {
	if f.State() != StateReady {
		return UserLibrary{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Clone(), true
}

// ToggleFavorite flips key in the favorites.
func (f *Facade) ToggleFavorite(ctx context.Context, key MovieKey) UserLibrary {
	updated, _ := f.mutate(ctx, "toggle_favorite", func(lib UserLibrary) (UserLibrary, error) {
		return ToggleFavorite(lib, key), nil
	})
	return updated
}

// ToggleWatchlist flips key in the watchlist.
func (f *Facade) ToggleWatchlist(ctx context.Context, key MovieKey) UserLibrary {
	updated, _ := f.mutate(ctx, "toggle_watchlist", func(lib UserLibrary) (UserLibrary, error) {
		return ToggleWatchlist(lib, key), nil
	})
	return updated
}

// Rate stores a rating. Invalid ratings return ErrInvalidRating and leave the library untouched.
func (f *Facade) Rate(ctx context.Context, key MovieKey, value int) (UserLibrary, error) {
	return f.mutate(ctx, "rate", func(lib UserLibrary) (UserLibrary, error) {
		return SetRating(lib, key, value)
	})
}

// UpdatePreferences merges patch into the preferences.
func (f *Facade) UpdatePreferences(ctx context.Context, patch PreferencesPatch) (UserLibrary, error) {
	return f.mutate(ctx, "update_preferences", func(lib UserLibrary) (UserLibrary, error) {
		prefs, err := ApplyPreferences(lib.Preferences, patch)
		if err != nil {
			return lib, err
		}
		updated := lib.Clone()
		updated.Preferences = prefs
		return updated, nil
	})
}

// Replace swaps the whole library, as an import does.
func (f *Facade) Replace(ctx context.Context, lib UserLibrary) UserLibrary {
	replacement := normalize(lib).Clone()
	updated, _ := f.mutate(ctx, "replace", func(UserLibrary) (UserLibrary, error) {
		return replacement, nil
	})
	return updated
}

// Reset restores defaults. The facade stays ready.
func (f *Facade) Reset(ctx context.Context) UserLibrary {
	updated, _ := f.mutate(ctx, "reset", func(UserLibrary) (UserLibrary, error) {
		return Defaults(), nil
	})
	return updated
}

// Subscribe registers fn for mutation notifications and returns its cancel function.
func (f *Facade) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	f.listenersMu.Lock()
	f.nextID++
	id := f.nextID
	f.listeners[id] = fn
	f.listenersMu.Unlock()
	return func() {
		f.listenersMu.Lock()
		delete(f.listeners, id)
		f.listenersMu.Unlock()
	}
}

func (f *Facade) mutate(ctx context.Context, operation string, apply func(UserLibrary) (UserLibrary, error)) (UserLibrary, error) {
	f.mu.Lock()
	f.ensureLoadedLocked(ctx)
	updated, err := apply(f.current.Clone())
	if err != nil {
		snapshot := f.current.Clone()
		f.mu.Unlock()
		return snapshot, err
	}
	f.current = updated
	f.repo.Save(ctx, f.profileID, updated)
	snapshot := updated.Clone()
	f.notifyLocked(snapshot)
	f.mu.Unlock()

	f.logger.Debug("library mutated",
		zap.String("operation", operation),
		zap.String("profile_id", f.profileID))
	return snapshot, nil
}

func (f *Facade) ensureLoadedLocked(ctx context.Context) {
	if f.State() == StateReady {
		return
	}
	f.state.Store(int32(StateLoading))
	f.current = f.repo.Load(ctx, f.profileID)
	f.state.Store(int32(StateReady))
}

// notifyLocked runs while f.mu is held so listeners observe mutations in order.
// Listeners must not call back into the facade.
func (f *Facade) notifyLocked(lib UserLibrary) {
	f.listenersMu.RLock()
	listeners := make([]Listener, 0, len(f.listeners))
	for _, listener := range f.listeners {
		listeners = append(listeners, listener)
	}
	f.listenersMu.RUnlock()
	for _, listener := range listeners {
		listener(lib.Clone())
	}
}
