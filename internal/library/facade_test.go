package library

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
)

// droppingStore accepts writes without keeping them.
type droppingStore struct {
	writes int
}

func (s *droppingStore) Read(context.Context, string, string) ([]byte, bool) { return nil, false }
func (s *droppingStore) Write(context.Context, string, string, []byte)       { s.writes++ }
func (s *droppingStore) Remove(context.Context, string, string)              {}

func TestFacadeLifecycle(t *testing.T) {
	repo, _ := newTestRepository(t)
	facade := NewFacade(testProfileID, repo, nil)

	if facade.State() != StateUninitialized {
		t.Fatalf("expected uninitialized state, got %s", facade.State())
	}
	if _, ok := facade.Current(); ok {
		t.Fatalf("expected no library before init")
	}

	lib := facade.Init(context.Background())
	if facade.State() != StateReady {
		t.Fatalf("expected ready state, got %s", facade.State())
	}
	if !reflect.DeepEqual(lib, Defaults()) {
		t.Fatalf("expected defaults after init, got %#v", lib)
	}

	facade.ToggleFavorite(context.Background(), "tt0111161")
	facade.Reset(context.Background())
	if facade.State() != StateReady {
		t.Fatalf("reset must keep the facade ready, got %s", facade.State())
	}
	current, ok := facade.Current()
	if !ok || !reflect.DeepEqual(current, Defaults()) {
		t.Fatalf("expected defaults after reset, got %#v", current)
	}
}

func TestFacadeFavoritesPersistAcrossReload(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()
	facade := NewFacade(testProfileID, repo, nil)
	facade.Init(ctx)

	facade.ToggleFavorite(ctx, "tt0111161")
	facade.ToggleFavorite(ctx, "tt0068646")

	reloadedRepo, err := NewRepository(store)
	if err != nil {
		t.Fatalf("failed to construct repository: %v", err)
	}
	loaded := reloadedRepo.Load(ctx, testProfileID)
	if !reflect.DeepEqual(loaded.Favorites, []MovieKey{"tt0111161", "tt0068646"}) {
		t.Fatalf("unexpected favorites after reload: %v", loaded.Favorites)
	}
}

func TestFacadeRatingPersistsAlone(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	facade := NewFacade(testProfileID, repo, nil)

	if _, err := facade.Rate(ctx, "tt0111161", 5); err != nil {
		t.Fatalf("unexpected rating error: %v", err)
	}
	if _, err := facade.Rate(ctx, "tt0068646", 0); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected invalid rating error, got %v", err)
	}

	loaded := repo.Load(ctx, testProfileID)
	if !reflect.DeepEqual(loaded.Ratings, map[MovieKey]int{"tt0111161": 5}) {
		t.Fatalf("unexpected ratings after reload: %v", loaded.Ratings)
	}
}

func TestFacadeNotifiesBeforeReturning(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()
	facade := NewFacade(testProfileID, repo, nil)
	facade.Init(ctx)

	var observed []UserLibrary
	unsubscribe := facade.Subscribe(func(lib UserLibrary) {
		observed = append(observed, lib)
	})

	facade.ToggleWatchlist(ctx, "7")
	if len(observed) != 1 || !reflect.DeepEqual(observed[0].Watchlist, []MovieKey{"7"}) {
		t.Fatalf("expected listener to see the update synchronously, got %#v", observed)
	}

	if _, err := facade.Rate(ctx, "7", 9); err == nil {
		t.Fatalf("expected invalid rating error")
	}
	if len(observed) != 1 {
		t.Fatalf("rejected mutation must not notify, got %d notifications", len(observed))
	}

	unsubscribe()
	facade.ToggleWatchlist(ctx, "7")
	if len(observed) != 1 {
		t.Fatalf("expected no notifications after unsubscribe, got %d", len(observed))
	}
}

func TestFacadeKeepsMemoryWhenPersistenceDrops(t *testing.T) {
	store := &droppingStore{}
	repo, err := NewRepository(store)
	if err != nil {
		t.Fatalf("failed to construct repository: %v", err)
	}
	ctx := context.Background()
	facade := NewFacade(testProfileID, repo, nil)

	facade.ToggleFavorite(ctx, "tt0111161")
	genres := []int{18}
	if _, err := facade.UpdatePreferences(ctx, PreferencesPatch{FavoriteGenres: &genres}); err != nil {
		t.Fatalf("unexpected preferences error: %v", err)
	}

	current, ok := facade.Current()
	if !ok {
		t.Fatalf("expected ready facade")
	}
	if !current.IsFavorite("tt0111161") || !reflect.DeepEqual(current.Preferences.FavoriteGenres, []int{18}) {
		t.Fatalf("expected in-memory state to survive dropped writes, got %#v", current)
	}
	if store.writes != 2 {
		t.Fatalf("expected a full write per mutation, got %d", store.writes)
	}
}

func TestFacadeReplaceNormalizesImport(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()
	facade := NewFacade(testProfileID, repo, nil)

	facade.Replace(ctx, UserLibrary{Favorites: []MovieKey{"5"}})

	raw, ok := store.Read(ctx, testProfileID, storage.KeyUserData)
	if !ok {
		t.Fatalf("expected replacement to be persisted")
	}
	expected := `{"favorites":["5"],"watchlist":[],"ratings":{},"preferences":{"favoriteGenres":[],"language":"","darkMode":false,"notifications":false}}`
	if string(raw) != expected {
		t.Fatalf("unexpected persisted replacement %s", raw)
	}
}

func TestRegistryReusesFacades(t *testing.T) {
	repo, _ := newTestRepository(t)
	created := 0
	registry, err := NewRegistry(RegistryConfig{
		Repository: repo,
		OnCreate: func(profileID string, facade *Facade) {
			created++
			if facade.ProfileID() != profileID {
				t.Fatalf("facade bound to %q, expected %q", facade.ProfileID(), profileID)
			}
		},
	})
	if err != nil {
		t.Fatalf("failed to construct registry: %v", err)
	}

	ctx := context.Background()
	first, err := registry.Facade(ctx, testProfileID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := registry.Facade(ctx, " "+testProfileID+" ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same facade for the same profile")
	}
	if first.State() != StateReady {
		t.Fatalf("expected registry to hand out ready facades")
	}
	if created != 1 {
		t.Fatalf("expected one creation callback, got %d", created)
	}
	if _, err := registry.Facade(ctx, ""); err == nil {
		t.Fatalf("expected empty profile to be rejected")
	}
}
