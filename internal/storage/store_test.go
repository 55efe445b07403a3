package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "storage.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("failed to migrate storage schema: %v", err)
	}
	return db
}

func newTestSQLStore(t *testing.T, logger *zap.Logger) (*SQLStore, *gorm.DB) {
	t.Helper()
	db := openTestDatabase(t)
	store, err := NewSQLStore(SQLStoreConfig{
		Database: db,
		Clock:    func() time.Time { return time.Unix(1700000000, 0) },
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to construct sql store: %v", err)
	}
	return store, db
}

func newTestBoltStore(t *testing.T, logger *zap.Logger) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "nested", "cinema.bolt"), logger)
	if err != nil {
		t.Fatalf("failed to open bolt store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestStoresRoundTripDocuments(t *testing.T) {
	sqlStore, _ := newTestSQLStore(t, zap.NewNop())
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlStore,
		"bolt":   newTestBoltStore(t, zap.NewNop()),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, ok := store.Read(ctx, "profile-1", KeyUserData); ok {
				t.Fatalf("expected empty store to report absent")
			}

			store.Write(ctx, "profile-1", KeyUserData, []byte(`{"favorites":["tt0111161"]}`))
			store.Write(ctx, "profile-1", KeyUserData, []byte(`{"favorites":["tt0068646"]}`))

			value, ok := store.Read(ctx, "profile-1", KeyUserData)
			if !ok {
				t.Fatalf("expected stored value")
			}
			if string(value) != `{"favorites":["tt0068646"]}` {
				t.Fatalf("expected last write to win, got %s", value)
			}

			if _, ok := store.Read(ctx, "profile-2", KeyUserData); ok {
				t.Fatalf("expected profiles to be isolated")
			}

			store.Remove(ctx, "profile-1", KeyUserData)
			if _, ok := store.Read(ctx, "profile-1", KeyUserData); ok {
				t.Fatalf("expected removed value to be absent")
			}
			store.Remove(ctx, "profile-unknown", KeyUserData)
		})
	}
}

func TestStoresIgnoreEmptyAddresses(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Write(ctx, "", KeyUserData, []byte(`{}`))
	store.Write(ctx, "profile-1", " ", []byte(`{}`))

	if _, ok := store.Read(ctx, "", KeyUserData); ok {
		t.Fatalf("expected empty profile to be rejected")
	}
	if len(store.entries) != 0 {
		t.Fatalf("expected no entries to be written, got %d", len(store.entries))
	}
}

func TestSQLStoreTreatsCorruptValueAsAbsent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store, db := newTestSQLStore(t, zap.New(core))

	corrupt := Entry{ProfileID: "profile-1", Key: KeyComments, Value: "{not json", UpdatedAt: time.Unix(1, 0)}
	if err := db.Create(&corrupt).Error; err != nil {
		t.Fatalf("failed to seed corrupt entry: %v", err)
	}

	if _, ok := store.Read(context.Background(), "profile-1", KeyComments); ok {
		t.Fatalf("expected corrupt entry to read as absent")
	}
	if logs.FilterMessage("storage operation failed").Len() != 1 {
		t.Fatalf("expected corrupt read to be logged once, got %d", logs.Len())
	}
}

func TestSQLStoreSwallowsClosedDatabase(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store, db := newTestSQLStore(t, zap.New(core))
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("failed to close sql db: %v", err)
	}

	ctx := context.Background()
	store.Write(ctx, "profile-1", KeyUserData, []byte(`{}`))
	store.Remove(ctx, "profile-1", KeyUserData)
	if _, ok := store.Read(ctx, "profile-1", KeyUserData); ok {
		t.Fatalf("expected read against closed database to report absent")
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected three logged failures, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.Level != zapcore.WarnLevel {
			t.Fatalf("expected warn level, got %s", entry.Level)
		}
	}
}

func TestBoltStoreSwallowsClosedDatabase(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "closed.bolt"), zap.New(core))
	if err != nil {
		t.Fatalf("failed to open bolt store: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close bolt store: %v", err)
	}

	ctx := context.Background()
	store.Write(ctx, "profile-1", KeyUserData, []byte(`{}`))
	if _, ok := store.Read(ctx, "profile-1", KeyUserData); ok {
		t.Fatalf("expected closed bolt store to report absent")
	}
	if logs.Len() != 2 {
		t.Fatalf("expected two logged failures, got %d", logs.Len())
	}
}

func TestReadJSONRejectsUndecodableDocument(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Write(ctx, "profile-1", KeyAuthToken, []byte(`42`))

	var token string
	if ReadJSON(ctx, store, "profile-1", KeyAuthToken, &token) {
		t.Fatalf("expected number document to fail string decoding")
	}

	WriteJSON(ctx, store, "profile-1", KeyAuthToken, "opaque-token")
	if !ReadJSON(ctx, store, "profile-1", KeyAuthToken, &token) || token != "opaque-token" {
		t.Fatalf("expected token round trip, got %q", token)
	}
}
