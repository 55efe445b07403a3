package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/comments"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/library"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/users"
	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2021, time.June, 1, 12, 0, 0, 0, time.UTC)

type testStack struct {
	handler   http.Handler
	store     *storage.MemoryStore
	realtime  *RealtimeDispatcher
	libraries *library.Registry
	accounts  *auth.Service
	tokens    *auth.TokenIssuer
}

type stackOptions struct {
	catalog   movies.Catalog
	logger    *zap.Logger
	heartbeat time.Duration
}

func newTestStack(t *testing.T, options stackOptions) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&users.Identity{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	profiles, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct user service: %v", err)
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        "cinema-auth",
		Audience:      "cinema-api",
		TokenTTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to construct token issuer: %v", err)
	}

	logger := options.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store := storage.NewMemoryStore()
	accounts, err := auth.NewService(auth.ServiceConfig{Profiles: profiles, Tokens: tokens, Store: store, Logger: logger})
	if err != nil {
		t.Fatalf("failed to construct account service: %v", err)
	}

	catalog := options.catalog
	if catalog == nil {
		embedded, err := movies.LoadEmbeddedCatalog()
		if err != nil {
			t.Fatalf("failed to load catalog: %v", err)
		}
		catalog = embedded
	}

	repository, err := library.NewRepository(store)
	if err != nil {
		t.Fatalf("failed to construct library repository: %v", err)
	}
	realtime := NewRealtimeDispatcher()
	libraries, err := library.NewRegistry(library.RegistryConfig{
		Repository: repository,
		Logger:     logger,
		OnCreate:   LibraryPublisher(realtime, func() time.Time { return testNow }),
	})
	if err != nil {
		t.Fatalf("failed to construct registry: %v", err)
	}

	commentRepository, err := comments.NewRepository(comments.Config{Store: store, Clock: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("failed to construct comment repository: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		Accounts:          accounts,
		Catalog:           movies.NewFailSoft(catalog, logger),
		Libraries:         libraries,
		Comments:          commentRepository,
		Realtime:          realtime,
		HeartbeatInterval: options.heartbeat,
		Clock:             func() time.Time { return testNow },
		Logger:            logger,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}

	return &testStack{
		handler:   handler,
		store:     store,
		realtime:  realtime,
		libraries: libraries,
		accounts:  accounts,
		tokens:    tokens,
	}
}

// login signs in with email and returns the bearer token and profile id.
func (s *testStack) login(t *testing.T, email string) (string, string) {
	t.Helper()
	recorder := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "pw"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", recorder.Code, recorder.Body.String())
	}
	var session sessionResponsePayload
	decodeBody(t, recorder, &session)
	return session.Access, session.ProfileID
}

func (s *testStack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch typed := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(typed))
	case []byte:
		reader = bytes.NewReader(typed)
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error string `json:"error"`
	}
	decodeBody(t, recorder, &payload)
	return payload.Error
}
