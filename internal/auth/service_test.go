package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/users"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubProfiles struct {
	byEmail  map[string]string
	logins   []users.Login
	guests   int
	failWith error
}

func (s *stubProfiles) ResolveProfileID(_ context.Context, login users.Login) (string, error) {
	s.logins = append(s.logins, login)
	if s.failWith != nil {
		return "", s.failWith
	}
	if s.byEmail == nil {
		s.byEmail = map[string]string{}
	}
	profileID, ok := s.byEmail[login.Email]
	if !ok {
		profileID = "profile-" + login.Email
		s.byEmail[login.Email] = profileID
	}
	return profileID, nil
}

func (s *stubProfiles) CreateGuest(context.Context) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	s.guests++
	return "guest-profile", nil
}

func newTestService(t *testing.T, profiles ProfileResolver, logger *zap.Logger) (*Service, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	service, err := NewService(ServiceConfig{
		Profiles: profiles,
		Tokens:   newTestIssuer(t, nil),
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return service, store
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenIssuerConfig{SigningSecret: []byte("s"), Issuer: "i", Audience: "a", TokenTTL: time.Minute})
	if err != nil {
		t.Fatalf("unexpected issuer error: %v", err)
	}
	_, err = NewService(ServiceConfig{Tokens: issuer, Store: storage.NewMemoryStore()})
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "auth.service.new.missing_profiles" {
		t.Fatalf("expected missing_profiles service error, got %v", err)
	}
	if _, err := NewService(ServiceConfig{Profiles: &stubProfiles{}, Store: storage.NewMemoryStore()}); err == nil {
		t.Fatalf("expected error for missing token issuer")
	}
	if _, err := NewService(ServiceConfig{Profiles: &stubProfiles{}, Tokens: issuer}); err == nil {
		t.Fatalf("expected error for missing store")
	}
}

func TestLoginStoresTokenAndStatusReportsIt(t *testing.T) {
	profiles := &stubProfiles{}
	service, store := newTestService(t, profiles, nil)
	ctx := context.Background()

	session, err := service.Login(ctx, "viewer@example.com", "anything")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if session.ProfileID != "profile-viewer@example.com" || session.Access == "" || session.ExpiresIn <= 0 {
		t.Fatalf("unexpected session %+v", session)
	}

	var stored string
	if !storage.ReadJSON(ctx, store, session.ProfileID, storage.KeyAuthToken, &stored) || stored != session.Access {
		t.Fatalf("expected stored token to match issued token, got %q", stored)
	}

	profileID, err := service.Authenticate(session.Access)
	if err != nil || profileID != session.ProfileID {
		t.Fatalf("expected token to authenticate profile, got %q err=%v", profileID, err)
	}

	if status := service.Status(ctx, session.ProfileID); !status.Authenticated {
		t.Fatalf("expected authenticated status, got %+v", status)
	}

	service.Logout(ctx, session.ProfileID)
	if status := service.Status(ctx, session.ProfileID); status.Authenticated {
		t.Fatalf("expected logout to clear the stored token")
	}
}

func TestLoginRejectsBlankEmail(t *testing.T) {
	service, _ := newTestService(t, &stubProfiles{}, nil)
	_, err := service.Login(context.Background(), "  ", "secret")
	if !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestLoginSurfacesResolverFailure(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	service, _ := newTestService(t, &stubProfiles{failWith: errors.New("database closed")}, zap.New(core))

	_, err := service.Login(context.Background(), "viewer@example.com", "")
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "auth.login.profile_resolve_failed" {
		t.Fatalf("expected profile_resolve_failed, got %v", err)
	}
	if recorded.FilterMessage("auth operation failed").Len() != 1 {
		t.Fatalf("expected a single failure log, got %d", recorded.Len())
	}
}

func TestRegisterAlwaysSucceeds(t *testing.T) {
	profiles := &stubProfiles{}
	service, _ := newTestService(t, profiles, nil)

	registration := service.Register(context.Background(), " Viewer ", "viewer@example.com", "hunter2")
	if !registration.OK || registration.Username != "Viewer" || registration.Email != "viewer@example.com" {
		t.Fatalf("unexpected registration %+v", registration)
	}
	if len(profiles.logins) != 1 || profiles.logins[0].DisplayName != "Viewer" {
		t.Fatalf("expected registration to record the display name, got %+v", profiles.logins)
	}

	failing, _ := newTestService(t, &stubProfiles{failWith: errors.New("boom")}, nil)
	if registration := failing.Register(context.Background(), "x", "x@example.com", ""); !registration.OK {
		t.Fatalf("expected registration to succeed even when the profile cannot be recorded")
	}
}

func TestGuestCreatesProfileSession(t *testing.T) {
	profiles := &stubProfiles{}
	service, _ := newTestService(t, profiles, nil)

	session, err := service.Guest(context.Background())
	if err != nil {
		t.Fatalf("guest failed: %v", err)
	}
	if session.ProfileID != "guest-profile" || profiles.guests != 1 {
		t.Fatalf("unexpected guest session %+v", session)
	}
}
