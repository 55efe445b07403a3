package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/users"
	"go.uber.org/zap"
)

const (
	opServiceNew = "auth.service.new"
	opRegister   = "auth.register"
	opLogin      = "auth.login"
	opGuest      = "auth.guest"
)

var (
	errMissingProfiles = errors.New("profile resolver required")
	errMissingTokens   = errors.New("token issuer required")
	errMissingStore    = errors.New("backing store required")
	// ErrMissingEmail indicates a login carried no email to key the profile on.
	ErrMissingEmail = errors.New("auth: email required")
)

// ServiceError carries a machine readable code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: operation + "." + reason, err: cause}
}

// ProfileResolver maps logins to canonical profile ids.
type ProfileResolver interface {
	ResolveProfileID(ctx context.Context, login users.Login) (string, error)
	CreateGuest(ctx context.Context) (string, error)
}

// ServiceConfig bundles the dependencies of the mock account service.
type ServiceConfig struct {
	Profiles ProfileResolver
	Tokens   *TokenIssuer
	Store    storage.Store
	Logger   *zap.Logger
}

// Registration echoes an accepted registration.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	OK       bool   `json:"ok"`
}

// Session is the result of a login.
type Session struct {
	Access    string `json:"access"`
	ProfileID string `json:"profile_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// Status reports whether a profile currently holds a stored login token.
type Status struct {
	ProfileID     string `json:"profile_id"`
	Authenticated bool   `json:"authenticated"`
}

// Service is a mock account service: credentials are accepted without checking and passwords
// are never stored. Logins only serve to choose the profile whose data is used.
type Service struct {
	profiles ProfileResolver
	tokens   *TokenIssuer
	store    storage.Store
	logger   *zap.Logger
}

// NewService validates cfg and constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Profiles == nil {
		return nil, newServiceError(opServiceNew, "missing_profiles", errMissingProfiles)
	}
	if cfg.Tokens == nil {
		return nil, newServiceError(opServiceNew, "missing_tokens", errMissingTokens)
	}
	if cfg.Store == nil {
		return nil, newServiceError(opServiceNew, "missing_store", errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		profiles: cfg.Profiles,
		tokens:   cfg.Tokens,
		store:    cfg.Store,
		logger:   logger,
	}, nil
}

// Register always succeeds. When an email is given the display name is remembered for the profile.
func (s *Service) Register(ctx context.Context, username, email, _ string) Registration {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if email != "" {
		if _, err := s.profiles.ResolveProfileID(ctx, users.Login{Email: email, DisplayName: username}); err != nil {
			s.logError(opRegister, "profile_resolve_failed", err)
		}
	}
	return Registration{Username: username, Email: email, OK: true}
}

// Login accepts any password, resolves the profile for email and stores a fresh token for it.
func (s *Service) Login(ctx context.Context, email, _ string) (Session, error) {
	if strings.TrimSpace(email) == "" {
		return Session{}, newServiceError(opLogin, "missing_email", ErrMissingEmail)
	}
	profileID, err := s.profiles.ResolveProfileID(ctx, users.Login{Email: email})
	if err != nil {
		s.logError(opLogin, "profile_resolve_failed", err)
		return Session{}, newServiceError(opLogin, "profile_resolve_failed", err)
	}
	return s.startSession(ctx, opLogin, profileID)
}

// Guest creates a new anonymous profile and logs into it.
func (s *Service) Guest(ctx context.Context) (Session, error) {
	profileID, err := s.profiles.CreateGuest(ctx)
	if err != nil {
		s.logError(opGuest, "profile_create_failed", err)
		return Session{}, newServiceError(opGuest, "profile_create_failed", err)
	}
	return s.startSession(ctx, opGuest, profileID)
}

// Logout forgets the stored token of profileID.
func (s *Service) Logout(ctx context.Context, profileID string) {
	s.store.Remove(ctx, profileID, storage.KeyAuthToken)
}

// Status reports whether profileID holds a stored token.
func (s *Service) Status(ctx context.Context, profileID string) Status {
	var token string
	present := storage.ReadJSON(ctx, s.store, profileID, storage.KeyAuthToken, &token) && token != ""
	return Status{ProfileID: profileID, Authenticated: present}
}

// Authenticate validates a bearer token and returns the profile it was issued for.
func (s *Service) Authenticate(token string) (string, error) {
	return s.tokens.ValidateToken(token)
}

func (s *Service) startSession(ctx context.Context, operation, profileID string) (Session, error) {
	token, expiresIn, err := s.tokens.IssueProfileToken(ctx, profileID)
	if err != nil {
		s.logError(operation, "token_issue_failed", err, zap.String("profile_id", profileID))
		return Session{}, newServiceError(operation, "token_issue_failed", err)
	}
	storage.WriteJSON(ctx, s.store, profileID, storage.KeyAuthToken, token)
	return Session{Access: token, ProfileID: profileID, ExpiresIn: expiresIn}, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	s.logger.Error("auth operation failed", allFields...)
}
