package users

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrInvalidIdentity indicates the login did not carry a usable subject.
	ErrInvalidIdentity = errors.New("users: invalid identity")
	// ErrUnknownProfile indicates no identity owns the profile id.
	ErrUnknownProfile = errors.New("users: unknown profile")
)

// ServiceConfig describes the dependencies required for identity resolution.
type ServiceConfig struct {
	Database    *gorm.DB
	Clock       func() time.Time
	IDGenerator func() (uuid.UUID, error)
}

// Login carries what a login or registration form provides.
type Login struct {
	Email       string
	DisplayName string
}

// Service manages canonical profile ids and the logins that map to them.
type Service struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() (uuid.UUID, error)
	cache sync.Map
}

// NewService constructs the identity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	generator := cfg.IDGenerator
	if generator == nil {
		generator = uuid.NewV7
	}
	return &Service{
		db:    cfg.Database,
		now:   clock,
		newID: generator,
	}, nil
}

// ResolveProfileID returns the canonical profile id for an email login.
// It creates a new identity with a fresh UUIDv7 profile id the first time an email is seen.
func (s *Service) ResolveProfileID(ctx context.Context, login Login) (string, error) {
	subject := normalizeEmail(login.Email)
	if subject == "" {
		return "", ErrInvalidIdentity
	}

	cacheKey := ProviderLocal + ":" + subject
	if cached, ok := s.cache.Load(cacheKey); ok {
		if profileID, ok := cached.(string); ok {
			s.touch(ctx, ProviderLocal, subject, login.DisplayName)
			return profileID, nil
		}
	}

	db := s.db.WithContext(ctx)
	var identity Identity
	err := db.
		Where("provider = ? AND subject = ?", ProviderLocal, subject).
		First(&identity).
		Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		identity, err = s.create(ctx, ProviderLocal, subject, subject, login.DisplayName)
		if err != nil {
			return "", err
		}
	case err != nil:
		return "", err
	default:
		s.touch(ctx, ProviderLocal, subject, login.DisplayName)
	}

	s.cache.Store(cacheKey, identity.ProfileID)
	return identity.ProfileID, nil
}

// CreateGuest registers an anonymous profile and returns its id.
func (s *Service) CreateGuest(ctx context.Context) (string, error) {
	identity, err := s.create(ctx, ProviderGuest, "", "", "Guest")
	if err != nil {
		return "", err
	}
	return identity.ProfileID, nil
}

// Lookup returns the identity that owns profileID.
func (s *Service) Lookup(ctx context.Context, profileID string) (Identity, error) {
	var identity Identity
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", normalize(profileID)).
		First(&identity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Identity{}, ErrUnknownProfile
	}
	if err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// create inserts an identity. A blank subject means the profile id doubles as the subject.
func (s *Service) create(ctx context.Context, provider, subject, email, displayName string) (Identity, error) {
	generated, err := s.newID()
	if err != nil {
		return Identity{}, fmt.Errorf("users: generate profile id: %w", err)
	}
	profileID := generated.String()
	if subject == "" {
		subject = profileID
	}
	identity := Identity{
		Provider:    provider,
		Subject:     subject,
		ProfileID:   profileID,
		Email:       email,
		DisplayName: normalize(displayName),
		LastSeenAt:  s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&identity).Error; err != nil {
		return Identity{}, err
	}
	return identity, nil
}

func (s *Service) touch(ctx context.Context, provider, subject, displayName string) {
	updates := map[string]interface{}{"last_seen_at": s.now().UTC()}
	if display := normalize(displayName); display != "" {
		updates["display_name"] = display
	}
	_ = s.db.WithContext(ctx).
		Model(&Identity{}).
		Where("provider = ? AND subject = ?", provider, subject).
		Updates(updates).
		Error
}
