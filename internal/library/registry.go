package library

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var errMissingProfileID = errors.New("library: profile id required")

// RegistryConfig describes the dependencies of a Registry.
type RegistryConfig struct {
	Repository *Repository
	Logger     *zap.Logger
	// OnCreate runs once for every new facade, before it is initialized.
	OnCreate func(profileID string, facade *Facade)
}

// Registry keeps one Facade per profile for the process lifetime.
type Registry struct {
	repo     *Repository
	logger   *zap.Logger
	onCreate func(string, *Facade)

	mu      sync.Mutex
	facades map[string]*Facade
}

// NewRegistry constructs a Registry.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Repository == nil {
		return nil, errors.New("library: repository required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		repo:     cfg.Repository,
		logger:   logger,
		onCreate: cfg.OnCreate,
		facades:  make(map[string]*Facade),
	}, nil
}

// Facade returns the ready facade for profileID, creating and loading it on first access.
func (r *Registry) Facade(ctx context.Context, profileID string) (*Facade, error) {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return nil, errMissingProfileID
	}

	r.mu.Lock()
	facade, ok := r.facades[profileID]
	if !ok {
		facade = NewFacade(profileID, r.repo, r.logger)
		r.facades[profileID] = facade
		if r.onCreate != nil {
			r.onCreate(profileID, facade)
		}
	}
	r.mu.Unlock()

	facade.Init(ctx)
	return facade, nil
}
