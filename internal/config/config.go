package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/logging"
	"github.com/spf13/viper"
)

const (
	envPrefix             = "CINEMA"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabasePath   = "cinema.db"
	defaultBoltPath       = "cinema.bolt"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultTokenTTL       = 24 * 60
	defaultCatalogTimeout = 5
)

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageBolt   = "bolt"
	StorageMemory = "memory"
)

// Catalog sources.
const (
	CatalogMock  = "mock"
	CatalogProxy = "proxy"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	AllowedOrigins []string
	DatabasePath   string
	StorageDriver  string
	BoltPath       string
	LogLevel       string
	LogFormat      string
	SigningSecret  string
	TokenTTL       time.Duration
	CatalogSource  string
	CatalogURL     string
	CatalogTimeout time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("storage.driver", StorageSQLite)
	configViper.SetDefault("storage.bolt_path", defaultBoltPath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTL)
	configViper.SetDefault("catalog.source", CatalogMock)
	configViper.SetDefault("catalog.timeout_seconds", defaultCatalogTimeout)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    strings.TrimSpace(configViper.GetString("http.address")),
		AllowedOrigins: configViper.GetStringSlice("http.allowed_origins"),
		DatabasePath:   strings.TrimSpace(configViper.GetString("database.path")),
		StorageDriver:  strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		BoltPath:       strings.TrimSpace(configViper.GetString("storage.bolt_path")),
		LogLevel:       strings.TrimSpace(configViper.GetString("log.level")),
		LogFormat:      strings.ToLower(strings.TrimSpace(configViper.GetString("log.format"))),
		SigningSecret:  configViper.GetString("auth.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		CatalogSource:  strings.ToLower(strings.TrimSpace(configViper.GetString("catalog.source"))),
		CatalogURL:     strings.TrimSpace(configViper.GetString("catalog.proxy_url")),
		CatalogTimeout: time.Duration(configViper.GetInt("catalog.timeout_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log.format must be json or console, got %q", c.LogFormat)
	}

	switch c.StorageDriver {
	case StorageSQLite, StorageMemory:
	case StorageBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("storage.bolt_path is required for the bolt driver")
		}
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, bolt, memory, got %q", c.StorageDriver)
	}
	// Identities live in SQLite whatever the document store.
	if c.DatabasePath == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.CatalogSource {
	case CatalogMock:
	case CatalogProxy:
		if c.CatalogURL == "" {
			return fmt.Errorf("catalog.proxy_url is required for the proxy catalog")
		}
		if c.CatalogTimeout <= 0 {
			return fmt.Errorf("catalog.timeout_seconds must be positive")
		}
	default:
		return fmt.Errorf("catalog.source must be mock or proxy, got %q", c.CatalogSource)
	}
	return nil
}
