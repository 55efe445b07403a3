package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/comments"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/config"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/database"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/library"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/server"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cinema-api",
		Short: "Cinema catalog and personal library backend",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().StringSlice("allowed-origins", defaults.GetStringSlice("http.allowed_origins"), "CORS origins, * for any")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("storage-driver", defaults.GetString("storage.driver"), "Document store (sqlite, bolt, memory)")
	cmd.PersistentFlags().String("bolt-path", defaults.GetString("storage.bolt_path"), "BoltDB file for the bolt driver")
	cmd.PersistentFlags().String("catalog-source", defaults.GetString("catalog.source"), "Catalog source (mock, proxy)")
	cmd.PersistentFlags().String("catalog-proxy-url", "", "Base URL of the catalog proxy")
	cmd.PersistentFlags().Int("catalog-timeout-seconds", defaults.GetInt("catalog.timeout_seconds"), "Catalog proxy request timeout")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Access token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", defaults.GetString("log.format"), "Log encoding (json, console)")
	cmd.PersistentFlags().String("signing-secret", "", "Token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "http.allowed_origins", "allowed-origins")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "storage.bolt_path", "bolt-path")
	bindFlag(cmd, "catalog.source", "catalog-source")
	bindFlag(cmd, "catalog.proxy_url", "catalog-proxy-url")
	bindFlag(cmd, "catalog.timeout_seconds", "catalog-timeout-seconds")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, closeStore, err := openStore(appConfig, db, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	catalog, err := openCatalog(appConfig)
	if err != nil {
		return err
	}

	profiles, err := users.NewService(users.ServiceConfig{Database: db, Clock: time.Now})
	if err != nil {
		return err
	}

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "cinema-auth",
		Audience:      "cinema-api",
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	accounts, err := auth.NewService(auth.ServiceConfig{
		Profiles: profiles,
		Tokens:   tokenIssuer,
		Store:    store,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	repository, err := library.NewRepository(store)
	if err != nil {
		return err
	}
	realtime := server.NewRealtimeDispatcher()
	libraries, err := library.NewRegistry(library.RegistryConfig{
		Repository: repository,
		Logger:     logger,
		OnCreate:   server.LibraryPublisher(realtime, time.Now),
	})
	if err != nil {
		return err
	}

	commentRepository, err := comments.NewRepository(comments.Config{Store: store, Clock: time.Now})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Accounts:       accounts,
		Catalog:        movies.NewFailSoft(catalog, logger),
		Libraries:      libraries,
		Comments:       commentRepository,
		Realtime:       realtime,
		AllowedOrigins: appConfig.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("storage_driver", appConfig.StorageDriver),
			zap.String("catalog_source", appConfig.CatalogSource))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func openStore(appConfig config.AppConfig, db *gorm.DB, logger *zap.Logger) (storage.Store, func(), error) {
	switch appConfig.StorageDriver {
	case config.StorageBolt:
		store, err := storage.NewBoltStore(appConfig.BoltPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case config.StorageMemory:
		return storage.NewMemoryStore(), func() {}, nil
	case config.StorageSQLite:
		store, err := storage.NewSQLStore(storage.SQLStoreConfig{Database: db, Clock: time.Now, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", appConfig.StorageDriver)
	}
}

func openCatalog(appConfig config.AppConfig) (movies.Catalog, error) {
	switch appConfig.CatalogSource {
	case config.CatalogProxy:
		return movies.NewProxyCatalog(movies.ProxyConfig{
			BaseURL: appConfig.CatalogURL,
			Timeout: appConfig.CatalogTimeout,
		})
	case config.CatalogMock:
		return movies.LoadEmbeddedCatalog()
	default:
		return nil, fmt.Errorf("unsupported catalog source %q", appConfig.CatalogSource)
	}
}
