package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/comments"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/library"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/lookup"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	profileIDContextKey      = "cinema_profile_id"
	defaultHeartbeatInterval = 25 * time.Second
	maxImportBytes           = 1 << 20
)

var (
	errMissingAccounts      = errors.New("account service dependency required")
	errMissingCatalog       = errors.New("catalog dependency required")
	errMissingLibraries     = errors.New("library registry dependency required")
	errMissingComments      = errors.New("comment repository dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// AccountService is the mock account surface used by the auth routes.
type AccountService interface {
	Register(ctx context.Context, username, email, password string) auth.Registration
	Login(ctx context.Context, email, password string) (auth.Session, error)
	Guest(ctx context.Context) (auth.Session, error)
	Logout(ctx context.Context, profileID string)
	Status(ctx context.Context, profileID string) auth.Status
	Authenticate(token string) (string, error)
}

// Dependencies wires the HTTP handler.
type Dependencies struct {
	Accounts          AccountService
	Catalog           *movies.FailSoft
	Libraries         *library.Registry
	Comments          *comments.Repository
	Realtime          *RealtimeDispatcher
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	Clock             func() time.Time
	Logger            *zap.Logger
}

// NewHTTPHandler builds the gin router serving the cinema API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Accounts == nil {
		return nil, errMissingAccounts
	}
	if deps.Catalog == nil {
		return nil, errMissingCatalog
	}
	if deps.Libraries == nil {
		return nil, errMissingLibraries
	}
	if deps.Comments == nil {
		return nil, errMissingComments
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		accounts:  deps.Accounts,
		catalog:   deps.Catalog,
		resolver:  lookup.NewResolver(deps.Catalog.Source(), logger),
		libraries: deps.Libraries,
		comments:  deps.Comments,
		realtime:  realtime,
		heartbeat: heartbeat,
		clock:     clock,
		logger:    logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)
	router.POST("/auth/guest", handler.handleGuest)

	router.GET("/genres", handler.handleGenres)
	router.GET("/movies/trending", handler.handleTrending)
	router.GET("/movies/top-rated", handler.handleTopRated)
	router.GET("/movies/genre/:genreID", handler.handleMoviesByGenre)
	router.GET("/movies/search", handler.handleSearch)
	router.GET("/movies/:id", handler.handleMovieDetails)
	router.GET("/movies/:id/similar", handler.handleSimilar)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/auth/logout", handler.handleLogout)
	protected.GET("/auth/status", handler.handleStatus)

	protected.GET("/movies/:id/comments", handler.handleListComments)
	protected.POST("/movies/:id/comments", handler.handleAddComment)

	protected.GET("/library", handler.handleLibrary)
	protected.POST("/library/favorites/toggle", handler.handleToggleFavorite)
	protected.POST("/library/watchlist/toggle", handler.handleToggleWatchlist)
	protected.PUT("/library/ratings", handler.handleRate)
	protected.PATCH("/library/preferences", handler.handleUpdatePreferences)
	protected.GET("/library/favorites/movies", handler.handleFavoriteMovies)
	protected.GET("/library/watchlist/movies", handler.handleWatchlistMovies)
	protected.GET("/library/recommendations", handler.handleRecommendations)
	protected.GET("/library/export", handler.handleExport)
	protected.POST("/library/import", handler.handleImport)
	protected.POST("/library/clear", handler.handleClear)
	protected.GET("/library/events", handler.handleLibraryEvents)

	return router, nil
}

// LibraryPublisher returns a registry hook that forwards every facade change to dispatcher.
func LibraryPublisher(dispatcher *RealtimeDispatcher, clock func() time.Time) func(string, *library.Facade) {
	if clock == nil {
		clock = time.Now
	}
	return func(profileID string, facade *library.Facade) {
		facade.Subscribe(func(lib library.UserLibrary) {
			dispatcher.Publish(RealtimeMessage{
				ProfileID: profileID,
				EventType: RealtimeEventLibraryChanged,
				Library:   lib,
				Timestamp: clock().UTC(),
			})
		})
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Disposition"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	return cors.New(config)
}

type httpHandler struct {
	accounts  AccountService
	catalog   *movies.FailSoft
	resolver  *lookup.Resolver
	libraries *library.Registry
	comments  *comments.Repository
	realtime  *RealtimeDispatcher
	heartbeat time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

// authorizeRequest accepts a bearer header, or an access_token query parameter for event streams.
func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token := ""
	header := c.GetHeader("Authorization")
	switch {
	case strings.HasPrefix(header, "Bearer "):
		token = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	case header == "":
		token = strings.TrimSpace(c.Query("access_token"))
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	profileID, err := h.accounts.Authenticate(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(profileIDContextKey, profileID)
	c.Next()
}

func (h *httpHandler) profileID(c *gin.Context) (string, bool) {
	profileID := c.GetString(profileIDContextKey)
	if profileID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return profileID, true
}

// facade returns the ready library facade of the authenticated profile.
func (h *httpHandler) facade(c *gin.Context) (*library.Facade, bool) {
	profileID, ok := h.profileID(c)
	if !ok {
		return nil, false
	}
	facade, err := h.libraries.Facade(c.Request.Context(), profileID)
	if err != nil {
		h.logger.Error("library unavailable", zap.String("profile_id", profileID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "library_unavailable"})
		return nil, false
	}
	return facade, true
}
