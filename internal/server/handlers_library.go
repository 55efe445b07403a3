package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/library"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/recommend"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const exportFileName = "cinema-data.json"

type movieKeyRequestPayload struct {
	MovieID string `json:"movie_id"`
}

type ratingRequestPayload struct {
	MovieID string `json:"movie_id"`
	Rating  *int   `json:"rating"`
}

type clearRequestPayload struct {
	Confirm bool `json:"confirm"`
}

type favoriteMoviesPayload struct {
	Movies []movies.Movie `json:"movies"`
}

type watchlistMoviesPayload struct {
	Movies  []movies.Movie        `json:"movies"`
	Summary movies.RuntimeSummary `json:"summary"`
}

func (h *httpHandler) handleLibrary(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	lib, _ := facade.Current()
	c.JSON(http.StatusOK, lib)
}

func (h *httpHandler) handleToggleFavorite(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	key, ok := bindMovieKey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, facade.ToggleFavorite(c.Request.Context(), key))
}

func (h *httpHandler) handleToggleWatchlist(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	key, ok := bindMovieKey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, facade.ToggleWatchlist(c.Request.Context(), key))
}

func (h *httpHandler) handleRate(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	var request ratingRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Rating == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	key, err := library.NewMovieKey(request.MovieID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_movie_id"})
		return
	}
	lib, err := facade.Rate(c.Request.Context(), key, *request.Rating)
	if errors.Is(err, library.ErrInvalidRating) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_rating"})
		return
	}
	c.JSON(http.StatusOK, lib)
}

func (h *httpHandler) handleUpdatePreferences(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	var patch library.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	lib, err := facade.UpdatePreferences(c.Request.Context(), patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_preferences"})
		return
	}
	c.JSON(http.StatusOK, lib)
}

func (h *httpHandler) handleFavoriteMovies(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	options, err := movies.FavoritesList.ParseListOptions(c.Query("sort"), c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_list_options"})
		return
	}
	lib, _ := facade.Current()
	resolved := h.resolveKeys(c, lib.Favorites)
	arranged := movies.FavoritesList.Arrange(resolved, options, h.clock())
	c.JSON(http.StatusOK, favoriteMoviesPayload{Movies: movies.WithImages(arranged)})
}

func (h *httpHandler) handleWatchlistMovies(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	options, err := movies.WatchlistList.ParseListOptions(c.Query("sort"), c.Query("filter"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_list_options"})
		return
	}
	lib, _ := facade.Current()
	resolved := h.resolveKeys(c, lib.Watchlist)
	arranged := movies.WatchlistList.Arrange(resolved, options, h.clock())
	c.JSON(http.StatusOK, watchlistMoviesPayload{
		Movies:  movies.WithImages(arranged),
		Summary: movies.SummarizeRuntime(resolved),
	})
}

func (h *httpHandler) handleRecommendations(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	lib, _ := facade.Current()
	picked := recommend.For(lib, h.catalog.Titles(c.Request.Context()))
	c.JSON(http.StatusOK, movieListPayload{Results: movies.WithImages(picked)})
}

func (h *httpHandler) handleExport(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	lib, _ := facade.Current()
	c.Header("Content-Disposition", `attachment; filename="`+exportFileName+`"`)
	c.Data(http.StatusOK, "application/json", library.EncodeIndented(lib))
}

func (h *httpHandler) handleImport(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "import_too_large"})
		return
	}
	imported, err := library.DecodeImport(raw)
	if err != nil {
		h.logger.Info("library import rejected", zap.String("profile_id", facade.ProfileID()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_import"})
		return
	}
	c.JSON(http.StatusOK, facade.Replace(c.Request.Context(), imported))
}

func (h *httpHandler) handleClear(c *gin.Context) {
	facade, ok := h.facade(c)
	if !ok {
		return
	}
	var request clearRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || !request.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "confirmation_required"})
		return
	}
	c.JSON(http.StatusOK, facade.Reset(c.Request.Context()))
}

func bindMovieKey(c *gin.Context) (library.MovieKey, bool) {
	var request movieKeyRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return "", false
	}
	key, err := library.NewMovieKey(request.MovieID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_movie_id"})
		return "", false
	}
	return key, true
}

// resolveKeys looks up each library key in storage order. Keys the catalog does not know are skipped.
func (h *httpHandler) resolveKeys(c *gin.Context, keys []library.MovieKey) []movies.Movie {
	resolved := make([]movies.Movie, 0, len(keys))
	for _, key := range keys {
		if movie, found := h.resolver.Resolve(c.Request.Context(), key.String()); found {
			resolved = append(resolved, movie)
		}
	}
	return resolved
}
