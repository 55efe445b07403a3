package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
	"github.com/gin-gonic/gin"
)

const suggestionLimit = 5

type movieListPayload struct {
	Results []movies.Movie `json:"results"`
}

type searchResponsePayload struct {
	Query       string         `json:"query"`
	Results     []movies.Movie `json:"results"`
	Suggestions []movies.Movie `json:"suggestions"`
}

func (h *httpHandler) handleGenres(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"genres": h.catalog.Genres(c.Request.Context())})
}

func (h *httpHandler) handleTrending(c *gin.Context) {
	c.JSON(http.StatusOK, movieListPayload{Results: movies.WithImages(h.catalog.ListTrending(c.Request.Context()))})
}

func (h *httpHandler) handleTopRated(c *gin.Context) {
	c.JSON(http.StatusOK, movieListPayload{Results: movies.WithImages(h.catalog.ListTopRated(c.Request.Context()))})
}

func (h *httpHandler) handleMoviesByGenre(c *gin.Context) {
	genreID, err := strconv.Atoi(c.Param("genreID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_genre"})
		return
	}
	c.JSON(http.StatusOK, movieListPayload{Results: movies.WithImages(h.catalog.ListByGenre(c.Request.Context(), genreID))})
}

func (h *httpHandler) handleSearch(c *gin.Context) {
	ctx := c.Request.Context()
	query := strings.TrimSpace(c.Query("q"))
	response := searchResponsePayload{Query: query, Results: []movies.Movie{}, Suggestions: []movies.Movie{}}
	if query != "" {
		response.Results = movies.WithImages(h.catalog.Search(ctx, query))
		if len(response.Results) == 0 {
			response.Suggestions = movies.WithImages(movies.Suggest(query, h.catalog.Titles(ctx), suggestionLimit))
		}
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleMovieDetails(c *gin.Context) {
	movie, found := h.resolver.Resolve(c.Request.Context(), c.Param("id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, movie.WithImages())
}

func (h *httpHandler) handleSimilar(c *gin.Context) {
	ctx := c.Request.Context()
	movie, found := h.resolver.Resolve(ctx, c.Param("id"))
	if !found {
		c.JSON(http.StatusOK, movieListPayload{Results: []movies.Movie{}})
		return
	}
	c.JSON(http.StatusOK, movieListPayload{Results: movies.WithImages(h.catalog.GetSimilar(ctx, movie.ID))})
}
