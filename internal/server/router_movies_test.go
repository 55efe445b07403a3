package server

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCatalogRoutes(t *testing.T) {
	stack := newTestStack(t, stackOptions{})

	trending := stack.do(t, http.MethodGet, "/movies/trending", "", nil)
	var trendingPayload movieListPayload
	decodeBody(t, trending, &trendingPayload)
	if trending.Code != http.StatusOK || len(trendingPayload.Results) != 10 || trendingPayload.Results[0].ID != 9 {
		t.Fatalf("unexpected trending response %d %+v", trending.Code, trendingPayload)
	}
	first := trendingPayload.Results[0]
	if first.RouteID != "tt0111161" || first.PosterURL == "" {
		t.Fatalf("expected route and image urls, got %+v", first)
	}

	genres := stack.do(t, http.MethodGet, "/genres", "", nil)
	var genresPayload struct {
		Genres []movies.Genre `json:"genres"`
	}
	decodeBody(t, genres, &genresPayload)
	if len(genresPayload.Genres) != 21 {
		t.Fatalf("expected 21 genres, got %d", len(genresPayload.Genres))
	}

	byGenre := stack.do(t, http.MethodGet, "/movies/genre/878", "", nil)
	var byGenrePayload movieListPayload
	decodeBody(t, byGenre, &byGenrePayload)
	if len(byGenrePayload.Results) != 5 || byGenrePayload.Results[0].ID != 11 {
		t.Fatalf("unexpected genre listing %+v", byGenrePayload)
	}

	invalidGenre := stack.do(t, http.MethodGet, "/movies/genre/scifi", "", nil)
	if invalidGenre.Code != http.StatusBadRequest || errorCode(t, invalidGenre) != "invalid_genre" {
		t.Fatalf("expected invalid_genre, got %d", invalidGenre.Code)
	}
}

func TestMovieDetailsResolvesIdentifiers(t *testing.T) {
	stack := newTestStack(t, stackOptions{})

	testCases := []struct {
		path   string
		status int
		wantID int
	}{
		{path: "/movies/tt0111161", status: http.StatusOK, wantID: 9},
		{path: "/movies/4", status: http.StatusOK, wantID: 4},
		{path: "/movies/TMDB:2", status: http.StatusOK, wantID: 2},
		{path: "/movies/the-lion-king", status: http.StatusOK, wantID: 10},
		{path: "/movies/tt9999999", status: http.StatusNotFound},
		{path: "/movies/42", status: http.StatusNotFound},
	}
	for _, testCase := range testCases {
		t.Run(testCase.path, func(t *testing.T) {
			recorder := stack.do(t, http.MethodGet, testCase.path, "", nil)
			if recorder.Code != testCase.status {
				t.Fatalf("expected status %d, got %d", testCase.status, recorder.Code)
			}
			if testCase.status == http.StatusNotFound {
				if errorCode(t, recorder) != "not_found" {
					t.Fatalf("expected not_found error, got %s", recorder.Body.String())
				}
				return
			}
			var movie movies.Movie
			decodeBody(t, recorder, &movie)
			if movie.ID != testCase.wantID {
				t.Fatalf("expected movie %d, got %d", testCase.wantID, movie.ID)
			}
		})
	}
}

func TestSimilarRoute(t *testing.T) {
	stack := newTestStack(t, stackOptions{})

	recorder := stack.do(t, http.MethodGet, "/movies/10/similar", "", nil)
	var payload movieListPayload
	decodeBody(t, recorder, &payload)
	if len(payload.Results) != 4 || payload.Results[0].ID != 3 {
		t.Fatalf("unexpected similar movies %+v", payload)
	}

	missing := stack.do(t, http.MethodGet, "/movies/tt9999999/similar", "", nil)
	decodeBody(t, missing, &payload)
	if missing.Code != http.StatusOK || len(payload.Results) != 0 {
		t.Fatalf("expected empty similar list for unknown movie, got %d %+v", missing.Code, payload)
	}
}

func TestSearchRouteSuggestsOnMiss(t *testing.T) {
	stack := newTestStack(t, stackOptions{})

	hit := stack.do(t, http.MethodGet, "/movies/search?q=matrix", "", nil)
	var hitPayload searchResponsePayload
	decodeBody(t, hit, &hitPayload)
	if len(hitPayload.Results) != 1 || hitPayload.Results[0].ID != 4 || len(hitPayload.Suggestions) != 0 {
		t.Fatalf("unexpected search hit %+v", hitPayload)
	}

	miss := stack.do(t, http.MethodGet, "/movies/search?q=Inceptoin", "", nil)
	var missPayload searchResponsePayload
	decodeBody(t, miss, &missPayload)
	if len(missPayload.Results) != 0 || len(missPayload.Suggestions) == 0 || missPayload.Suggestions[0].ID != 2 {
		t.Fatalf("expected inception suggestion, got %+v", missPayload)
	}

	blank := stack.do(t, http.MethodGet, "/movies/search?q=", "", nil)
	var blankPayload searchResponsePayload
	decodeBody(t, blank, &blankPayload)
	if blankPayload.Results == nil || blankPayload.Suggestions == nil {
		t.Fatalf("expected empty arrays for blank search, got %s", blank.Body.String())
	}
}

func TestCatalogFailuresRenderEmpty(t *testing.T) {
	core, recorded := observer.New(zap.WarnLevel)
	stack := newTestStack(t, stackOptions{catalog: failingCatalog{}, logger: zap.New(core)})

	for _, path := range []string{"/movies/trending", "/movies/top-rated", "/movies/genre/28", "/movies/10/similar"} {
		recorder := stack.do(t, http.MethodGet, path, "", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, recorder.Code)
		}
		if recorder.Body.String() != `{"results":[]}` {
			t.Fatalf("expected empty results for %s, got %s", path, recorder.Body.String())
		}
	}
	if recorded.Len() == 0 {
		t.Fatalf("expected catalog failures to be logged")
	}

	details := stack.do(t, http.MethodGet, "/movies/4", "", nil)
	if details.Code != http.StatusNotFound {
		t.Fatalf("expected failing lookup to read as not found, got %d", details.Code)
	}
}

type failingCatalog struct{}

var errCatalogDown = errors.New("catalog down")

func (failingCatalog) ListTrending(context.Context) ([]movies.Movie, error) { return nil, errCatalogDown }
func (failingCatalog) ListTopRated(context.Context) ([]movies.Movie, error) { return nil, errCatalogDown }
func (failingCatalog) ListByGenre(context.Context, int) ([]movies.Movie, error) {
	return nil, errCatalogDown
}
func (failingCatalog) Search(context.Context, string) ([]movies.Movie, error) {
	return nil, errCatalogDown
}
func (failingCatalog) GetByID(context.Context, int) (movies.Movie, bool, error) {
	return movies.Movie{}, false, errCatalogDown
}
func (failingCatalog) GetByCanonicalID(context.Context, string) (movies.Movie, bool, error) {
	return movies.Movie{}, false, errCatalogDown
}
func (failingCatalog) GetSimilar(context.Context, int) ([]movies.Movie, error) {
	return nil, errCatalogDown
}
func (failingCatalog) Titles(context.Context) ([]movies.Movie, error) { return nil, errCatalogDown }
func (failingCatalog) Genres(context.Context) ([]movies.Genre, error) { return nil, errCatalogDown }
