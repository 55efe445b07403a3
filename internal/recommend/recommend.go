// Package recommend picks catalog movies a profile has not engaged with yet.
package recommend

import (
	"sort"
	"strconv"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/library"
	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
)

const (
	// Limit caps the number of recommendations.
	Limit = 12
	// FallbackMinimumVote is the vote average required when no favourite genres are set.
	FallbackMinimumVote = 7.0
)

// For returns up to Limit movies from candidates, best rated first.
// Movies the library already favourites or rates are skipped. A movie counts as
// engaged when either its catalog id or its canonical id is the library key.
func For(lib library.UserLibrary, candidates []movies.Movie) []movies.Movie {
	favorited := make(map[string]struct{}, len(lib.Favorites))
	for _, key := range lib.Favorites {
		favorited[key.String()] = struct{}{}
	}
	rated := make(map[string]struct{}, len(lib.Ratings))
	for key := range lib.Ratings {
		rated[key.String()] = struct{}{}
	}
	genres := make(map[int]struct{}, len(lib.Preferences.FavoriteGenres))
	for _, genreID := range lib.Preferences.FavoriteGenres {
		genres[genreID] = struct{}{}
	}

	picked := make([]movies.Movie, 0, Limit)
	for _, movie := range candidates {
		if engaged(movie, favorited) || engaged(movie, rated) {
			continue
		}
		if len(genres) > 0 {
			if !sharesGenre(movie, genres) {
				continue
			}
		} else if movie.VoteAverage < FallbackMinimumVote {
			continue
		}
		picked = append(picked, movie)
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].VoteAverage > picked[j].VoteAverage
	})
	if len(picked) > Limit {
		picked = picked[:Limit]
	}
	return picked
}

func engaged(movie movies.Movie, keys map[string]struct{}) bool {
	if _, ok := keys[strconv.Itoa(movie.ID)]; ok {
		return true
	}
	if canonical, ok := movie.CanonicalID(); ok {
		if _, ok := keys[canonical]; ok {
			return true
		}
	}
	return false
}

func sharesGenre(movie movies.Movie, genres map[int]struct{}) bool {
	for _, genreID := range movie.GenreIDs {
		if _, ok := genres[genreID]; ok {
			return true
		}
	}
	return false
}
