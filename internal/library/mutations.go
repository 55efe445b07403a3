package library

import (
	"fmt"
	"strings"
)

// PreferencesPatch carries a partial preference update. Nil fields are left unchanged.
type PreferencesPatch struct {
	FavoriteGenres *[]int  `json:"favoriteGenres,omitempty"`
	Language       *string `json:"language,omitempty"`
	DarkMode       *bool   `json:"darkMode,omitempty"`
	Notifications  *bool   `json:"notifications,omitempty"`
}

// ToggleFavorite removes key from the favorites when present, otherwise appends it.
func ToggleFavorite(lib UserLibrary, key MovieKey) UserLibrary {
	updated := lib.Clone()
	updated.Favorites = toggleKey(updated.Favorites, key)
	return updated
}

// ToggleWatchlist removes key from the watchlist when present, otherwise appends it.
func ToggleWatchlist(lib UserLibrary, key MovieKey) UserLibrary {
	updated := lib.Clone()
	updated.Watchlist = toggleKey(updated.Watchlist, key)
	return updated
}

// SetRating stores rating for key. Out-of-range ratings are rejected and lib is returned unchanged.
func SetRating(lib UserLibrary, key MovieKey, rating int) (UserLibrary, error) {
	if !validRating(rating) {
		return lib, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidRating, rating, MinRating, MaxRating)
	}
	updated := lib.Clone()
	updated.Ratings[key] = rating
	return updated, nil
}

// ApplyPreferences merges patch over prefs after validating it.
func ApplyPreferences(prefs Preferences, patch PreferencesPatch) (Preferences, error) {
	updated := prefs.clone()
	if patch.FavoriteGenres != nil {
		genres, err := normalizeGenres(*patch.FavoriteGenres)
		if err != nil {
			return prefs, err
		}
		updated.FavoriteGenres = genres
	}
	if patch.Language != nil {
		language := strings.ToLower(strings.TrimSpace(*patch.Language))
		if !validLanguage(language) {
			return prefs, fmt.Errorf("%w: language %q", ErrInvalidPreferences, *patch.Language)
		}
		updated.Language = language
	}
	if patch.DarkMode != nil {
		updated.DarkMode = *patch.DarkMode
	}
	if patch.Notifications != nil {
		updated.Notifications = *patch.Notifications
	}
	return updated, nil
}

// RecentlyAdded returns keys newest first.
func RecentlyAdded(keys []MovieKey) []MovieKey {
	reversed := make([]MovieKey, len(keys))
	for index, key := range keys {
		reversed[len(keys)-1-index] = key
	}
	return reversed
}

func toggleKey(keys []MovieKey, key MovieKey) []MovieKey {
	position := indexOf(keys, key)
	if position < 0 {
		return append(keys, key)
	}
	remaining := make([]MovieKey, 0, len(keys)-1)
	remaining = append(remaining, keys[:position]...)
	return append(remaining, keys[position+1:]...)
}

func normalizeGenres(genres []int) ([]int, error) {
	if len(genres) > maxFavoriteGenreIDs {
		return nil, fmt.Errorf("%w: more than %d genres", ErrInvalidPreferences, maxFavoriteGenreIDs)
	}
	seen := make(map[int]struct{}, len(genres))
	normalized := make([]int, 0, len(genres))
	for _, genre := range genres {
		if genre <= 0 {
			return nil, fmt.Errorf("%w: genre id %d", ErrInvalidPreferences, genre)
		}
		if _, dup := seen[genre]; dup {
			continue
		}
		seen[genre] = struct{}{}
		normalized = append(normalized, genre)
	}
	return normalized, nil
}

// validLanguage accepts two-letter ISO 639-1 codes.
func validLanguage(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
