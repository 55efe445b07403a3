// Package library models a profile's favorites, watchlist, ratings and preferences.
package library

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MinRating is the lowest accepted rating value.
	MinRating = 1
	// MaxRating is the highest accepted rating value.
	MaxRating = 5

	defaultLanguage     = "en"
	maxMovieKeyLength   = 190
	maxFavoriteGenreIDs = 64
)

var (
	// ErrInvalidMovieKey indicates an empty or oversized movie identifier.
	ErrInvalidMovieKey = errors.New("library: invalid movie key")
	// ErrInvalidRating indicates a rating outside [MinRating, MaxRating].
	ErrInvalidRating = errors.New("library: invalid rating")
	// ErrInvalidPreferences indicates a preference update with unusable values.
	ErrInvalidPreferences = errors.New("library: invalid preferences")
	// ErrInvalidImport indicates an imported document that does not describe a library.
	ErrInvalidImport = errors.New("library: invalid import")
)

// MovieKey references a movie from a library collection. Keys compare by exact string value.
type MovieKey string

// NewMovieKey trims and validates a raw identifier.
func NewMovieKey(raw string) (MovieKey, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidMovieKey)
	}
	if len(trimmed) > maxMovieKeyLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidMovieKey, maxMovieKeyLength)
	}
	return MovieKey(trimmed), nil
}

// String returns the underlying identifier.
func (k MovieKey) String() string {
	return string(k)
}

// Preferences captures account and theme settings.
type Preferences struct {
	FavoriteGenres []int  `json:"favoriteGenres"`
	Language       string `json:"language"`
	DarkMode       bool   `json:"darkMode"`
	Notifications  bool   `json:"notifications"`
}

// UserLibrary is the persisted aggregate for one profile.
// Favorites and Watchlist hold unique keys in insertion order, oldest first.
type UserLibrary struct {
	Favorites   []MovieKey       `json:"favorites"`
	Watchlist   []MovieKey       `json:"watchlist"`
	Ratings     map[MovieKey]int `json:"ratings"`
	Preferences Preferences      `json:"preferences"`
}

// DefaultPreferences returns the preferences of a fresh profile.
func DefaultPreferences() Preferences {
	return Preferences{
		FavoriteGenres: []int{},
		Language:       defaultLanguage,
		DarkMode:       true,
		Notifications:  true,
	}
}

// Defaults returns an empty library with default preferences.
func Defaults() UserLibrary {
	return UserLibrary{
		Favorites:   []MovieKey{},
		Watchlist:   []MovieKey{},
		Ratings:     map[MovieKey]int{},
		Preferences: DefaultPreferences(),
	}
}

// Clone returns a deep copy.
func (l UserLibrary) Clone() UserLibrary {
	ratings := make(map[MovieKey]int, len(l.Ratings))
	for key, value := range l.Ratings {
		ratings[key] = value
	}
	return UserLibrary{
		Favorites:   cloneKeys(l.Favorites),
		Watchlist:   cloneKeys(l.Watchlist),
		Ratings:     ratings,
		Preferences: l.Preferences.clone(),
	}
}

// IsFavorite reports whether key is in the favorites.
func (l UserLibrary) IsFavorite(key MovieKey) bool {
	return indexOf(l.Favorites, key) >= 0
}

// InWatchlist reports whether key is in the watchlist.
func (l UserLibrary) InWatchlist(key MovieKey) bool {
	return indexOf(l.Watchlist, key) >= 0
}

// Rating returns the stored rating for key.
func (l UserLibrary) Rating(key MovieKey) (int, bool) {
	value, ok := l.Ratings[key]
	return value, ok
}

func (p Preferences) clone() Preferences {
	copied := p
	copied.FavoriteGenres = append([]int{}, p.FavoriteGenres...)
	return copied
}

func cloneKeys(keys []MovieKey) []MovieKey {
	return append([]MovieKey{}, keys...)
}

func indexOf(keys []MovieKey, key MovieKey) int {
	for index, candidate := range keys {
		if candidate == key {
			return index
		}
	}
	return -1
}

func validRating(value int) bool {
	return value >= MinRating && value <= MaxRating
}
