// Package movies holds catalog reference data and the ways the app lists it.
package movies

import (
	"strconv"
	"strings"
	"time"
)

const releaseDateLayout = "2006-01-02"

// Genre is a catalog genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CastMember is a credited actor.
type CastMember struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
	Order       int     `json:"order"`
}

// Video is a trailer or clip hosted elsewhere.
type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// Movie is immutable catalog reference data.
type Movie struct {
	ID           int          `json:"id"`
	ImdbID       string       `json:"imdb_id,omitempty"`
	Title        string       `json:"title"`
	Overview     string       `json:"overview"`
	PosterPath   string       `json:"poster_path"`
	BackdropPath string       `json:"backdrop_path"`
	ReleaseDate  string       `json:"release_date"`
	VoteAverage  float64      `json:"vote_average"`
	VoteCount    int          `json:"vote_count"`
	GenreIDs     []int        `json:"genre_ids"`
	Popularity   float64      `json:"popularity"`
	Runtime      int          `json:"runtime,omitempty"`
	Tagline      string       `json:"tagline,omitempty"`
	Cast         []CastMember `json:"cast,omitempty"`
	Videos       []Video      `json:"videos,omitempty"`

	// Derived presentation fields, filled by WithImages.
	RouteID     string `json:"route_id,omitempty"`
	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`
}

// CanonicalID returns the external tt-prefixed id when the movie has one.
func (m Movie) CanonicalID() (string, bool) {
	if strings.HasPrefix(m.ImdbID, "tt") {
		return m.ImdbID, true
	}
	return "", false
}

// Route returns the identifier used in links: the canonical id when known, else the catalog id.
func (m Movie) Route() string {
	if canonical, ok := m.CanonicalID(); ok {
		return canonical
	}
	return strconv.Itoa(m.ID)
}

// HasGenre reports whether the movie is tagged with genreID.
func (m Movie) HasGenre(genreID int) bool {
	for _, id := range m.GenreIDs {
		if id == genreID {
			return true
		}
	}
	return false
}

// SharesGenre reports whether the movies have at least one genre in common.
func (m Movie) SharesGenre(other Movie) bool {
	for _, id := range other.GenreIDs {
		if m.HasGenre(id) {
			return true
		}
	}
	return false
}

// ReleaseYear returns the year of the release date, or 0 when unknown.
func (m Movie) ReleaseYear() int {
	released, err := time.Parse(releaseDateLayout, m.ReleaseDate)
	if err != nil {
		return 0
	}
	return released.Year()
}

func (m Movie) releaseTime() time.Time {
	released, err := time.Parse(releaseDateLayout, m.ReleaseDate)
	if err != nil {
		return time.Time{}
	}
	return released
}
