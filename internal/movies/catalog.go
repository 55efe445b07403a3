package movies

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	trendingLimit = 10
	topRatedLimit = 10
	similarLimit  = 6
)

// ErrInvalidDataset indicates the catalog document could not be decoded.
var ErrInvalidDataset = errors.New("movies: invalid catalog dataset")

//go:embed catalog.json
var embeddedDataset []byte

// Catalog is the read-only source of movie reference data.
type Catalog interface {
	ListTrending(ctx context.Context) ([]Movie, error)
	ListTopRated(ctx context.Context) ([]Movie, error)
	ListByGenre(ctx context.Context, genreID int) ([]Movie, error)
	Search(ctx context.Context, query string) ([]Movie, error)
	GetByID(ctx context.Context, id int) (Movie, bool, error)
	GetByCanonicalID(ctx context.Context, canonicalID string) (Movie, bool, error)
	GetSimilar(ctx context.Context, id int) ([]Movie, error)
	Titles(ctx context.Context) ([]Movie, error)
	Genres(ctx context.Context) ([]Genre, error)
}

type dataset struct {
	Genres []Genre `json:"genres"`
	Movies []Movie `json:"movies"`
}

// MemoryCatalog serves a fixed dataset held in memory.
type MemoryCatalog struct {
	movies []Movie
	genres []Genre
}

// NewMemoryCatalog builds a catalog over the provided movies and genres.
func NewMemoryCatalog(movieList []Movie, genreList []Genre) *MemoryCatalog {
	return &MemoryCatalog{
		movies: append([]Movie(nil), movieList...),
		genres: append([]Genre(nil), genreList...),
	}
}

// LoadEmbeddedCatalog decodes the bundled mock dataset.
func LoadEmbeddedCatalog() (*MemoryCatalog, error) {
	return ParseCatalog(embeddedDataset)
}

// ParseCatalog decodes a {"genres": [...], "movies": [...]} document.
func ParseCatalog(raw []byte) (*MemoryCatalog, error) {
	var doc dataset
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return NewMemoryCatalog(doc.Movies, doc.Genres), nil
}

func (c *MemoryCatalog) ListTrending(ctx context.Context) ([]Movie, error) {
	ranked := c.snapshot()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Popularity > ranked[j].Popularity
	})
	return limit(ranked, trendingLimit), nil
}

func (c *MemoryCatalog) ListTopRated(ctx context.Context) ([]Movie, error) {
	ranked := c.snapshot()
	sortByVoteAverage(ranked)
	return limit(ranked, topRatedLimit), nil
}

func (c *MemoryCatalog) ListByGenre(ctx context.Context, genreID int) ([]Movie, error) {
	matches := make([]Movie, 0)
	for _, movie := range c.movies {
		if movie.HasGenre(genreID) {
			matches = append(matches, movie)
		}
	}
	sortByVoteAverage(matches)
	return matches, nil
}

// Search matches the query case-insensitively against title or overview.
func (c *MemoryCatalog) Search(ctx context.Context, query string) ([]Movie, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	matches := make([]Movie, 0)
	if needle == "" {
		return matches, nil
	}
	for _, movie := range c.movies {
		if strings.Contains(strings.ToLower(movie.Title), needle) ||
			strings.Contains(strings.ToLower(movie.Overview), needle) {
			matches = append(matches, movie)
		}
	}
	return matches, nil
}

func (c *MemoryCatalog) GetByID(ctx context.Context, id int) (Movie, bool, error) {
	for _, movie := range c.movies {
		if movie.ID == id {
			return movie, true, nil
		}
	}
	return Movie{}, false, nil
}

func (c *MemoryCatalog) GetByCanonicalID(ctx context.Context, canonicalID string) (Movie, bool, error) {
	for _, movie := range c.movies {
		if movie.ImdbID == canonicalID {
			return movie, true, nil
		}
	}
	return Movie{}, false, nil
}

// GetSimilar returns movies sharing a genre with id, in catalog order.
func (c *MemoryCatalog) GetSimilar(ctx context.Context, id int) ([]Movie, error) {
	similar := make([]Movie, 0)
	source, found, _ := c.GetByID(ctx, id)
	if !found {
		return similar, nil
	}
	for _, movie := range c.movies {
		if movie.ID == source.ID || !movie.SharesGenre(source) {
			continue
		}
		similar = append(similar, movie)
		if len(similar) == similarLimit {
			break
		}
	}
	return similar, nil
}

func (c *MemoryCatalog) Titles(ctx context.Context) ([]Movie, error) {
	return c.snapshot(), nil
}

func (c *MemoryCatalog) Genres(ctx context.Context) ([]Genre, error) {
	return append([]Genre(nil), c.genres...), nil
}

func (c *MemoryCatalog) snapshot() []Movie {
	return append([]Movie(nil), c.movies...)
}

func sortByVoteAverage(list []Movie) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].VoteAverage > list[j].VoteAverage
	})
}

func limit(list []Movie, max int) []Movie {
	if len(list) > max {
		return list[:max]
	}
	return list
}
