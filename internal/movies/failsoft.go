package movies

import (
	"context"

	"go.uber.org/zap"
)

// FailSoft wraps a Catalog so that every failure degrades to an empty result or a miss.
type FailSoft struct {
	catalog Catalog
	logger  *zap.Logger
}

// NewFailSoft wraps catalog. A nil logger discards failure logs.
func NewFailSoft(catalog Catalog, logger *zap.Logger) *FailSoft {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailSoft{catalog: catalog, logger: logger}
}

// Source exposes the wrapped catalog.
func (f *FailSoft) Source() Catalog {
	return f.catalog
}

func (f *FailSoft) ListTrending(ctx context.Context) []Movie {
	list, err := f.catalog.ListTrending(ctx)
	return f.movies("list_trending", list, err)
}

func (f *FailSoft) ListTopRated(ctx context.Context) []Movie {
	list, err := f.catalog.ListTopRated(ctx)
	return f.movies("list_top_rated", list, err)
}

func (f *FailSoft) ListByGenre(ctx context.Context, genreID int) []Movie {
	list, err := f.catalog.ListByGenre(ctx, genreID)
	return f.movies("list_by_genre", list, err)
}

func (f *FailSoft) Search(ctx context.Context, query string) []Movie {
	list, err := f.catalog.Search(ctx, query)
	return f.movies("search", list, err)
}

func (f *FailSoft) GetSimilar(ctx context.Context, id int) []Movie {
	list, err := f.catalog.GetSimilar(ctx, id)
	return f.movies("get_similar", list, err)
}

func (f *FailSoft) Titles(ctx context.Context) []Movie {
	list, err := f.catalog.Titles(ctx)
	return f.movies("titles", list, err)
}

func (f *FailSoft) GetByID(ctx context.Context, id int) (Movie, bool) {
	movie, found, err := f.catalog.GetByID(ctx, id)
	if err != nil {
		f.logFailure("get_by_id", err)
		return Movie{}, false
	}
	return movie, found
}

func (f *FailSoft) GetByCanonicalID(ctx context.Context, canonicalID string) (Movie, bool) {
	movie, found, err := f.catalog.GetByCanonicalID(ctx, canonicalID)
	if err != nil {
		f.logFailure("get_by_canonical_id", err)
		return Movie{}, false
	}
	return movie, found
}

func (f *FailSoft) Genres(ctx context.Context) []Genre {
	genres, err := f.catalog.Genres(ctx)
	if err != nil {
		f.logFailure("genres", err)
		return []Genre{}
	}
	if genres == nil {
		return []Genre{}
	}
	return genres
}

func (f *FailSoft) movies(operation string, list []Movie, err error) []Movie {
	if err != nil {
		f.logFailure(operation, err)
		return []Movie{}
	}
	if list == nil {
		return []Movie{}
	}
	return list
}

func (f *FailSoft) logFailure(operation string, err error) {
	f.logger.Warn("catalog request failed", zap.String("operation", operation), zap.Error(err))
}
