package lookup

import (
	"context"
	"strings"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/movies"
	"go.uber.org/zap"
)

// Resolver finds catalog movies by route identifier.
type Resolver struct {
	catalog movies.Catalog
	logger  *zap.Logger
}

// NewResolver builds a Resolver over catalog.
func NewResolver(catalog movies.Catalog, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, logger: logger}
}

// Resolve returns the movie raw identifies. Rules apply in priority order and a canonical
// or catalog id that misses is retried as a title. Catalog failures are reported as a miss.
func (r *Resolver) Resolve(ctx context.Context, raw string) (movies.Movie, bool) {
	return r.ResolveIdentifier(ctx, ParseIdentifier(raw))
}

// ResolveIdentifier resolves an already parsed identifier.
func (r *Resolver) ResolveIdentifier(ctx context.Context, id Identifier) (movies.Movie, bool) {
	var (
		movie movies.Movie
		found bool
		err   error
	)
	switch id.Kind {
	case KindCanonical:
		movie, found, err = r.catalog.GetByCanonicalID(ctx, id.Canonical)
	case KindCatalog:
		movie, found, err = r.catalog.GetByID(ctx, id.CatalogID)
	}
	// Id misses fall through to the title rule.
	if err == nil && !found {
		title := id.Title
		if id.Kind != KindTitle {
			title = decodeTitle(strings.TrimSpace(id.Raw))
		}
		movie, found, err = r.byTitle(ctx, title)
	}
	if err != nil {
		r.logger.Warn("movie lookup failed",
			zap.String("identifier", id.Raw),
			zap.String("kind", id.Kind.String()),
			zap.Error(err),
		)
		return movies.Movie{}, false
	}
	return movie, found
}

func (r *Resolver) byTitle(ctx context.Context, title string) (movies.Movie, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(title))
	if needle == "" {
		return movies.Movie{}, false, nil
	}
	candidates, err := r.catalog.Titles(ctx)
	if err != nil {
		return movies.Movie{}, false, err
	}
	for _, candidate := range candidates {
		if strings.Contains(strings.ToLower(candidate.Title), needle) {
			return candidate, true, nil
		}
	}
	return movies.Movie{}, false, nil
}
