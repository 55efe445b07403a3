// Package comments stores free-text, append-only comments per movie.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/MarcoPoloResearchLab/cinema/backend/internal/storage"
)

// DefaultAuthor replaces blank author names.
const DefaultAuthor = "Anonymous"

const (
	timestampLayout = "2006-01-02T15:04:05.000Z"
	maxTextLength   = 4000
	maxAuthorLength = 120
)

var (
	// ErrEmptyText indicates a comment whose text is blank after trimming.
	ErrEmptyText = errors.New("comments: text required")
	// ErrTextTooLong indicates a comment exceeding the stored length bound.
	ErrTextTooLong = errors.New("comments: text too long")
	// ErrMissingMovieKey indicates a blank movie identifier.
	ErrMissingMovieKey = errors.New("comments: movie key required")
)

// Comment is one stored comment. Field names follow the persisted document.
type Comment struct {
	ID        string `json:"id"`
	MovieID   string `json:"movieId"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// collection maps movie keys to comments, newest first.
type collection map[string][]Comment

// Config describes the dependencies of a Repository.
type Config struct {
	Store storage.Store
	Clock func() time.Time
}

// Repository reads and appends to the comments document of a profile.
type Repository struct {
	store storage.Store
	clock func() time.Time
	// mu serialises the read-modify-write of the shared document.
	mu sync.Mutex
}

// NewRepository constructs a Repository.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("comments: backing store required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Repository{store: cfg.Store, clock: clock}, nil
}

// List returns the comments for movieKey, newest first. It never returns nil.
func (r *Repository) List(ctx context.Context, profileID, movieKey string) []Comment {
	stored := r.load(ctx, profileID)[strings.TrimSpace(movieKey)]
	return append([]Comment{}, stored...)
}

// Add prepends a comment for movieKey and persists the whole document.
// Blank text is rejected with ErrEmptyText and nothing is stored.
func (r *Repository) Add(ctx context.Context, profileID, movieKey, author, text string) (Comment, error) {
	key := strings.TrimSpace(movieKey)
	if key == "" {
		return Comment{}, ErrMissingMovieKey
	}
	body := strings.TrimSpace(text)
	if body == "" {
		return Comment{}, ErrEmptyText
	}
	if len(body) > maxTextLength {
		return Comment{}, fmt.Errorf("%w: exceeds %d bytes", ErrTextTooLong, maxTextLength)
	}
	name := strings.TrimSpace(author)
	if name == "" {
		name = DefaultAuthor
	}
	name = truncate(name, maxAuthorLength)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock().UTC()
	all := r.load(ctx, profileID)
	comment := Comment{
		ID:        uniqueID(all[key], fmt.Sprintf("%s-%d", key, now.UnixMilli())),
		MovieID:   key,
		Author:    name,
		Text:      body,
		CreatedAt: now.Format(timestampLayout),
	}

	all[key] = append([]Comment{comment}, all[key]...)
	storage.WriteJSON(ctx, r.store, profileID, storage.KeyComments, all)
	return comment, nil
}

// Count returns the number of comments stored for movieKey.
func (r *Repository) Count(ctx context.Context, profileID, movieKey string) int {
	return len(r.load(ctx, profileID)[strings.TrimSpace(movieKey)])
}

func (r *Repository) load(ctx context.Context, profileID string) collection {
	all := collection{}
	if !storage.ReadJSON(ctx, r.store, profileID, storage.KeyComments, &all) || all == nil {
		return collection{}
	}
	return all
}

// uniqueID suffixes base with -1, -2, ... until no stored comment uses it.
func uniqueID(existing []Comment, base string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, comment := range existing {
		taken[comment.ID] = struct{}{}
	}
	candidate := base
	for suffix := 1; ; suffix++ {
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

// truncate cuts value to at most limit bytes without splitting a rune.
func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
