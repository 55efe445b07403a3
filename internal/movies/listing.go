package movies

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey orders a personal movie list.
type SortKey string

const (
	SortAddedDate   SortKey = "added_date"
	SortRating      SortKey = "rating"
	SortReleaseDate SortKey = "release_date"
	SortTitle       SortKey = "title"
	SortRuntime     SortKey = "runtime"
)

// Filter narrows a personal movie list.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterRecent      Filter = "recent"
	FilterClassic     Filter = "classic"
	FilterHighlyRated Filter = "highly_rated"
	FilterShort       Filter = "short"
	FilterLong        Filter = "long"
)

const (
	highlyRatedThreshold = 8.0
	classicAgeYears      = 20
	shortRuntimeMinutes  = 120
	longRuntimeMinutes   = 150
)

var (
	// ErrUnsupportedSort indicates the sort key is not offered for the list.
	ErrUnsupportedSort = errors.New("movies: unsupported sort")
	// ErrUnsupportedFilter indicates the filter is not offered for the list.
	ErrUnsupportedFilter = errors.New("movies: unsupported filter")
)

// ListKind describes which sorts and filters a personal list offers.
type ListKind struct {
	Name              string
	Sorts             []SortKey
	Filters           []Filter
	RecentWithinYears int
}

var (
	// FavoritesList is the favorites page configuration.
	FavoritesList = ListKind{
		Name:              "favorites",
		Sorts:             []SortKey{SortAddedDate, SortRating, SortReleaseDate, SortTitle},
		Filters:           []Filter{FilterAll, FilterRecent, FilterClassic, FilterHighlyRated},
		RecentWithinYears: 5,
	}
	// WatchlistList is the watchlist page configuration.
	WatchlistList = ListKind{
		Name:              "watchlist",
		Sorts:             []SortKey{SortAddedDate, SortRating, SortReleaseDate, SortTitle, SortRuntime},
		Filters:           []Filter{FilterAll, FilterRecent, FilterShort, FilterLong, FilterHighlyRated},
		RecentWithinYears: 3,
	}
)

// ListOptions selects the ordering and narrowing of a list.
type ListOptions struct {
	Sort   SortKey
	Filter Filter
}

// ParseListOptions validates raw query values against kind. Blank values take the defaults.
func (kind ListKind) ParseListOptions(rawSort, rawFilter string) (ListOptions, error) {
	options := ListOptions{Sort: SortAddedDate, Filter: FilterAll}
	if value := strings.TrimSpace(rawSort); value != "" {
		options.Sort = SortKey(value)
	}
	if value := strings.TrimSpace(rawFilter); value != "" {
		options.Filter = Filter(value)
	}
	if !containsSort(kind.Sorts, options.Sort) {
		return ListOptions{}, fmt.Errorf("%w: %q for %s", ErrUnsupportedSort, options.Sort, kind.Name)
	}
	if !containsFilter(kind.Filters, options.Filter) {
		return ListOptions{}, fmt.Errorf("%w: %q for %s", ErrUnsupportedFilter, options.Filter, kind.Name)
	}
	return options, nil
}

// Arrange filters and sorts list. The input is expected in storage order.
func (kind ListKind) Arrange(list []Movie, options ListOptions, now time.Time) []Movie {
	filtered := kind.filter(list, options.Filter, now.Year())
	return sortMovies(filtered, options.Sort)
}

func (kind ListKind) filter(list []Movie, filter Filter, currentYear int) []Movie {
	kept := make([]Movie, 0, len(list))
	for _, movie := range list {
		age := currentYear - movie.ReleaseYear()
		var keep bool
		switch filter {
		case FilterRecent:
			keep = age <= kind.RecentWithinYears
		case FilterClassic:
			keep = age > classicAgeYears
		case FilterHighlyRated:
			keep = movie.VoteAverage >= highlyRatedThreshold
		case FilterShort:
			keep = movie.Runtime <= shortRuntimeMinutes
		case FilterLong:
			keep = movie.Runtime > longRuntimeMinutes
		default:
			keep = true
		}
		if keep {
			kept = append(kept, movie)
		}
	}
	return kept
}

func sortMovies(list []Movie, key SortKey) []Movie {
	sorted := append(make([]Movie, 0, len(list)), list...)
	switch key {
	case SortAddedDate:
		for left, right := 0, len(sorted)-1; left < right; left, right = left+1, right-1 {
			sorted[left], sorted[right] = sorted[right], sorted[left]
		}
	case SortRating:
		sortByVoteAverage(sorted)
	case SortReleaseDate:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].releaseTime().After(sorted[j].releaseTime())
		})
	case SortTitle:
		collator := collate.New(language.English)
		sort.SliceStable(sorted, func(i, j int) bool {
			return collator.CompareString(sorted[i].Title, sorted[j].Title) < 0
		})
	case SortRuntime:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Runtime < sorted[j].Runtime
		})
	}
	return sorted
}

// RuntimeSummary totals the runtime of a list.
type RuntimeSummary struct {
	Count        int `json:"count"`
	TotalMinutes int `json:"total_minutes"`
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
}

// SummarizeRuntime adds up runtimes. Unknown runtimes count as zero.
func SummarizeRuntime(list []Movie) RuntimeSummary {
	total := 0
	for _, movie := range list {
		total += movie.Runtime
	}
	return RuntimeSummary{
		Count:        len(list),
		TotalMinutes: total,
		Hours:        total / 60,
		Minutes:      total % 60,
	}
}

func containsSort(keys []SortKey, key SortKey) bool {
	for _, candidate := range keys {
		if candidate == key {
			return true
		}
	}
	return false
}

func containsFilter(filters []Filter, filter Filter) bool {
	for _, candidate := range filters {
		if candidate == filter {
			return true
		}
	}
	return false
}
