package movies

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

const (
	defaultSuggestionLimit = 5
	maxTypoDistance        = 3
)

// Suggest ranks titles that loosely match query. Subsequence matches rank first,
// then titles within a small edit distance of the query.
func Suggest(query string, candidates []Movie, max int) []Movie {
	needle := strings.ToLower(strings.TrimSpace(query))
	suggestions := make([]Movie, 0)
	if needle == "" || len(candidates) == 0 {
		return suggestions
	}
	if max <= 0 {
		max = defaultSuggestionLimit
	}

	titles := make([]string, len(candidates))
	for index, movie := range candidates {
		titles[index] = movie.Title
	}

	type scored struct {
		index int
		score int
	}
	seen := make(map[int]struct{}, len(candidates))
	ranked := make([]scored, 0, len(candidates))

	for _, match := range fuzzy.RankFindFold(needle, titles) {
		seen[match.OriginalIndex] = struct{}{}
		ranked = append(ranked, scored{index: match.OriginalIndex, score: match.Distance})
	}
	for index, title := range titles {
		if _, ok := seen[index]; ok {
			continue
		}
		distance := fuzzy.LevenshteinDistance(needle, strings.ToLower(title))
		if distance <= maxTypoDistance {
			// Typo matches sort behind any subsequence match.
			ranked = append(ranked, scored{index: index, score: len(title) + distance})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})
	for _, entry := range ranked {
		suggestions = append(suggestions, candidates[entry.index])
		if len(suggestions) == max {
			break
		}
	}
	return suggestions
}
