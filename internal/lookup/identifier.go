// Package lookup turns the identifier found in a movie URL into a catalog movie.
package lookup

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags which rule an identifier matched.
type Kind int

const (
	// KindTitle is the fallback: free text compared against titles.
	KindTitle Kind = iota
	// KindCanonical is a tt-prefixed external id.
	KindCanonical
	// KindCatalog is a numeric catalog id, prefixed or bare.
	KindCatalog
)

func (k Kind) String() string {
	switch k {
	case KindCanonical:
		return "canonical"
	case KindCatalog:
		return "catalog"
	default:
		return "title"
	}
}

var (
	canonicalPattern  = regexp.MustCompile(`^tt\d+$`)
	prefixedPattern   = regexp.MustCompile(`(?i)^(?:catalog|tmdb):(\d+)$`)
	bareDigitsPattern = regexp.MustCompile(`^\d+$`)
)

// Identifier is the parsed form of a raw route identifier. Exactly one of
// Canonical, CatalogID and Title is meaningful, selected by Kind.
type Identifier struct {
	Kind      Kind
	Raw       string
	Canonical string
	CatalogID int
	Title     string
}

// ParseIdentifier classifies raw. Rules apply in priority order: canonical,
// prefixed catalog id, bare digits, title.
func ParseIdentifier(raw string) Identifier {
	trimmed := strings.TrimSpace(raw)
	switch {
	case canonicalPattern.MatchString(trimmed):
		return Identifier{Kind: KindCanonical, Raw: raw, Canonical: trimmed}
	case prefixedPattern.MatchString(trimmed):
		digits := prefixedPattern.FindStringSubmatch(trimmed)[1]
		return Identifier{Kind: KindCatalog, Raw: raw, CatalogID: parseCatalogID(digits)}
	case bareDigitsPattern.MatchString(trimmed):
		return Identifier{Kind: KindCatalog, Raw: raw, CatalogID: parseCatalogID(trimmed)}
	default:
		return Identifier{Kind: KindTitle, Raw: raw, Title: decodeTitle(trimmed)}
	}
}

// parseCatalogID returns 0 for digit strings that overflow an int. No catalog movie has id 0.
func parseCatalogID(digits string) int {
	id, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return id
}

func decodeTitle(raw string) string {
	spaced := strings.ReplaceAll(raw, "-", " ")
	decoded, err := url.PathUnescape(spaced)
	if err != nil {
		return spaced
	}
	return decoded
}
