package library

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Encode serialises lib deterministically: nil collections encode as empty and map keys are sorted.
func Encode(lib UserLibrary) []byte {
	encoded, err := json.Marshal(normalize(lib))
	if err != nil {
		// UserLibrary holds only strings, ints and bools.
		panic(fmt.Sprintf("library: encode: %v", err))
	}
	return encoded
}

// EncodeIndented serialises lib for download.
func EncodeIndented(lib UserLibrary) []byte {
	var buffer bytes.Buffer
	if err := json.Indent(&buffer, Encode(lib), "", "  "); err != nil {
		return Encode(lib)
	}
	return buffer.Bytes()
}

// Decode reads a stored document, substituting the default for every missing or malformed field.
// It never fails.
func Decode(raw []byte) UserLibrary {
	lib := Defaults()
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		return lib
	}
	if keys, err := decodeKeys(fields["favorites"], false); err == nil {
		lib.Favorites = keys
	}
	if keys, err := decodeKeys(fields["watchlist"], false); err == nil {
		lib.Watchlist = keys
	}
	if ratings, err := decodeRatings(fields["ratings"], false); err == nil {
		lib.Ratings = ratings
	}
	if prefs, err := decodePreferences(fields["preferences"], false); err == nil {
		lib.Preferences = prefs
	}
	return lib
}

// DecodeImport parses a user-supplied document. Unlike Decode it rejects, with ErrInvalidImport,
// anything that is not a JSON object or that carries a field of the wrong shape. Missing fields
// take their defaults.
func DecodeImport(raw []byte) (UserLibrary, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return UserLibrary{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if fields == nil {
		return UserLibrary{}, fmt.Errorf("%w: document is not an object", ErrInvalidImport)
	}

	lib := Defaults()
	var err error
	if lib.Favorites, err = decodeKeys(fields["favorites"], true); err != nil {
		return UserLibrary{}, fmt.Errorf("%w: favorites: %v", ErrInvalidImport, err)
	}
	if lib.Watchlist, err = decodeKeys(fields["watchlist"], true); err != nil {
		return UserLibrary{}, fmt.Errorf("%w: watchlist: %v", ErrInvalidImport, err)
	}
	if lib.Ratings, err = decodeRatings(fields["ratings"], true); err != nil {
		return UserLibrary{}, fmt.Errorf("%w: ratings: %v", ErrInvalidImport, err)
	}
	if lib.Preferences, err = decodePreferences(fields["preferences"], true); err != nil {
		return UserLibrary{}, fmt.Errorf("%w: preferences: %v", ErrInvalidImport, err)
	}
	return lib, nil
}

func normalize(lib UserLibrary) UserLibrary {
	normalized := lib
	if normalized.Favorites == nil {
		normalized.Favorites = []MovieKey{}
	}
	if normalized.Watchlist == nil {
		normalized.Watchlist = []MovieKey{}
	}
	if normalized.Ratings == nil {
		normalized.Ratings = map[MovieKey]int{}
	}
	if normalized.Preferences.FavoriteGenres == nil {
		normalized.Preferences.FavoriteGenres = []int{}
	}
	return normalized
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeKeys drops blank and duplicate entries in lenient mode and rejects them in strict mode.
func decodeKeys(raw json.RawMessage, strict bool) ([]MovieKey, error) {
	if isAbsent(raw) {
		return []MovieKey{}, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	keys := make([]MovieKey, 0, len(values))
	seen := make(map[MovieKey]struct{}, len(values))
	for _, value := range values {
		key, err := NewMovieKey(value)
		if err != nil {
			if strict {
				return nil, err
			}
			continue
		}
		if _, dup := seen[key]; dup {
			if strict {
				return nil, fmt.Errorf("duplicate key %q", key)
			}
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, nil
}

func decodeRatings(raw json.RawMessage, strict bool) (map[MovieKey]int, error) {
	ratings := map[MovieKey]int{}
	if isAbsent(raw) {
		return ratings, nil
	}
	var values map[string]int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	for rawKey, value := range values {
		key, err := NewMovieKey(rawKey)
		if err == nil && !validRating(value) {
			err = fmt.Errorf("%w: %d", ErrInvalidRating, value)
		}
		if err != nil {
			if strict {
				return nil, err
			}
			continue
		}
		ratings[key] = value
	}
	return ratings, nil
}

func decodePreferences(raw json.RawMessage, strict bool) (Preferences, error) {
	prefs := DefaultPreferences()
	if isAbsent(raw) {
		return prefs, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return prefs, err
	}
	if fields == nil {
		return prefs, fmt.Errorf("preferences is not an object")
	}

	var patch PreferencesPatch
	var genres []int
	if value, ok := fields["favoriteGenres"]; ok && !isAbsent(value) {
		if err := json.Unmarshal(value, &genres); err == nil {
			patch.FavoriteGenres = &genres
		} else if strict {
			return prefs, err
		}
	}
	var language string
	if value, ok := fields["language"]; ok && !isAbsent(value) {
		if err := json.Unmarshal(value, &language); err == nil && strings.TrimSpace(language) != "" {
			patch.Language = &language
		} else if strict {
			return prefs, fmt.Errorf("%w: language", ErrInvalidPreferences)
		}
	}
	var darkMode bool
	if value, ok := fields["darkMode"]; ok && !isAbsent(value) {
		if err := json.Unmarshal(value, &darkMode); err == nil {
			patch.DarkMode = &darkMode
		} else if strict {
			return prefs, err
		}
	}
	var notifications bool
	if value, ok := fields["notifications"]; ok && !isAbsent(value) {
		if err := json.Unmarshal(value, &notifications); err == nil {
			patch.Notifications = &notifications
		} else if strict {
			return prefs, err
		}
	}

	if strict {
		return ApplyPreferences(prefs, patch)
	}
	// Lenient mode applies each sub-field on its own so one bad value keeps the rest.
	for _, single := range splitPatch(patch) {
		if applied, err := ApplyPreferences(prefs, single); err == nil {
			prefs = applied
		}
	}
	return prefs, nil
}

func splitPatch(patch PreferencesPatch) []PreferencesPatch {
	return []PreferencesPatch{
		{FavoriteGenres: patch.FavoriteGenres},
		{Language: patch.Language},
		{DarkMode: patch.DarkMode},
		{Notifications: patch.Notifications},
	}
}
