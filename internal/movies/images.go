package movies

import "strings"

const (
	imageBaseURL        = "https://image.tmdb.org/t/p/"
	defaultPosterSize   = "w500"
	posterPlaceholder   = "/placeholder.jpg"
	backdropPlaceholder = "/placeholder-backdrop.jpg"
)

// PosterURL builds the poster image URL for a relative path. Absolute URLs pass through.
func PosterURL(path, size string) string {
	if path == "" {
		return posterPlaceholder
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	if size == "" {
		size = defaultPosterSize
	}
	return imageBaseURL + size + path
}

// BackdropURL builds the full-size backdrop URL for a relative path.
func BackdropURL(path string) string {
	if path == "" {
		return backdropPlaceholder
	}
	if strings.HasPrefix(path, "http") {
		return path
	}
	return imageBaseURL + "original" + path
}

// WithImages returns copies of list with route and image URLs filled in.
func WithImages(list []Movie) []Movie {
	decorated := make([]Movie, len(list))
	for index, movie := range list {
		decorated[index] = movie.WithImages()
	}
	return decorated
}

// WithImages returns a copy of m with route and image URLs filled in.
func (m Movie) WithImages() Movie {
	m.RouteID = m.Route()
	m.PosterURL = PosterURL(m.PosterPath, defaultPosterSize)
	m.BackdropURL = BackdropURL(m.BackdropPath)
	return m
}
