package movies

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultProxyTimeout = 5 * time.Second

var (
	errMissingProxyURL = errors.New("proxy base url required")
	// ErrInvalidProxyConfig indicates the proxy catalog cannot be constructed.
	ErrInvalidProxyConfig = errors.New("movies: invalid proxy catalog config")
	// ErrProxyStatus indicates the proxy answered with an unexpected status.
	ErrProxyStatus = errors.New("movies: unexpected proxy status")
)

// ProxyConfig configures a ProxyCatalog.
type ProxyConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// ProxyCatalog reads catalog data from a thin JSON proxy API.
type ProxyCatalog struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewProxyCatalog validates cfg and returns a proxy-backed catalog.
func NewProxyCatalog(cfg ProxyConfig) (*ProxyCatalog, error) {
	rawURL := strings.TrimSpace(cfg.BaseURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxyConfig, errMissingProxyURL)
	}
	baseURL, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidProxyConfig, rawURL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultProxyTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &ProxyCatalog{baseURL: baseURL, httpClient: httpClient}, nil
}

func (p *ProxyCatalog) ListTrending(ctx context.Context) ([]Movie, error) {
	return p.fetchList(ctx, "/movies/trending", nil)
}

func (p *ProxyCatalog) ListTopRated(ctx context.Context) ([]Movie, error) {
	return p.fetchList(ctx, "/movies/top-rated", nil)
}

func (p *ProxyCatalog) ListByGenre(ctx context.Context, genreID int) ([]Movie, error) {
	return p.fetchList(ctx, "/movies/genre/"+strconv.Itoa(genreID), nil)
}

func (p *ProxyCatalog) Search(ctx context.Context, query string) ([]Movie, error) {
	if strings.TrimSpace(query) == "" {
		return []Movie{}, nil
	}
	return p.fetchList(ctx, "/movies/search", url.Values{"q": {query}})
}

func (p *ProxyCatalog) GetByID(ctx context.Context, id int) (Movie, bool, error) {
	return p.fetchMovie(ctx, "/movies/"+strconv.Itoa(id))
}

func (p *ProxyCatalog) GetByCanonicalID(ctx context.Context, canonicalID string) (Movie, bool, error) {
	return p.fetchMovie(ctx, "/movies/external/"+url.PathEscape(canonicalID))
}

func (p *ProxyCatalog) GetSimilar(ctx context.Context, id int) ([]Movie, error) {
	return p.fetchList(ctx, "/movies/"+strconv.Itoa(id)+"/similar", nil)
}

func (p *ProxyCatalog) Titles(ctx context.Context) ([]Movie, error) {
	return p.fetchList(ctx, "/movies", nil)
}

func (p *ProxyCatalog) Genres(ctx context.Context) ([]Genre, error) {
	var genres []Genre
	if _, err := p.get(ctx, "/genres", nil, &genres); err != nil {
		return nil, err
	}
	return genres, nil
}

func (p *ProxyCatalog) fetchList(ctx context.Context, path string, query url.Values) ([]Movie, error) {
	var list []Movie
	if _, err := p.get(ctx, path, query, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *ProxyCatalog) fetchMovie(ctx context.Context, path string) (Movie, bool, error) {
	var movie Movie
	found, err := p.get(ctx, path, nil, &movie)
	if err != nil || !found {
		return Movie{}, false, err
	}
	return movie, true, nil
}

// get decodes the response body into dest. A 404 reports found=false without error.
func (p *ProxyCatalog) get(ctx context.Context, path string, query url.Values, dest any) (bool, error) {
	target := *p.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return false, fmt.Errorf("build proxy request: %w", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := p.httpClient.Do(request)
	if err != nil {
		return false, fmt.Errorf("proxy request %s: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if response.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: %s returned %d", ErrProxyStatus, path, response.StatusCode)
	}
	if err := json.NewDecoder(response.Body).Decode(dest); err != nil {
		return false, fmt.Errorf("decode proxy response %s: %w", path, err)
	}
	return true, nil
}
