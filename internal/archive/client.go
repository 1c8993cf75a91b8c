// Package archive queries the ASMR archive API: keyword search and track
// trees, against a primary host with a mirror as fallback.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lepinkainen/editiondiff/internal/cache"
	"github.com/lepinkainen/editiondiff/internal/fetch"
)

const (
	defaultPrimaryURL = "https://api.asmr.one"
	defaultMirrorURL  = "https://api.asmr-200.com"

	primarySearchQuery = "page=1&order=release&sort=desc"
	mirrorSearchQuery  = "order=create_date&sort=desc&page=1&pageSize=20&subtitle=0&includeTranslationWorks=true"
)

var defaultHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0",
	"Accept":     "application/json",
}

// codePattern matches storefront product codes such as RJ01348345.
var codePattern = regexp.MustCompile(`(?i)^RJ\d+$`)

// IsCodeShaped reports whether keyword looks like a product code.
func IsCodeShaped(keyword string) bool {
	return codePattern.MatchString(strings.TrimSpace(keyword))
}

// Getter fetches a URL, optionally through the response cache.
type Getter interface {
	GetCached(ctx context.Context, table, rawURL string, headers map[string]string) (string, error)
	GetCachedWithTTL(ctx context.Context, table, rawURL string, headers map[string]string, ttlFor func(body string) time.Duration) (string, error)
}

// searchTTL keeps empty search answers only briefly, so newly indexed works
// show up without clearing the cache.
var searchTTL = cache.SelectNegativeCacheTTL(func(body string) bool {
	return len(gjson.Get(body, "works").Array()) == 0
})

// Client talks to the archive's primary and mirror hosts.
type Client struct {
	primaryURL string
	mirrorURL  string
	fetcher    Getter
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithPrimaryURL sets the base URL of the primary archive host.
func WithPrimaryURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.primaryURL = strings.TrimSuffix(base, "/")
		}
	}
}

// WithMirrorURL sets the base URL of the mirror archive host.
func WithMirrorURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.mirrorURL = strings.TrimSuffix(base, "/")
		}
	}
}

// NewClient creates an archive client that issues requests through fetcher.
func NewClient(fetcher Getter, opts ...Option) *Client {
	c := &Client{
		primaryURL: defaultPrimaryURL,
		mirrorURL:  defaultMirrorURL,
		fetcher:    fetcher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchResponse is a decoded search answer. Only "works" is read.
type SearchResponse map[string]any

// Works returns the result list, or nil when it is missing or not a list.
func (r SearchResponse) Works() []any {
	works, _ := r["works"].([]any)
	return works
}

// Search queries the primary host, page 1, newest releases first.
func (c *Client) Search(ctx context.Context, keyword string) (SearchResponse, error) {
	endpoint := fmt.Sprintf("%s/api/search/%s?%s", c.primaryURL, url.PathEscape(strings.TrimSpace(keyword)), primarySearchQuery)
	return c.search(ctx, endpoint)
}

// SearchMirror queries the mirror host, including translated works.
// The keyword is sent exactly as given.
func (c *Client) SearchMirror(ctx context.Context, keyword string) (SearchResponse, error) {
	endpoint := fmt.Sprintf("%s/api/search/%s?%s", c.mirrorURL, url.PathEscape(keyword), mirrorSearchQuery)
	return c.search(ctx, endpoint)
}

// SearchWithFallback searches the primary host and, when that finds nothing
// for a code-shaped keyword, the mirror with the keyword prefixed by a space.
// The mirror only matches codes reliably in that form.
func (c *Client) SearchWithFallback(ctx context.Context, keyword string) (SearchResponse, error) {
	normalized := strings.TrimSpace(keyword)

	res, err := c.Search(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if len(res.Works()) > 0 || !IsCodeShaped(normalized) {
		return res, nil
	}

	slog.Debug("Primary archive search empty, trying mirror", "keyword", normalized)
	return c.SearchMirror(ctx, " "+normalized)
}

func (c *Client) search(ctx context.Context, endpoint string) (SearchResponse, error) {
	body, err := c.fetcher.GetCachedWithTTL(ctx, cache.ArchiveTable, endpoint, defaultHeaders, searchTTL)
	if err != nil {
		return nil, fmt.Errorf("archive search: %w", err)
	}

	var res SearchResponse
	if err := fetch.DecodeJSON("archive search", body, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Tracks fetches the track tree of a work from the primary host, falling
// back to the mirror on any error. The mirror's error is returned if both fail.
func (c *Client) Tracks(ctx context.Context, workID string) (any, error) {
	id := url.PathEscape(strings.TrimSpace(workID))

	tree, err := c.tracksFrom(ctx, c.primaryURL, id)
	if err == nil {
		return tree, nil
	}

	slog.Debug("Primary archive tracks failed, trying mirror", "id", workID, "error", err)
	return c.tracksFrom(ctx, c.mirrorURL, id)
}

func (c *Client) tracksFrom(ctx context.Context, base, escapedID string) (any, error) {
	endpoint := fmt.Sprintf("%s/api/tracks/%s", base, escapedID)

	body, err := c.fetcher.GetCached(ctx, cache.ArchiveTable, endpoint, defaultHeaders)
	if err != nil {
		return nil, fmt.Errorf("archive tracks: %w", err)
	}

	var tree any
	if err := fetch.DecodeJSON("archive tracks", body, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}
