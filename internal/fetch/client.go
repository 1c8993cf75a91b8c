// Package fetch issues the GET requests behind the storefront and archive
// clients: retries with linear backoff, per-host rate limiting, charset
// decoding and an optional response cache.
package fetch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lepinkainen/editiondiff/internal/ratelimit"
)

const (
	defaultTimeout       = 60 * time.Second
	defaultRetries       = 2
	defaultRatePerSecond = 0
	backoffStep          = 1500 * time.Millisecond
)

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Fetcher performs GET requests. It is not safe for concurrent use.
type Fetcher struct {
	httpClient    HTTPDoer
	timeout       time.Duration
	retries       int
	backoff       func(attempt int) time.Duration
	ratePerSecond int
	limiters      map[string]*ratelimit.Limiter
	useCache      bool
}

// New creates a Fetcher with a 60 second timeout and two retries.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		httpClient:    &http.Client{},
		timeout:       defaultTimeout,
		retries:       defaultRetries,
		backoff:       linearBackoff,
		ratePerSecond: defaultRatePerSecond,
		limiters:      make(map[string]*ratelimit.Limiter),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Option is a functional option for configuring the Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRetries sets how many times a failed request is retried.
// Zero means a single attempt.
func WithRetries(retries int) Option {
	return func(f *Fetcher) {
		if retries >= 0 {
			f.retries = retries
		}
	}
}

// WithBackoff replaces the delay function called between attempts.
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(f *Fetcher) {
		if backoff != nil {
			f.backoff = backoff
		}
	}
}

// WithRatePerSecond limits requests per host. Zero, the default, disables limiting.
func WithRatePerSecond(n int) Option {
	return func(f *Fetcher) {
		f.ratePerSecond = n
	}
}

// WithCache enables the SQLite response cache for GetCached.
func WithCache(enabled bool) Option {
	return func(f *Fetcher) {
		f.useCache = enabled
	}
}

// linearBackoff waits 1.5s after the first failure, 3s after the second, and so on.
func linearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * backoffStep
}

func (f *Fetcher) limiterFor(host string) *ratelimit.Limiter {
	if l, ok := f.limiters[host]; ok {
		return l
	}
	l := ratelimit.New(host, f.ratePerSecond)
	if l != nil {
		slog.Debug("Rate limiting host", "host", l.Name(), "requests_per_second", f.ratePerSecond)
	}
	f.limiters[host] = l
	return l
}
