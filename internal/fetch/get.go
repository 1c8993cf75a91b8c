package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lepinkainen/editiondiff/internal/cache"
	apperrors "github.com/lepinkainen/editiondiff/internal/errors"
)

// Get fetches rawURL and returns the decoded body.
// Every failure is retried until the retry budget is spent; the last failure
// is then returned wrapped in an *errors.FetchError.
func (f *Fetcher) Get(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	maxAttempts := f.retries + 1
	var lastErr error
	attempt := 0

	for attempt < maxAttempts {
		attempt++
		body, err := f.getOnce(ctx, rawURL, headers)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		delay := f.backoff(attempt)
		slog.Debug("Request failed, retrying", "url", rawURL, "attempt", attempt, "delay", delay, "error", err)
		if err := sleepContext(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	return "", apperrors.NewFetchError(rawURL, attempt, lastErr)
}

// GetCached is Get backed by the response cache when caching is enabled.
// table must be one of the cache package's table names. Only bodies that are
// valid JSON are stored, so an error page is fetched again next time.
func (f *Fetcher) GetCached(ctx context.Context, table, rawURL string, headers map[string]string) (string, error) {
	return f.GetCachedWithTTL(ctx, table, rawURL, headers, nil)
}

// GetCachedWithTTL is GetCached with the lifetime of each stored body chosen
// by ttlFor. A nil ttlFor keeps bodies for cache.ttl.
func (f *Fetcher) GetCachedWithTTL(ctx context.Context, table, rawURL string, headers map[string]string, ttlFor func(body string) time.Duration) (string, error) {
	if !f.useCache {
		return f.Get(ctx, rawURL, headers)
	}

	body, fromCache, err := cache.GetOrFetchWithTTL(table, rawURL, func() (string, error) {
		return f.Get(ctx, rawURL, headers)
	}, jsonOnly(ttlFor))
	if err != nil {
		return "", err
	}
	if fromCache {
		slog.Debug("Using cached response", "url", rawURL)
	}
	return body, nil
}

// jsonOnly wraps ttlFor so bodies that are not valid JSON are never cached.
func jsonOnly(ttlFor func(string) time.Duration) func(string) time.Duration {
	return func(body string) time.Duration {
		if !gjson.Valid(body) {
			slog.Debug("Response is not JSON, not caching it")
			return 0
		}
		if ttlFor == nil {
			return cache.ConfiguredTTL()
		}
		return ttlFor(body)
	}
}

func (f *Fetcher) getOnce(ctx context.Context, rawURL string, headers map[string]string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if err := f.limiterFor(u.Host).Wait(reqCtx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", apperrors.NewRateLimitErrorWithRetry(
			fmt.Sprintf("rate limited by %s", u.Host),
			parseRetryAfter(resp.Header.Get("Retry-After")),
		)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.NewStatusError(resp.StatusCode, string(raw))
	}

	return Decode(raw, resp.Header.Get("Content-Type")), nil
}

// parseRetryAfter accepts both forms of the Retry-After header.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
