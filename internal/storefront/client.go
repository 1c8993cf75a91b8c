// Package storefront reads product information from the DLsite product-info
// endpoint and extracts the localized editions of a work.
package storefront

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lepinkainen/editiondiff/internal/cache"
)

const (
	defaultBaseURL  = "https://www.dlsite.com"
	productInfoPath = "/maniax/product/info/ajax"
)

// Headers sent with every product-info request; the endpoint expects a browser.
var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0",
	"Referer":         "https://www.dlsite.com/",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "ja-JP,ja;q=0.9,en;q=0.8,zh;q=0.7",
}

// Getter fetches a URL, optionally through the response cache.
type Getter interface {
	GetCachedWithTTL(ctx context.Context, table, rawURL string, headers map[string]string, ttlFor func(body string) time.Duration) (string, error)
}

// productTTL keeps answers without a work object (the endpoint sends [] for
// codes it does not know) only briefly.
var productTTL = cache.SelectNegativeCacheTTL(func(body string) bool {
	return LocateWork(gjson.Parse(body), "") == nil
})

// Client queries the storefront product-info endpoint.
type Client struct {
	baseURL string
	fetcher Getter
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL for the storefront.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimSuffix(base, "/")
		}
	}
}

// NewClient creates a storefront client that issues requests through fetcher.
func NewClient(fetcher Getter, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		fetcher: fetcher,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NormalizeCode trims and uppercases a product code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ProductInfo fetches and parses the product-info document for code.
func (c *Client) ProductInfo(ctx context.Context, code string) (*ProductInfo, error) {
	code = NormalizeCode(code)

	params := url.Values{}
	params.Set("product_id", code)
	params.Set("cdn_cache_min", "1")
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, productInfoPath, params.Encode())

	body, err := c.fetcher.GetCachedWithTTL(ctx, cache.StorefrontTable, endpoint, defaultHeaders, productTTL)
	if err != nil {
		return nil, fmt.Errorf("storefront product info for %s: %w", code, err)
	}

	info, err := ParseProductInfo(code, body)
	if err != nil {
		return nil, fmt.Errorf("storefront product info for %s: %w", code, err)
	}
	return info, nil
}
