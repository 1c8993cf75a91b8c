// Package config holds the runtime settings resolved from viper.
package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Defaults for every viper key the tool reads
const (
	DefaultStorefrontURL  = "https://www.dlsite.com"
	DefaultArchivePrimary = "https://api.asmr.one"
	DefaultArchiveMirror  = "https://api.asmr-200.com"
	DefaultTimeout        = 60 * time.Second
	DefaultRetries        = 2
	DefaultRatePerSecond  = 0 // no limiting
	DefaultBaseCode       = "RJ01348345"
	DefaultEditionLang    = "CHI_HANS"
)

// Settings is a snapshot of the configuration for one run
type Settings struct {
	StorefrontURL  string
	ArchivePrimary string
	ArchiveMirror  string
	Timeout        time.Duration
	Retries        int
	RatePerSecond  int
	CacheEnabled   bool
}

// SetDefaults registers the default value of every key with viper
func SetDefaults() {
	viper.SetDefault("storefront.baseurl", DefaultStorefrontURL)
	viper.SetDefault("archive.primary", DefaultArchivePrimary)
	viper.SetDefault("archive.mirror", DefaultArchiveMirror)
	viper.SetDefault("http.timeout", DefaultTimeout.String())
	viper.SetDefault("http.retries", DefaultRetries)
	viper.SetDefault("http.ratepersecond", DefaultRatePerSecond)

	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "720h") // 30 days
}

// Load reads the current viper state into Settings
func Load() Settings {
	timeout := DefaultTimeout
	if raw := viper.GetString("http.timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			slog.Warn("Invalid HTTP timeout, using default", "timeout", raw, "error", err)
		} else {
			timeout = parsed
		}
	}

	retries := viper.GetInt("http.retries")
	if retries < 0 {
		retries = 0
	}

	return Settings{
		StorefrontURL:  stringOr("storefront.baseurl", DefaultStorefrontURL),
		ArchivePrimary: stringOr("archive.primary", DefaultArchivePrimary),
		ArchiveMirror:  stringOr("archive.mirror", DefaultArchiveMirror),
		Timeout:        timeout,
		Retries:        retries,
		RatePerSecond:  viper.GetInt("http.ratepersecond"),
		CacheEnabled:   viper.GetBool("cache.enabled"),
	}
}

func stringOr(key, fallback string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	return fallback
}
