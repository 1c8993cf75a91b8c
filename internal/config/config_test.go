package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	SetDefaults()

	s := Load()

	assert.Equal(t, DefaultStorefrontURL, s.StorefrontURL)
	assert.Equal(t, DefaultArchivePrimary, s.ArchivePrimary)
	assert.Equal(t, DefaultArchiveMirror, s.ArchiveMirror)
	assert.Equal(t, 60*time.Second, s.Timeout)
	assert.Equal(t, 2, s.Retries)
	assert.Equal(t, DefaultRatePerSecond, s.RatePerSecond)
	assert.False(t, s.CacheEnabled)
}

func TestLoadOverrides(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value any
		check func(t *testing.T, s Settings)
	}{
		{
			name:  "timeout",
			key:   "http.timeout",
			value: "5s",
			check: func(t *testing.T, s Settings) { assert.Equal(t, 5*time.Second, s.Timeout) },
		},
		{
			name:  "invalid timeout keeps default",
			key:   "http.timeout",
			value: "soon",
			check: func(t *testing.T, s Settings) { assert.Equal(t, DefaultTimeout, s.Timeout) },
		},
		{
			name:  "negative retries clamp to zero",
			key:   "http.retries",
			value: -3,
			check: func(t *testing.T, s Settings) { assert.Equal(t, 0, s.Retries) },
		},
		{
			name:  "mirror url",
			key:   "archive.mirror",
			value: "http://127.0.0.1:9000",
			check: func(t *testing.T, s Settings) { assert.Equal(t, "http://127.0.0.1:9000", s.ArchiveMirror) },
		},
		{
			name:  "cache enabled",
			key:   "cache.enabled",
			value: true,
			check: func(t *testing.T, s Settings) { assert.True(t, s.CacheEnabled) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetViper(t)
			SetDefaults()
			viper.Set(tc.key, tc.value)

			tc.check(t, Load())
		})
	}
}

func TestLoadWithoutDefaultsFallsBack(t *testing.T) {
	resetViper(t)

	s := Load()

	assert.Equal(t, DefaultStorefrontURL, s.StorefrontURL)
	assert.Equal(t, DefaultTimeout, s.Timeout)
}
