package testutil

import (
	"testing"

	"github.com/spf13/viper"
)

// ResetViper clears viper before the test and again when it completes.
func ResetViper(t *testing.T) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)
}

// SetupTestCache points the response cache at a database inside env and enables it.
// Returns the database path.
func SetupTestCache(t *testing.T, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("cache", "test-cache.db")
	env.WriteFileString("cache/.keep", "")

	viper.Set("cache.enabled", true)
	viper.Set("cache.dbfile", dbPath)
	viper.Set("cache.ttl", "24h")

	return dbPath
}
