package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency

// StorefrontCacheSchema holds raw product-info responses keyed by request URL
const StorefrontCacheSchema = `
CREATE TABLE IF NOT EXISTS storefront_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_storefront_cached_at ON storefront_cache(cached_at);
`

// ArchiveCacheSchema holds raw archive search and track responses keyed by request URL
const ArchiveCacheSchema = `
CREATE TABLE IF NOT EXISTS archive_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_archive_cached_at ON archive_cache(cached_at);
`

const (
	// StorefrontTable is the cache table for storefront responses
	StorefrontTable = "storefront_cache"
	// ArchiveTable is the cache table for archive responses
	ArchiveTable = "archive_cache"
)

// AllCacheTables lists every cache table, in schema order
var AllCacheTables = []string{StorefrontTable, ArchiveTable}

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	StorefrontCacheSchema,
	ArchiveCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	StorefrontTable: true,
	ArchiveTable:    true,
}
