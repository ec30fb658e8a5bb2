package config

import (
	"time"
)

// CacheConfig defines settings for the schema response cache.  When Enabled is
// false or no Redis client is available, caching is a no-op.  TTL is kept short
// because mutating handlers invalidate per-user entries on a best-effort basis
// only.  MaxBodyBytes caps the size of stored responses.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
