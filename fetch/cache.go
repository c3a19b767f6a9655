package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// CacheConfig represents the configuration for the quote cache.
type CacheConfig struct {
	// Dir is the directory cache entries are stored under.
	Dir string
	// ExpiryHours is the entry lifetime in hours. Zero means entries
	// never expire.
	ExpiryHours int
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Cache stores raw quote payloads on disk, one file per ticker and size.
// Entries are overwritten whole, the last write wins. All cache failures
// are soft, a failed read or write only means the network is used.
type Cache struct {
	cfg *CacheConfig
}

// NewCache initializes the quote cache.
func NewCache(cfg *CacheConfig) *Cache {
	return &Cache{cfg: cfg}
}

// entryPath forms the cache file path for the provided ticker and size.
func (c *Cache) entryPath(ticker string, size int) string {
	return filepath.Join(c.cfg.Dir, fmt.Sprintf("%s_size_%d.json", ticker, size))
}

// Get returns the cached raw records for the provided ticker and size. The
// second return is false when there is no valid entry.
func (c *Cache) Get(ticker string, size int) ([]byte, bool) {
	path := c.entryPath(ticker, size)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	if c.cfg.ExpiryHours > 0 {
		expiry := time.Duration(c.cfg.ExpiryHours) * time.Hour
		if time.Since(info.ModTime()) > expiry {
			return nil, false
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		c.cfg.Logger.Debug().Msgf("reading cache entry for %s: %v", ticker, err)
		return nil, false
	}

	if !gjson.ValidBytes(raw) {
		c.cfg.Logger.Debug().Msgf("discarding corrupt cache entry for %s", ticker)
		return nil, false
	}

	return raw, true
}

// Put stores the provided raw records for the ticker and size, replacing any
// existing entry.
func (c *Cache) Put(ticker string, size int, raw []byte) {
	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		c.cfg.Logger.Debug().Msgf("creating cache directory: %v", err)
		return
	}

	if err := os.WriteFile(c.entryPath(ticker, size), raw, 0o644); err != nil {
		c.cfg.Logger.Debug().Msgf("writing cache entry for %s: %v", ticker, err)
	}
}
