package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ZanzyTHEbar/ai-video-detector/internal/types"
)

// MetadataCache keeps fetched platform metadata keyed by URL
type MetadataCache struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMetadataCache creates a cache whose entries live for ttl
func NewMetadataCache(ttl time.Duration) *MetadataCache {
	cleanup := ttl * 2
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &MetadataCache{
		cache: gocache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

// GenerateKey creates a consistent key from a URL. Surrounding whitespace and a
// trailing slash do not produce distinct entries.
func GenerateKey(url string) string {
	normalized := strings.TrimSuffix(strings.TrimSpace(url), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// Get returns cached metadata for url
func (c *MetadataCache) Get(url string) (types.VideoMetadata, bool) {
	if val, found := c.cache.Get(GenerateKey(url)); found {
		if meta, ok := val.(types.VideoMetadata); ok {
			return meta, true
		}
	}
	return types.VideoMetadata{}, false
}

// Set stores metadata for url with the default TTL
func (c *MetadataCache) Set(url string, meta types.VideoMetadata) {
	c.cache.Set(GenerateKey(url), meta, gocache.DefaultExpiration)
}

// Delete removes the entry for url
func (c *MetadataCache) Delete(url string) {
	c.cache.Delete(GenerateKey(url))
}

// Clear removes all entries
func (c *MetadataCache) Clear() {
	c.cache.Flush()
}

// Size returns the number of entries, including expired ones not yet cleaned up
func (c *MetadataCache) Size() int {
	return c.cache.ItemCount()
}

// TTL returns the entry lifetime
func (c *MetadataCache) TTL() time.Duration {
	return c.ttl
}
