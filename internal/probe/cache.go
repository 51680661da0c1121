package probe

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/usestring/reqslim/internal/message"
)

// Cache is a thread-safe LRU of probe fingerprints keyed by the SHA-256 of
// the serialized request bytes. Correctness never depends on a hit; it only
// saves redundant connections for byte-identical probes.
type Cache struct {
	cache *lru.Cache[[sha256.Size]byte, *message.Fingerprint]
}

// NewCache creates a cache holding at most maxItems fingerprints.
func NewCache(maxItems int) (*Cache, error) {
	c, err := lru.New[[sha256.Size]byte, *message.Fingerprint](maxItems)
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c}, nil
}

func (c *Cache) get(raw string) (*message.Fingerprint, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(sha256.Sum256([]byte(raw)))
}

func (c *Cache) put(raw string, fp *message.Fingerprint) {
	if c == nil {
		return
	}
	c.cache.Add(sha256.Sum256([]byte(raw)), fp)
}

// Len returns the number of cached fingerprints.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}
