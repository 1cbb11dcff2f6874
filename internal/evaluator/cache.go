package evaluator

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"erbgo/internal/common/logging"
)

const (
	programTTL     = 10 * time.Minute
	programCleanup = 20 * time.Minute
	maxPrograms    = 1000
)

// programCache keeps compiled evaluator programs keyed by a digest of the
// program text and everything else that affected compilation.
type programCache struct {
	cache *gocache.Cache
	mu    sync.Mutex
}

func newProgramCache() *programCache {
	return &programCache{cache: gocache.New(programTTL, programCleanup)}
}

func cacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

// getOrCompile returns the cached value for key, compiling and storing it on
// a miss. Compile errors are not cached.
func (c *programCache) getOrCompile(key, language string, compile func() (interface{}, error)) (interface{}, error) {
	if cached, found := c.cache.Get(key); found {
		return cached, nil
	}

	compiled, err := compile()
	if err != nil {
		return nil, err
	}
	logging.Debug("compiled program", logging.String("language", language), logging.String("key", key[:12]))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache.ItemCount() >= maxPrograms {
		c.cache.DeleteExpired()
		if c.cache.ItemCount() >= maxPrograms {
			return compiled, nil
		}
	}
	c.cache.Set(key, compiled, gocache.DefaultExpiration)
	return compiled, nil
}

func (c *programCache) flush() {
	c.cache.Flush()
}

func (c *programCache) len() int {
	return c.cache.ItemCount()
}
