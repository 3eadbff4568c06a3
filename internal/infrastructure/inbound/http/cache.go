package http

import (
	"strconv"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/sophialabs/perfaudit/internal/domain/audit"
)

// reportCache is a bounded LRU of audit reports keyed by capture and pass.
// Each Rebuild installs a fresh cache with the next generation number.
// lru.Cache is not safe for concurrent use, hence the mutex.
type reportCache struct {
	mu         sync.Mutex
	lru        *lru.Cache
	generation uint64
}

func newReportCache(size int, generation uint64) *reportCache {
	return &reportCache{lru: lru.New(size), generation: generation}
}

// reportKey expects pass already resolved to its canonical name.
func reportKey(captureID, pass string) string {
	return captureID + "\x00" + pass
}

// flightKey scopes an in-flight computation to this cache's generation, so
// requests after a Rebuild never share work started on the previous captures.
func (c *reportCache) flightKey(key string) string {
	return strconv.FormatUint(c.generation, 10) + "\x00" + key
}

func (c *reportCache) get(key string) (audit.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if !ok {
		return audit.Report{}, false
	}
	return v.(audit.Report), true
}

func (c *reportCache) add(key string, r audit.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, r)
}

func (c *reportCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
