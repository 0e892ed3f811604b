package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"github.com/4ngelGtz/chatbot-zen/internal/domain"
)

// QueryCache is a small LRU of retrieval results. Entries are keyed by the
// index generation they were computed against, so a reload never serves
// results from the previous snapshot.
type QueryCache struct {
	mu      sync.Mutex
	lru     *list.List // front is most recently used
	byKey   map[string]*list.Element
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	key     string
	results []domain.RetrievalResult
	stored  time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		lru:     list.New(),
		byKey:   make(map[string]*list.Element, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(gen uint64, query string, k int) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], gen)
	binary.BigEndian.PutUint64(buf[8:], uint64(k))
	h := sha256.New()
	h.Write(buf[:])
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Get returns a copy of the cached results for query at generation gen.
func (c *QueryCache) Get(gen uint64, query string, k int) ([]domain.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byKey[cacheKey(gen, query, k)]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().Sub(entry.stored) > c.ttl {
		c.remove(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return clone(entry.results), true
}

func (c *QueryCache) Put(gen uint64, query string, k int, results []domain.RetrievalResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(gen, query, k)
	entry := &cacheEntry{key: key, results: clone(results), stored: c.now()}
	if el, ok := c.byKey[key]; ok {
		el.Value = entry
		c.lru.MoveToFront(el)
		return
	}
	if c.lru.Len() >= c.maxSize {
		c.remove(c.lru.Back())
	}
	c.byKey[key] = c.lru.PushFront(entry)
}

// Purge drops every entry.
func (c *QueryCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Init()
	clear(c.byKey)
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *QueryCache) remove(el *list.Element) {
	if el == nil {
		return
	}
	c.lru.Remove(el)
	delete(c.byKey, el.Value.(*cacheEntry).key)
}

func clone(in []domain.RetrievalResult) []domain.RetrievalResult {
	if in == nil {
		return nil
	}
	out := make([]domain.RetrievalResult, len(in))
	copy(out, in)
	return out
}
