package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
)

type queryEntry struct {
	key      string
	answer   domain.Answer
	storedAt time.Time
}

// QueryCache holds final answers keyed by owner, query text, and result
// limit. Entries expire a fixed TTL after insertion; capacity eviction is
// LRU by last access. Expiry is lazy: stale entries are dropped on lookup.
type QueryCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*list.Element
	order    *list.List // front = most recently used

	now func() time.Time // test hook
}

func NewQueryCache(capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &QueryCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

func queryKey(ownerID int64, query string, limit int) string {
	return HashText(fmt.Sprintf("%d:%s:%d", ownerID, query, limit))
}

// Get returns the cached answer for the exact owner/query/limit triple.
func (c *QueryCache) Get(ownerID int64, query string, limit int) (domain.Answer, bool) {
	key := queryKey(ownerID, query, limit)

	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return domain.Answer{}, false
	}
	entry := element.Value.(*queryEntry)
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.order.Remove(element)
		delete(c.entries, key)
		return domain.Answer{}, false
	}
	c.order.MoveToFront(element)
	return entry.answer, true
}

// Set stores an answer. Overwriting an existing key resets its TTL and never
// evicts another entry.
func (c *QueryCache) Set(ownerID int64, query string, limit int, answer domain.Answer) {
	key := queryKey(ownerID, query, limit)

	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		entry := element.Value.(*queryEntry)
		entry.answer = answer
		entry.storedAt = c.now()
		c.order.MoveToFront(element)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*queryEntry).key)
		}
	}
	c.entries[key] = c.order.PushFront(&queryEntry{key: key, answer: answer, storedAt: c.now()})
}

// Len reports the number of entries currently held, including any not yet
// lazily expired.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
