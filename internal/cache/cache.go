// Package cache provides the in-memory verdict cache: bounded LRU with a
// per-entry TTL checked at read time. No third-party cache carries both
// policies with read-time expiry, so the structure is built on
// container/list directly.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/phishguard/phishguard/internal/model"
)

type entry struct {
	key     string
	verdict *model.Verdict
	expires time.Time
}

// Cache is a fixed-capacity LRU of scan verdicts keyed by normalized URL.
// Entries past their TTL are treated as absent and dropped on access. Safe
// for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List // front = most recent
	items    map[string]*list.Element

	now func() time.Time // test hook
}

func New(capacity int, ttl time.Duration) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
}

// Get returns the cached verdict for key, or nil when absent or expired.
// A hit refreshes recency but never the TTL.
func (c *Cache) Get(key string) *model.Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil
	}
	ent := el.Value.(*entry)
	if !c.now().Before(ent.expires) {
		c.remove(el)
		return nil
	}
	c.order.MoveToFront(el)
	return ent.verdict
}

// Put stores a verdict under key, replacing any previous entry and evicting
// the least recently used entry when full.
func (c *Cache) Put(key string, v *model.Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry)
		ent.verdict = v
		ent.expires = expires
		c.order.MoveToFront(el)
		return
	}

	for c.order.Len() >= c.capacity {
		c.remove(c.order.Back())
	}
	c.items[key] = c.order.PushFront(&entry{key: key, verdict: v, expires: expires})
}

// Len reports the number of stored entries, expired ones included until
// they are touched.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) remove(el *list.Element) {
	delete(c.items, el.Value.(*entry).key)
	c.order.Remove(el)
}
