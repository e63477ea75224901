package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// Key joins a group, usually a user id, and a name into a cache key.
func Key(group, name string) string {
	return group + ":" + name
}

// GroupOf returns the group part of a key built by Key.
func GroupOf(key string) string {
	group, _, _ := strings.Cut(key, ":")
	return group
}

// Stats are cumulative counters of one cache.
type Stats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// LRUCache holds up to maxSize entries for ttl each. When full it evicts the
// least recently used entry. Entries are indexed by group so a whole group
// is dropped without scanning the cache.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	entries map[string]*list.Element
	groups  map[string]map[string]struct{}
	// order has the most recently used entry at the front.
	order *list.List

	hits, misses, evictions uint64
}

type entry[T any] struct {
	key       string
	group     string
	data      T
	expiresAt time.Time
}

// NewLRUCache creates a cache. A maxSize below 1 is treated as 1.
func NewLRUCache[T any](maxSize int, ttl time.Duration) *LRUCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*list.Element),
		groups:  make(map[string]map[string]struct{}),
		order:   list.New(),
	}
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := elem.Value.(*entry[T])
	if c.now().After(e.expiresAt) {
		c.remove(elem)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return e.data, true
}

func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry[T])
		e.data, e.expiresAt = data, expires
		c.order.MoveToFront(elem)
		return
	}

	e := &entry[T]{key: key, group: GroupOf(key), data: data, expiresAt: expires}
	c.entries[key] = c.order.PushFront(e)
	members := c.groups[e.group]
	if members == nil {
		members = make(map[string]struct{})
		c.groups[e.group] = members
	}
	members[key] = struct{}{}

	for c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
		c.evictions++
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.remove(elem)
	}
}

// DeleteGroup drops every entry of group and returns how many went.
func (c *LRUCache[T]) DeleteGroup(group string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	members := c.groups[group]
	n := len(members)
	for key := range members {
		c.remove(c.entries[key])
	}
	return n
}

// remove unlinks elem from the list, the key map and its group. c.mu must be held.
func (c *LRUCache[T]) remove(elem *list.Element) {
	e := c.order.Remove(elem).(*entry[T])
	delete(c.entries, e.key)
	if members := c.groups[e.group]; members != nil {
		delete(members, e.key)
		if len(members) == 0 {
			delete(c.groups, e.group)
		}
	}
}

// CleanExpired removes expired entries and returns how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			c.remove(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
