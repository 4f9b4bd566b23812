// Package cache provides a small generic LRU cache for derived artifacts
// such as encoded sheets and font faces.
//
//	c := cache.New[string, []byte](16)
//	data := c.GetOrCreate(sheet.ID, func() []byte { return encode(sheet) })
package cache

import "sync"

// Cache is a thread-safe LRU cache holding at most Capacity entries.
// Cache must not be copied after creation.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*node[K, V]
	lru      list[K, V]
	capacity int

	hits      uint64
	misses    uint64
	evictions uint64
}

// node is an entry in the recency list. head is the most recently used.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

type list[K comparable, V any] struct {
	head, tail *node[K, V]
}

func (l *list[K, V]) pushFront(n *node[K, V]) {
	n.prev, n.next = nil, l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *list[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

func (l *list[K, V]) moveToFront(n *node[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

// New creates a cache holding at most capacity entries. A capacity below 1
// is treated as 1.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:  make(map[K]*node[K, V]),
		capacity: max(capacity, 1),
	}
}

// Get returns the value for key and marks it recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.lru.moveToFront(n)
	return n.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

// GetOrCreate returns the cached value or stores the result of create.
// create runs under the cache lock, so concurrent callers never build the
// same entry twice.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.hits++
		c.lru.moveToFront(n)
		return n.value
	}
	c.misses++
	value := create()
	c.set(key, value)
	return value
}

// set requires c.mu.
func (c *Cache[K, V]) set(key K, value V) {
	if n, ok := c.entries[key]; ok {
		n.value = value
		c.lru.moveToFront(n)
		return
	}
	n := &node[K, V]{key: key, value: value}
	c.entries[key] = n
	c.lru.pushFront(n)

	for len(c.entries) > c.capacity {
		oldest := c.lru.tail
		c.lru.unlink(oldest)
		delete(c.entries, oldest.key)
		c.evictions++
	}
}

// Delete removes key and reports whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.lru.unlink(n)
	delete(c.entries, key)
	return true
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*node[K, V])
	c.lru = list[K, V]{}
}

// Len returns the number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Capacity returns the maximum number of entries.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64

	// HitRate is Hits/(Hits+Misses), 0 before the first lookup.
	HitRate float64
}
