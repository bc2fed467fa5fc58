// Package cache provides a size- and idle-time-bounded LRU used to share
// logger instances between callers that log with the same fields.
package cache

import (
	"container/list"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Reason says why an entry left the cache.
type Reason int

const (
	// ReasonCapacity is used when the cache grew past its maximum size
	ReasonCapacity Reason = iota
	// ReasonExpired is used when the entry was idle longer than the maximum age
	ReasonExpired
	// ReasonRemoved is used for explicit Remove calls
	ReasonRemoved
	// ReasonPurged is used when the whole cache is emptied
	ReasonPurged
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonCapacity:
		return "capacity"
	case ReasonExpired:
		return "expired"
	case ReasonRemoved:
		return "removed"
	case ReasonPurged:
		return "purged"
	default:
		return "unknown"
	}
}

// EvictHook is called for every entry that leaves the cache, after the
// entry is unlinked and outside the cache lock.
type EvictHook[K comparable, V any] func(key K, value V, reason Reason)

type entry[K comparable, V any] struct {
	key     K
	value   V
	created time.Time
	touched time.Time
}

// Cache is a thread-safe LRU with an idle timeout. A zero maxSize or maxAge
// disables the corresponding bound.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	maxAge  time.Duration
	ll      *list.List
	items   map[K]*list.Element
	onEvict EvictHook[K, V]
	now     func() time.Time
}

type evicted[K comparable, V any] struct {
	key    K
	value  V
	reason Reason
}

// New creates a cache.
func New[K comparable, V any](maxSize int, maxAge time.Duration, onEvict EvictHook[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		maxSize: maxSize,
		maxAge:  maxAge,
		ll:      list.New(),
		items:   make(map[K]*list.Element),
		onEvict: onEvict,
		now:     time.Now,
	}
}

// SetClock replaces the time source. It is intended for tests.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// GetOrCreate returns the live entry for key, refreshing its recency and
// idle clock, or calls factory to create one. Creating an entry may evict the
// least recently used entry. Factory errors are returned and nothing is
// stored. The cache lock is held while factory runs, so factory must not call
// back into the cache.
func (c *Cache[K, V]) GetOrCreate(key K, factory func() (V, error)) (V, error) {
	c.mu.Lock()
	var gone []evicted[K, V]
	defer func() {
		c.mu.Unlock()
		c.notify(gone)
	}()

	now := c.now()
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		if !c.expired(e, now) {
			e.touched = now
			c.ll.MoveToFront(el)
			return e.value, nil
		}
		gone = append(gone, c.unlinkLocked(el, ReasonExpired))
	}

	value, err := factory()
	if err != nil {
		var zero V
		return zero, err
	}

	el := c.ll.PushFront(&entry[K, V]{key: key, value: value, created: now, touched: now})
	c.items[key] = el

	for c.maxSize > 0 && c.ll.Len() > c.maxSize {
		gone = append(gone, c.unlinkLocked(c.ll.Back(), ReasonCapacity))
	}
	return value, nil
}

// Get returns the live entry for key and refreshes it.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	var gone []evicted[K, V]
	defer func() {
		c.mu.Unlock()
		c.notify(gone)
	}()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	now := c.now()
	e := el.Value.(*entry[K, V])
	if c.expired(e, now) {
		gone = append(gone, c.unlinkLocked(el, ReasonExpired))
		return zero, false
	}
	e.touched = now
	c.ll.MoveToFront(el)
	return e.value, true
}

// Remove drops key from the cache. It reports whether key was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	el, ok := c.items[key]
	var gone []evicted[K, V]
	if ok {
		gone = append(gone, c.unlinkLocked(el, ReasonRemoved))
	}
	c.mu.Unlock()
	c.notify(gone)
	return ok
}

// RemoveFunc drops key only if match approves its current value.
func (c *Cache[K, V]) RemoveFunc(key K, match func(V) bool) bool {
	c.mu.Lock()
	el, ok := c.items[key]
	var gone []evicted[K, V]
	if ok && match(el.Value.(*entry[K, V]).value) {
		gone = append(gone, c.unlinkLocked(el, ReasonRemoved))
	}
	c.mu.Unlock()
	c.notify(gone)
	return len(gone) > 0
}

// Sweep evicts every entry idle longer than the maximum age and returns
// how many were evicted.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	var gone []evicted[K, V]
	now := c.now()
	// Least recently touched entries sit at the back.
	for el := c.ll.Back(); el != nil; {
		e := el.Value.(*entry[K, V])
		if !c.expired(e, now) {
			break
		}
		prev := el.Prev()
		gone = append(gone, c.unlinkLocked(el, ReasonExpired))
		el = prev
	}
	c.mu.Unlock()
	c.notify(gone)
	return len(gone)
}

// Purge evicts every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	var gone []evicted[K, V]
	for el := c.ll.Back(); el != nil; {
		prev := el.Prev()
		gone = append(gone, c.unlinkLocked(el, ReasonPurged))
		el = prev
	}
	c.mu.Unlock()
	c.notify(gone)
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Keys returns the keys from most to least recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.ll.Len())
	for el := c.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}

func (c *Cache[K, V]) expired(e *entry[K, V], now time.Time) bool {
	return c.maxAge > 0 && now.Sub(e.touched) > c.maxAge
}

func (c *Cache[K, V]) unlinkLocked(el *list.Element, reason Reason) evicted[K, V] {
	e := el.Value.(*entry[K, V])
	c.ll.Remove(el)
	delete(c.items, e.key)
	return evicted[K, V]{key: e.key, value: e.value, reason: reason}
}

func (c *Cache[K, V]) notify(gone []evicted[K, V]) {
	if c.onEvict == nil {
		return
	}
	for _, g := range gone {
		c.onEvict(g.key, g.value, g.reason)
	}
}

// Key returns a canonical fingerprint of fields. Keys are sorted, so two maps
// with the same contents always produce the same string.
func Key(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		name, _ := json.Marshal(k)
		b.Write(name)
		b.WriteByte(':')
		if v, err := json.Marshal(fields[k]); err == nil {
			b.Write(v)
		} else {
			b.WriteString(fmt.Sprintf("%q", fmt.Sprintf("%#v", fields[k])))
		}
	}
	return b.String()
}
