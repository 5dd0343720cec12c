package build

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MinifyCache caches minified bundle source with LRU eviction and TTL, so
// watch rebuilds of unchanged bundles skip the minifier chain.
type MinifyCache struct {
	entries     map[string]*CacheEntry
	mutex       sync.Mutex
	maxSize     int64
	currentSize int64
	ttl         time.Duration
	// LRU implementation
	head *CacheEntry
	tail *CacheEntry
	// Statistics tracking
	hits      int64
	misses    int64
	evictions int64
}

// CacheEntry is one cached minification result.
type CacheEntry struct {
	Key        string
	Code       string
	Tier       string
	CreatedAt  time.Time
	AccessedAt time.Time
	Size       int64
	// LRU doubly-linked list pointers
	prev *CacheEntry
	next *CacheEntry
}

// NewMinifyCache creates a cache holding at most maxSize bytes of output.
func NewMinifyCache(maxSize int64, ttl time.Duration) *MinifyCache {
	cache := &MinifyCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}

	// Initialize LRU doubly-linked list with dummy head and tail
	cache.head = &CacheEntry{}
	cache.tail = &CacheEntry{}
	cache.head.next = cache.tail
	cache.tail.prev = cache.head

	return cache
}

// CacheKey derives the cache key of src minified by the given tiers.
func CacheKey(src string, tiers []string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(tiers, ",")))
	h.Write([]byte{0})
	h.Write([]byte(src))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached output for key and the tier that produced it.
func (c *MinifyCache) Get(key string) (string, string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return "", "", false
	}

	if c.ttl > 0 && time.Since(entry.CreatedAt) > c.ttl {
		c.remove(entry)
		atomic.AddInt64(&c.misses, 1)
		return "", "", false
	}

	c.moveToFront(entry)
	entry.AccessedAt = time.Now()
	atomic.AddInt64(&c.hits, 1)
	return entry.Code, entry.Tier, true
}

// Set stores code under key. Entries larger than the whole cache are not
// stored.
func (c *MinifyCache) Set(key, code, tier string) {
	size := int64(len(code))
	if size > c.maxSize {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, exists := c.entries[key]; exists {
		c.currentSize += size - existing.Size
		existing.Code = code
		existing.Tier = tier
		existing.Size = size
		existing.CreatedAt = time.Now()
		existing.AccessedAt = existing.CreatedAt
		c.moveToFront(existing)
		c.evictIfNeeded(0)
		return
	}

	c.evictIfNeeded(size)

	now := time.Now()
	entry := &CacheEntry{
		Key:        key,
		Code:       code,
		Tier:       tier,
		CreatedAt:  now,
		AccessedAt: now,
		Size:       size,
	}

	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// evictIfNeeded evicts least recently used entries until newSize more bytes fit.
func (c *MinifyCache) evictIfNeeded(newSize int64) {
	for c.currentSize+newSize > c.maxSize && c.tail.prev != c.head {
		c.remove(c.tail.prev)
		atomic.AddInt64(&c.evictions, 1)
	}
}

func (c *MinifyCache) remove(entry *CacheEntry) {
	c.removeFromList(entry)
	delete(c.entries, entry.Key)
	c.currentSize -= entry.Size
}

// Clear removes all entries and resets statistics.
func (c *MinifyCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.currentSize = 0
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// GetStats returns the entry count, current size and max size.
func (c *MinifyCache) GetStats() (int, int64, int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.entries), c.currentSize, c.maxSize
}

// GetHits returns the number of cache hits.
func (c *MinifyCache) GetHits() int64 {
	return atomic.LoadInt64(&c.hits)
}

// GetMisses returns the number of cache misses.
func (c *MinifyCache) GetMisses() int64 {
	return atomic.LoadInt64(&c.misses)
}

// GetEvictions returns the number of cache evictions.
func (c *MinifyCache) GetEvictions() int64 {
	return atomic.LoadInt64(&c.evictions)
}

// GetHitRate returns the hit rate between 0.0 and 1.0.
func (c *MinifyCache) GetHitRate() float64 {
	hits := atomic.LoadInt64(&c.hits)
	total := hits + atomic.LoadInt64(&c.misses)
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// LRU doubly-linked list operations
func (c *MinifyCache) addToFront(entry *CacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *MinifyCache) removeFromList(entry *CacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *MinifyCache) moveToFront(entry *CacheEntry) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
