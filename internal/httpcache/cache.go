package httpcache

import (
	"net/url"
	"sync"
	"time"
)

// Key identifies a cached response.
type Key struct {
	Method string
	URL    string
}

// NewKey builds a key from the request method, base URL and query
// parameters. Parameters are encoded in sorted order.
func NewKey(method, rawURL string, params url.Values) Key {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}
	return Key{Method: method, URL: rawURL}
}

type entry struct {
	body    []byte
	expires time.Time
}

// Cache is a concurrency-safe response body cache with a fixed TTL.
// Expired entries are never returned and are dropped by Sweep.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[Key]entry
	now     func() time.Time
}

// New creates a Cache. A ttl <= 0 disables caching.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[Key]entry),
		now:     time.Now,
	}
}

// Get returns the body stored under k if it has not expired.
func (c *Cache) Get(k Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, k)
		return nil, false
	}
	return e.body, true
}

// Set stores body under k.
func (c *Cache) Set(k Key, body []byte) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = entry{body: body, expires: c.now().Add(c.ttl)}
}

// Sweep drops expired entries and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
