package answer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Page is the text content of a fetched site page.
type Page struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PageCache stores pages by URL with a time-to-live. Concurrent writers for
// the same URL race; the last write wins.
type PageCache interface {
	Get(ctx context.Context, url string) (*Page, bool)
	Set(ctx context.Context, p *Page, ttl time.Duration) error
}

type memoryEntry struct {
	page    Page
	expires time.Time
}

// MemoryCache is a process-local PageCache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, url string) (*Page, bool) {
	c.mu.RLock()
	e, ok := c.entries[url]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	p := e.page
	return &p, true
}

func (c *MemoryCache) Set(_ context.Context, p *Page, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[p.URL] = memoryEntry{page: *p, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// RedisCache keeps pages in Redis as JSON so several replicas share one
// cache. Expiry is delegated to Redis.
type RedisCache struct {
	Client *redis.Client
	Prefix string
}

// NewRedisCache connects lazily to the server named by a redis:// URL.
func NewRedisCache(rawURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{Client: redis.NewClient(opt), Prefix: "agent:page:"}, nil
}

func (c *RedisCache) Get(ctx context.Context, url string) (*Page, bool) {
	b, err := c.Client.Get(ctx, c.Prefix+url).Bytes()
	if err != nil {
		return nil, false
	}
	var p Page
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *RedisCache) Set(ctx context.Context, p *Page, ttl time.Duration) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.Prefix+p.URL, b, ttl).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error { return c.Client.Close() }
