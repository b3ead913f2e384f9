// Package cache implements the result cache of §4.12: an MD5 key over the
// query and include flags, TTL 3600s, LRU size 100, backed by Redis with an
// in-memory fallback.
package cache

import (
	"container/list"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL  = 3600 * time.Second
	DefaultSize = 100
)

// Key builds the cache key from the query, top_k, and the three include
// flags (§4.12).
func Key(query string, topK int, includeContext, includeRelationships, includeSources bool) string {
	raw := fmt.Sprintf("%s|%d|%t|%t|%t", query, topK, includeContext, includeRelationships, includeSources)
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Cache stores and retrieves arbitrary JSON-serializable payloads by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// memoryCache is an LRU cache with TTL, used when no Redis DSN is configured
// and as a local fallback alongside Redis.
type memoryCache struct {
	mu       sync.Mutex
	size     int
	ll       *list.List
	items    map[string]*list.Element
}

type entry struct {
	key      string
	value    []byte
	expireAt time.Time
}

// NewMemory constructs an in-memory LRU cache bounded to size entries.
func NewMemory(size int) Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &memoryCache{size: size, ll: list.New(), items: map[string]*list.Element{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if time.Now().After(e.expireAt) {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false, nil
	}
	c.ll.MoveToFront(el)
	return e.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).value = value
		el.Value.(*entry).expireAt = time.Now().Add(ttl)
		c.ll.MoveToFront(el)
		return nil
	}
	el := c.ll.PushFront(&entry{key: key, value: value, expireAt: time.Now().Add(ttl)})
	c.items[key] = el
	if c.ll.Len() > c.size {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
	return nil
}

// redisCache backs the cache with Redis, falling back to an in-memory cache
// on any Redis error so a cache outage never fails a query.
type redisCache struct {
	client   *redis.Client
	fallback Cache
}

// NewRedis constructs a Cache backed by Redis with an in-memory fallback.
func NewRedis(client *redis.Client, fallbackSize int) Cache {
	return &redisCache{client: client, fallback: NewMemory(fallbackSize)}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return val, true, nil
	}
	if err != redis.Nil {
		return c.fallback.Get(ctx, key)
	}
	return nil, false, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return c.fallback.Set(ctx, key, value, ttl)
	}
	return nil
}

// Marshal is a small convenience wrapper so callers don't need to import
// encoding/json themselves.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal mirrors Marshal.
func Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
