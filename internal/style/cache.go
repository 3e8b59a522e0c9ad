package style

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores analyzed attributes by thumbnail URL. Failures are misses.
type Cache interface {
	Get(ctx context.Context, key string) (Attributes, bool)
	Set(ctx context.Context, key string, attrs Attributes, ttl time.Duration)
}

type memoryEntry struct {
	attrs     Attributes
	expiresAt time.Time
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Attributes, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Attributes{}, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return Attributes{}, false
	}
	return e.attrs, true
}

func (c *MemoryCache) Set(_ context.Context, key string, attrs Attributes, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// opportunistic sweep keeps the map bounded by live entries
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{attrs: attrs, expiresAt: now.Add(ttl)}
}

// RedisCache is a Cache shared across replicas.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to redisURL and pings it.
func NewRedisCache(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("Redis style cache connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &RedisCache{client: client, logger: logger}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Attributes, bool) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return Attributes{}, false
	}
	if err != nil {
		c.logger.Warn("Style cache get failed", zap.String("key", key), zap.Error(err))
		return Attributes{}, false
	}

	var attrs Attributes
	if err := json.Unmarshal(value, &attrs); err != nil {
		c.logger.Warn("Style cache entry unreadable", zap.String("key", key), zap.Error(err))
		return Attributes{}, false
	}
	return attrs, true
}

func (c *RedisCache) Set(ctx context.Context, key string, attrs Attributes, ttl time.Duration) {
	data, err := json.Marshal(attrs)
	if err != nil {
		c.logger.Warn("Style cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("Style cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Close releases the redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
