package lockapi

import (
	"context"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kolna/keysync/internal/redis"
)

// TokenCache stores the vendor JWT between requests. The redis-backed cache
// lets the server and the syncctl tool share one session the way the
// original system shared its cookie file.
type TokenCache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

type redisTokenCache struct {
	client *redis.Client
	key    string
}

func NewRedisTokenCache(client *redis.Client, username string) TokenCache {
	return &redisTokenCache{client: client, key: redis.LockTokenKey(username)}
}

func (c *redisTokenCache) Get(ctx context.Context) (string, error) {
	token, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return token, err
}

func (c *redisTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key, token, ttl).Err()
}

func (c *redisTokenCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

type memoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewMemoryTokenCache is the fallback when redis is not configured.
func NewMemoryTokenCache() TokenCache {
	return &memoryTokenCache{}
}

func (c *memoryTokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", nil
	}
	return c.token, nil
}

func (c *memoryTokenCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
	return nil
}

func (c *memoryTokenCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	return nil
}
