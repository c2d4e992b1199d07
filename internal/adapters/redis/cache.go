package redis

import (
	"github.com/redis/go-redis/v9"
)

// Cache wraps the shared client for non-idempotency uses (rate limiting).
type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}
