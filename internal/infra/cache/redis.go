package cache

import (
"context"
"time"

"github.com/redis/go-redis/v9"

"feed-ranker/internal/domain"
)

// RedisCache реализует domain.Cache через Redis.
type RedisCache struct {
client *redis.Client
}

var _ domain.Cache = (*RedisCache)(nil)

// NewRedis создаёт кэш.
func NewRedis(client *redis.Client) *RedisCache {
return &RedisCache{client: client}
}

// Set задаёт значение.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
return c.client.Set(context.Background(), key, value, ttl).Err()
}

// Get возвращает значение.
func (c *RedisCache) Get(key string) ([]byte, error) {
return c.client.Get(context.Background(), key).Bytes()
}

// DelPattern удаляет ключи по шаблону, партиями через SCAN.
func (c *RedisCache) DelPattern(pattern string) error {
ctx := context.Background()
iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
keys := make([]string, 0, 100)
for iter.Next(ctx) {
keys = append(keys, iter.Val())
if len(keys) == 100 {
if err := c.client.Del(ctx, keys...).Err(); err != nil {
return err
}
keys = keys[:0]
}
}
if err := iter.Err(); err != nil {
return err
}
if len(keys) > 0 {
return c.client.Del(ctx, keys...).Err()
}
return nil
}
