package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a thin wrapper used as a read-through cache for the daily
// meme selection. The cache is optional: callers treat a nil *RedisCache as
// "no cache configured".
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes a Redis client. Only addr is mandatory.
func NewRedisCache(addr, password string, db int) *RedisCache {
	opts := &redis.Options{
		Addr: addr,
	}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

// KeyForMemeOfTheDay generates the cache key for one calendar day.
func (c *RedisCache) KeyForMemeOfTheDay(day string) string {
	return "motd:" + day
}

// GetMemeOfTheDay returns the cached pick for a day, or "" on a miss.
func (c *RedisCache) GetMemeOfTheDay(ctx context.Context, day string) (string, error) {
	val, err := c.Get(ctx, c.KeyForMemeOfTheDay(day))
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	return val, nil
}

// SetMemeOfTheDay caches the pick until it goes stale at the next midnight.
func (c *RedisCache) SetMemeOfTheDay(ctx context.Context, day, memeID string, ttl time.Duration) error {
	return c.Set(ctx, c.KeyForMemeOfTheDay(day), memeID, ttl)
}
