package cache

import (
	"context"
	"delivery-trajectory-service/internal/domain"
	"delivery-trajectory-service/internal/platform/obs"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisRoutePrefix = "route:"

// RedisRouteCache shares planned routes between dashboard instances.
// Entries expire after TTL so road changes are eventually picked up.
type RedisRouteCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRouteCache(client *redis.Client, ttl time.Duration) *RedisRouteCache {
	return &RedisRouteCache{Client: client, TTL: ttl}
}

func (r *RedisRouteCache) GetRoute(ctx context.Context, key string) (_ domain.Path, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.redis.GetRoute")(&err)

	if r.Client == nil {
		return nil, false, errors.New("route cache: redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get route cache: key must not be empty")
	}

	raw, err := r.Client.Get(ctx, redisRoutePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: redis GET: %w", err)
	}

	path, err := decodePath(raw)
	if err != nil {
		return nil, false, fmt.Errorf("get route cache key=%q: %w", key, err)
	}
	return path, true, nil
}

func (r *RedisRouteCache) PutRoute(ctx context.Context, key string, path domain.Path) error {
	if r.Client == nil {
		return errors.New("route cache: redis client is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("insert route cache: key must not be empty")
	}

	raw, err := encodePath(path)
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	if err := r.Client.Set(ctx, redisRoutePrefix+key, raw, r.TTL).Err(); err != nil {
		return fmt.Errorf("insert route cache: redis SET %s: %w", key, err)
	}
	return nil
}

// NewRedisClient connects and verifies the server with a PING.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
