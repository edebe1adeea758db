package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/fixora/accounts/application/port/outbound"
	"github.com/fixora/accounts/domain/entity"
)

const keyPrefix = "user:"

type UserCacheConfig struct {
	Enabled  bool
	RedisURL string
	TTL      time.Duration
}

type redisUserCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache connects to Redis, or returns a cache that always misses when disabled.
func NewUserCache(ctx context.Context, config UserCacheConfig) (outbound.UserCache, error) {
	if !config.Enabled {
		return NoopUserCache{}, nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisUserCache(client, config.TTL), nil
}

func NewRedisUserCache(client *redis.Client, ttl time.Duration) outbound.UserCache {
	return &redisUserCache{client: client, ttl: ttl}
}

func (c *redisUserCache) Get(ctx context.Context, id string) (*entity.User, error) {
	raw, err := c.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, outbound.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cached user: %w", err)
	}

	var user entity.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &user, nil
}

func (c *redisUserCache) Set(ctx context.Context, user *entity.User) error {
	if user == nil || user.ID == "" {
		return errors.New("cannot cache user without ID")
	}

	// entity.User never marshals its password hash
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	if err := c.client.Set(ctx, key(user.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

func (c *redisUserCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached user: %w", err)
	}
	return nil
}

func key(id string) string {
	return keyPrefix + id
}

// NoopUserCache always misses.
type NoopUserCache struct{}

func (NoopUserCache) Get(context.Context, string) (*entity.User, error) {
	return nil, outbound.ErrCacheMiss
}

func (NoopUserCache) Set(context.Context, *entity.User) error { return nil }

func (NoopUserCache) Invalidate(context.Context, string) error { return nil }
