package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
)

type RedisDirectoryCache struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects to Redis and verifies the connection with a ping.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedisDirectoryCache(client *redis.Client, prefix string) *RedisDirectoryCache {
	return &RedisDirectoryCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisDirectoryCache) usersKey() string {
	return fmt.Sprintf("%s:users", c.prefix)
}

func (c *RedisDirectoryCache) GetUsers(ctx context.Context) ([]domain.User, error) {
	data, err := c.client.Get(ctx, c.usersKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var users []domain.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return users, nil
}

func (c *RedisDirectoryCache) SetUsers(ctx context.Context, users []domain.User, ttl time.Duration) error {
	if users == nil {
		users = []domain.User{}
	}
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, c.usersKey(), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

func (c *RedisDirectoryCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.usersKey()).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (c *RedisDirectoryCache) Close() error {
	return c.client.Close()
}
