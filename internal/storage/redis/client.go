package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dtroode/taskhub-server/internal/model"
)

// Internal adapter interface to enable mocking without a real Redis server.
// *goredis.Client satisfies it directly.
type redisAPI interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// compareAndDelete runs server-side so the read and the delete are one step.
const compareAndDelete = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

var _ model.Cache = (*Client)(nil)

type Client struct {
	api redisAPI
}

// NewClient connects to Redis at addr and verifies the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewClientWithAPI(ctx, rdb)
}

// NewClientWithAPI allows injecting a mockable API (used in tests).
func NewClientWithAPI(ctx context.Context, api redisAPI) (*Client, error) {
	if err := api.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Client{api: api}, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.api.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.api.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", model.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return val, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.api.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

func (c *Client) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := c.api.Eval(ctx, compareAndDelete, []string{key}, value).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to compare and delete key: %w", err)
	}
	return n == 1, nil
}

// Close releases the underlying connection pool when it owns one.
func (c *Client) Close() error {
	if closer, ok := c.api.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
