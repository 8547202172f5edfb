// Package redis wraps go-redis/v9 for the shared query cache: byte values
// with a TTL, and prefix-scoped invalidation.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/config"
)

const (
	dialTimeout = 5 * time.Second
	scanCount   = 200
)

type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClient connects and verifies the connection with a PING. The pool is
// closed again when the PING fails.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: dialTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &Client{
		rdb:    rdb,
		logger: slog.Default().With("component", "redis", "addr", cfg.Addr),
	}, nil
}

// Lookup returns the value stored under key. A missing key is reported as
// false with a nil error.
func (c *Client) Lookup(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

// Store writes value under key. A ttl of zero keeps the key until it is
// deleted.
func (c *Client) Store(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix. Keys are scanned in
// pages and unlinked one page per round trip.
func (c *Client) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", scanCount).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis scan %s*: %w", prefix, err)
		}
		if len(keys) > 0 {
			n, err := c.rdb.Unlink(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("redis unlink: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	c.logger.Debug("keys deleted", "prefix", prefix, "count", deleted)
	return deleted, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
