package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	pkgredis "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/redis"
)

// Backend stores encoded search results.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Purge drops every cached result and reports how many were removed.
	Purge(ctx context.Context) (int64, error)
	Name() string
}

// RedisBackend shares results between processes through Redis.
type RedisBackend struct {
	client *pkgredis.Client
	ttl    time.Duration
}

func NewRedisBackend(client *pkgredis.Client, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, ttl: ttl}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.client.Lookup(ctx, key)
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return b.client.Store(ctx, key, value, b.ttl)
}

func (b *RedisBackend) Purge(ctx context.Context) (int64, error) {
	return b.client.DeletePrefix(ctx, keyPrefix)
}

// LocalBackend is a bounded in-process LRU.
type LocalBackend struct {
	lru *lru.Cache[string, []byte]
}

const defaultLocalSize = 1024

func NewLocalBackend(size int) *LocalBackend {
	if size <= 0 {
		size = defaultLocalSize
	}
	c, _ := lru.New[string, []byte](size)
	return &LocalBackend{lru: c}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := b.lru.Get(key)
	return data, ok, nil
}

func (b *LocalBackend) Set(_ context.Context, key string, value []byte) error {
	b.lru.Add(key, value)
	return nil
}

func (b *LocalBackend) Purge(context.Context) (int64, error) {
	var n int64
	for _, key := range b.lru.Keys() {
		if strings.HasPrefix(key, keyPrefix) && b.lru.Remove(key) {
			n++
		}
	}
	return n, nil
}

func (b *LocalBackend) Len() int {
	return b.lru.Len()
}
