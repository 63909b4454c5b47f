package cache

import (
	"context"
	"time"
)

// LayeredCache is a two-level cache: memory in front of a remote backend,
// typically Redis.
type LayeredCache struct {
	mem        *MemoryCache
	remote     Service
	promoteTTL time.Duration
}

// NewLayeredCache builds a layered cache over an existing remote cache.
// promoteTTL bounds how long a remote hit lives in the memory layer.
func NewLayeredCache(remote Service, memoryMaxSize int, promoteTTL time.Duration) *LayeredCache {
	if promoteTTL <= 0 {
		promoteTTL = 30 * time.Second
	}
	return &LayeredCache{
		mem:        NewMemoryCache(memoryMaxSize),
		remote:     remote,
		promoteTTL: promoteTTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	// write-through: remote first, then memory
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, expiration)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	var raw []byte
	if err := lc.remote.Get(ctx, key, &raw); err != nil {
		return err
	}
	// promoted entries expire on their own so they cannot outlive the
	// remote copy for long
	_ = lc.mem.Set(ctx, key, raw, lc.promoteTTL)
	return unmarshalValue(raw, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.remote.Close()
}
