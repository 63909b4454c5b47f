package repository

import (
	"context"
	"time"

	"marketpulse/internal/domain/models"
	"marketpulse/internal/domain/repository"
	pkgcache "marketpulse/pkg/cache"
)

// CachedBars implements BarCache over a cache.Service. Entries are short
// lived: bars only need to survive repeat requests within one interval.
type CachedBars struct {
	svc pkgcache.Service
	ttl time.Duration
}

// NewCachedBars creates a bar cache with the given TTL (default 30s).
func NewCachedBars(svc pkgcache.Service, ttl time.Duration) repository.BarCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedBars{svc: svc, ttl: ttl}
}

func (c *CachedBars) Get(ctx context.Context, key string) ([]models.Bar, bool) {
	var bars []models.Bar
	if err := c.svc.Get(ctx, key, &bars); err != nil {
		return nil, false
	}
	if len(bars) == 0 {
		return nil, false
	}
	return bars, true
}

func (c *CachedBars) Set(ctx context.Context, key string, bars []models.Bar) {
	if len(bars) == 0 {
		return
	}
	_ = c.svc.Set(ctx, key, bars, c.ttl)
}
