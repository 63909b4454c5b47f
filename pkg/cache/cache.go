// Package cache provides a small JSON value cache with in-memory and Redis
// backends, used to shield venues from repeat historical fetches.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service defines the cache operations the application needs.
type Service interface {
	// Set stores value (JSON-marshaled for non-string values) under key.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// Get unmarshals the cached value into dest or returns ErrCacheMiss.
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
