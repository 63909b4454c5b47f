package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

func (m *memoryItem) expired() bool {
	return !m.expireAt.IsZero() && time.Now().After(m.expireAt)
}

// MemoryCache implements Service using in-process storage with lazy
// expiration and a soft size cap.
type MemoryCache struct {
	mu      sync.RWMutex
	data    map[string]*memoryItem
	maxSize int
}

// NewMemoryCache creates an in-memory cache. maxSize <= 0 means 1000.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		data:    make(map[string]*memoryItem),
		maxSize: maxSize,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := marshalValue(value)
	if err != nil {
		return err
	}
	var expireAt time.Time
	if expiration > 0 {
		expireAt = time.Now().Add(expiration)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if len(mc.data) >= mc.maxSize {
		mc.evictOne()
	}
	mc.data[key] = &memoryItem{data: data, expireAt: expireAt}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.RLock()
	item, ok := mc.data[key]
	mc.mu.RUnlock()
	if !ok || item.expired() {
		if ok {
			mc.mu.Lock()
			delete(mc.data, key)
			mc.mu.Unlock()
		}
		return ErrCacheMiss
	}
	return unmarshalValue(item.data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Close() error { return nil }

// evictOne removes the entry closest to expiry; called with mu held.
func (mc *MemoryCache) evictOne() {
	var victim string
	var soonest time.Time
	for key, item := range mc.data {
		if item.expired() {
			delete(mc.data, key)
			return
		}
		if victim == "" || (!item.expireAt.IsZero() && item.expireAt.Before(soonest)) {
			victim = key
			soonest = item.expireAt
		}
	}
	if victim != "" {
		delete(mc.data, victim)
	}
}

func marshalValue(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(value)
	}
}

func unmarshalValue(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	case *string:
		*d = string(data)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
