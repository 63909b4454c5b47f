package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	mc := NewMemoryCache(10)
	ctx := context.Background()

	type payload struct {
		Symbol string
		Closes []float64
	}
	in := payload{Symbol: "BTCUSDT", Closes: []float64{1, 2, 3}}
	if err := mc.Set(ctx, "k", in, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out payload
	if err := mc.Get(ctx, "k", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Symbol != in.Symbol || len(out.Closes) != 3 {
		t.Fatalf("unexpected value: %+v", out)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache(10)
	var out string
	if err := mc.Get(context.Background(), "absent", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache(10)
	ctx := context.Background()
	if err := mc.Set(ctx, "k", "v", time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	var out string
	if err := mc.Get(ctx, "k", &out); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry miss, got %v", err)
	}
}

func TestMemoryCacheEvictsAtCapacity(t *testing.T) {
	mc := NewMemoryCache(2)
	ctx := context.Background()
	_ = mc.Set(ctx, "a", "1", time.Minute)
	_ = mc.Set(ctx, "b", "2", time.Hour)
	_ = mc.Set(ctx, "c", "3", time.Hour)
	if len(mc.data) > 2 {
		t.Fatalf("capacity exceeded: %d entries", len(mc.data))
	}
}
