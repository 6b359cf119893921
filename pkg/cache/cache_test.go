package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type point struct {
	Body string  `json:"body"`
	Lon  float64 `json:"lon"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(10))
	defer mc.Close()

	if err := mc.Set(ctx, "moon", point{"Moon", 72.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got point
	if err := mc.Get(ctx, "moon", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Lon != 72.5 {
		t.Fatalf("unexpected value %+v", got)
	}

	var missing point
	if err := mc.Get(ctx, "sun", &missing); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	var s string
	if err := mc.Get(ctx, "k", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(time.Millisecond)
	var v int
	_ = mc.Get(ctx, "a", &v) // a is now fresher than b
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, time.Minute)

	if mc.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", mc.Len())
	}
	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a"); !ok {
		t.Fatalf("a should survive")
	}
}

func TestLayeredCacheFillsL1(t *testing.T) {
	ctx := context.Background()
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2, WithLayeredMemorySize(4))
	defer lc.Close()

	_ = l2.Set(ctx, "sun", point{"Sun", 10}, time.Minute)

	var got point
	if err := lc.Get(ctx, "sun", &got); err != nil || got.Lon != 10 {
		t.Fatalf("expected L2 hit, got %+v %v", got, err)
	}
	_ = l2.Delete(ctx, "sun")
	got = point{}
	if err := lc.Get(ctx, "sun", &got); err != nil || got.Body != "Sun" {
		t.Fatalf("expected L1 hit after fill, got %+v %v", got, err)
	}
}

func TestGenerateKeyWithParams(t *testing.T) {
	if k := GenerateKeyWithParams("ephem", "Moon", 1700000000); k != "ephem:Moon:1700000000" {
		t.Fatalf("unexpected key %s", k)
	}
}
