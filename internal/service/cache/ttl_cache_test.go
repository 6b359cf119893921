package cache

import (
	"context"
	"testing"
	"time"
)

func TestTTLCache(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(2)

	_ = c.SetBytes(ctx, "a", []byte("1"), time.Minute)
	if b, ok, _ := c.GetBytes(ctx, "a"); !ok || string(b) != "1" {
		t.Fatalf("expected hit")
	}

	_ = c.SetBytes(ctx, "b", []byte("2"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, ok, _ := c.GetBytes(ctx, "b"); ok {
		t.Fatalf("expected expiry")
	}

	_ = c.SetBytes(ctx, "b", []byte("2"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_ = c.SetBytes(ctx, "c", []byte("3"), time.Minute)
	if _, ok, _ := c.GetBytes(ctx, "c"); !ok {
		t.Fatalf("full cache should sweep expired entries before dropping")
	}
}
