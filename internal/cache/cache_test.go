package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if v, ok, _ := c.Get(ctx, "k"); !ok || string(v) != "v" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}
	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	_ = c.Set(ctx, "slots:labels:doc-1:2026-03-01", []byte("a"), 0)
	_ = c.Set(ctx, "slots:labels:doc-1:2026-03-02", []byte("b"), 0)
	_ = c.Set(ctx, "slots:labels:doc-2:2026-03-01", []byte("c"), 0)

	if err := c.DeletePrefix(ctx, "slots:labels:doc-1:"); err != nil {
		t.Fatalf("DeletePrefix error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "slots:labels:doc-1:2026-03-02"); ok {
		t.Fatalf("expected doc-1 entries removed")
	}
	if _, ok, _ := c.Get(ctx, "slots:labels:doc-2:2026-03-01"); !ok {
		t.Fatalf("expected doc-2 entry kept")
	}
}
