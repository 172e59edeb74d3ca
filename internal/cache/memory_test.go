// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL: ttl,
		MaxSize:    maxSize,
		// No background cleanup for tests
	})
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 100)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "article:a", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "article:a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", string(val))
	}

	has, err := cache.Has(ctx, "article:a")
	if err != nil || !has {
		t.Errorf("Has = %v, %v; want true, nil", has, err)
	}

	if err := cache.Delete(ctx, "article:a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "article:a"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := newTestMemoryCache(20*time.Millisecond, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), 0)
	_ = cache.Set(ctx, "long", []byte("v"), time.Hour)

	time.Sleep(40 * time.Millisecond)

	if _, err := cache.Get(ctx, "short"); err != ErrCacheMiss {
		t.Errorf("expected expired entry to miss, got %v", err)
	}
	if _, err := cache.Get(ctx, "long"); err != nil {
		t.Errorf("expected custom TTL entry to survive, got %v", err)
	}
	if has, _ := cache.Has(ctx, "short"); has {
		t.Error("Has reported an expired entry")
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "listing:1", []byte("a"), 0)
	_ = cache.Set(ctx, "listing:2", []byte("b"), 0)
	_ = cache.Set(ctx, "article:x", []byte("c"), 0)

	if err := cache.DeleteByPrefix(ctx, "listing:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	for _, key := range []string{"listing:1", "listing:2"} {
		if has, _ := cache.Has(ctx, key); has {
			t.Errorf("%s should have been deleted", key)
		}
	}
	if has, _ := cache.Has(ctx, "article:x"); !has {
		t.Error("article:x should remain")
	}
}

func TestMemoryCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 2)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "first", []byte("1"), 0)
	time.Sleep(time.Millisecond)
	_ = cache.Set(ctx, "second", []byte("2"), 0)
	time.Sleep(time.Millisecond)
	_ = cache.Set(ctx, "third", []byte("3"), 0)

	if has, _ := cache.Has(ctx, "first"); has {
		t.Error("oldest entry should have been evicted")
	}
	if stats := cache.Stats(); stats.Items != 2 {
		t.Errorf("Items = %d, want 2", stats.Items)
	}

	// Overwriting an existing key never evicts.
	_ = cache.Set(ctx, "third", []byte("3b"), 0)
	if has, _ := cache.Has(ctx, "second"); !has {
		t.Error("overwrite evicted an unrelated entry")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "k", []byte("abcd"), 0)
	_, _ = cache.Get(ctx, "k")
	_, _ = cache.Get(ctx, "missing")

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Sets != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.HitRate != 50 {
		t.Errorf("HitRate = %v, want 50", stats.HitRate)
	}
	if stats.Size != 4 {
		t.Errorf("Size = %d, want 4", stats.Size)
	}

	cache.ResetStats()
	if stats := cache.Stats(); stats.Hits != 0 || stats.Misses != 0 {
		t.Errorf("stats not reset: %+v", stats)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	original := []byte("original")
	_ = cache.Set(ctx, "k", original, 0)
	original[0] = 'X'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "original" {
		t.Errorf("stored value mutated through caller slice: %q", got)
	}
	got[0] = 'Y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 50)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d-%d", n, j%10)
				_ = cache.Set(ctx, key, []byte("v"), 0)
				_, _ = cache.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewSimpleMemoryCache(time.Hour)
	ctx := context.Background()

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := cache.Get(ctx, "k"); err != ErrCacheClosed {
		t.Errorf("Get after Close = %v, want ErrCacheClosed", err)
	}
	if err := cache.Set(ctx, "k", nil, 0); err != ErrCacheClosed {
		t.Errorf("Set after Close = %v, want ErrCacheClosed", err)
	}
}
