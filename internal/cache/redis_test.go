// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// skipIfNoRedis skips the test if Redis is not configured.
func skipIfNoRedis(t *testing.T) string {
	t.Helper()
	url := os.Getenv("OCMS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("Skipping Redis tests: OCMS_TEST_REDIS_URL not set")
	}
	return url
}

func TestRedisCache_Basic(t *testing.T) {
	url := skipIfNoRedis(t)

	cache, err := NewRedisCacheFromURL(url, "blogtest:", time.Minute)
	if err != nil {
		t.Fatalf("failed to create Redis cache: %v", err)
	}
	defer func() { _ = cache.Close() }()
	ctx := context.Background()
	_ = cache.Clear(ctx)

	if err := cache.Set(ctx, "article:a", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := cache.Get(ctx, "article:a")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	_ = cache.Set(ctx, "listing:1", []byte("x"), time.Minute)
	if err := cache.DeleteByPrefix(ctx, "listing:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if has, _ := cache.Has(ctx, "listing:1"); has {
		t.Error("listing:1 should have been deleted")
	}

	if _, err := cache.Get(ctx, "missing"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
	if err := cache.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisCache_EmptyURL(t *testing.T) {
	if _, err := NewRedisCache(RedisCacheOptions{}); err == nil {
		t.Error("expected error for empty URL")
	}
}

func TestRedisCache_InvalidURL(t *testing.T) {
	if _, err := NewRedisCacheFromURL("not-a-redis-url", "", 0); err == nil {
		t.Error("expected error for invalid URL")
	}
}

func TestNew_MemoryByDefault(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if Backend(c) != "memory" {
		t.Errorf("Backend = %q, want memory", Backend(c))
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisURL = "redis://127.0.0.1:1/0"
	if _, err := New(cfg); err == nil {
		t.Error("expected error for unreachable redis")
	}
}
