// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package listing

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRegistry_AddGet(t *testing.T) {
	r := NewRegistry(time.Minute, 0)
	s := NewSession(&pageFetcher{})

	id := r.Add(s)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("id %q is not a uuid: %v", id, err)
	}

	got, ok := r.Get(id)
	if !ok || got != s {
		t.Fatalf("Get(%q) = %v, %v", id, got, ok)
	}
	if _, ok := r.Get("unknown"); ok {
		t.Error("unknown id should not be found")
	}
}

func TestRegistry_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(10*time.Minute, 0)
	r.now = func() time.Time { return now }

	kept := r.Add(NewSession(&pageFetcher{}))
	idle := r.Add(NewSession(&pageFetcher{}))

	now = now.Add(6 * time.Minute)
	if _, ok := r.Get(kept); !ok {
		t.Fatal("session expired early")
	}

	now = now.Add(6 * time.Minute)
	if removed := r.Sweep(); removed != 1 {
		t.Errorf("Sweep removed %d, want 1", removed)
	}
	if _, ok := r.Get(idle); ok {
		t.Error("idle session should have been swept")
	}
	if _, ok := r.Get(kept); !ok {
		t.Error("recently used session should survive the sweep")
	}

	now = now.Add(11 * time.Minute)
	if _, ok := r.Get(kept); ok {
		t.Error("expired session returned by Get")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Hour, 2)
	r.now = func() time.Time { return now }

	first := r.Add(NewSession(&pageFetcher{}))
	now = now.Add(time.Second)
	second := r.Add(NewSession(&pageFetcher{}))
	now = now.Add(time.Second)
	r.Get(first)
	now = now.Add(time.Second)
	third := r.Add(NewSession(&pageFetcher{}))

	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if _, ok := r.Get(second); ok {
		t.Error("least recently used session should have been evicted")
	}
	for _, id := range []string{first, third} {
		if _, ok := r.Get(id); !ok {
			t.Errorf("session %s should remain", id)
		}
	}
}
