// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package listing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxSessions bounds the number of live sessions in a Registry.
const DefaultMaxSessions = 10000

type registryEntry struct {
	session  *Session
	lastUsed time.Time
}

// Registry holds listing sessions between requests, keyed by random ids.
// Sessions idle for longer than the TTL are dropped.
type Registry struct {
	mu          sync.Mutex
	sessions    map[string]*registryEntry
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
}

// NewRegistry creates a registry. Non-positive maxSessions uses DefaultMaxSessions.
func NewRegistry(ttl time.Duration, maxSessions int) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &Registry{
		sessions:    make(map[string]*registryEntry),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// Add stores s and returns its id. At capacity the least recently used
// session is dropped.
func (r *Registry) Add(s *Session) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxSessions {
		r.sweepLocked()
	}
	if len(r.sessions) >= r.maxSessions {
		r.evictOldestLocked()
	}

	id := uuid.NewString()
	r.sessions[id] = &registryEntry{session: s, lastUsed: r.now()}
	return id
}

// Get returns the session for id and refreshes its expiry.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	now := r.now()
	if r.expired(entry, now) {
		delete(r.sessions, id)
		return nil, false
	}
	entry.lastUsed = now
	return entry.session, true
}

// Sweep drops expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked()
}

// Len returns the number of stored sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expired(entry *registryEntry, now time.Time) bool {
	return r.ttl > 0 && now.Sub(entry.lastUsed) > r.ttl
}

func (r *Registry) sweepLocked() int {
	now := r.now()
	removed := 0
	for id, entry := range r.sessions {
		// In-flight sessions stay until their load finishes.
		if r.expired(entry, now) && !entry.session.Loading() {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, entry := range r.sessions {
		if oldestID == "" || entry.lastUsed.Before(oldest) {
			oldestID, oldest = id, entry.lastUsed
		}
	}
	if oldestID != "" {
		delete(r.sessions, oldestID)
	}
}
