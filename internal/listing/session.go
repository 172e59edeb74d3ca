// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package listing merges paged repository results into one stable,
// duplicate-free article sequence per client session.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/repository"
)

// State is the lifecycle state of a Session.
type State string

const (
	// Empty sessions have not received their first page.
	Empty State = "empty"
	// Loaded sessions hold items and a cursor to the next page.
	Loaded State = "loaded"
	// Exhausted sessions hold items and no further cursor.
	Exhausted State = "exhausted"
)

var (
	// ErrNotInitialized is returned by LoadMore before Initialize.
	ErrNotInitialized = errors.New("listing session not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("listing session already initialized")
)

// PageFetcher fetches one raw listing page. repository.Repository satisfies it.
type PageFetcher interface {
	FetchListingPage(ctx context.Context, cursor string) (repository.RawPage, error)
}

// Snapshot is a consistent copy of a session's visible state.
type Snapshot struct {
	Items  []content.Summary `json:"items"`
	Cursor string            `json:"cursor,omitempty"`
	State  State             `json:"state"`
}

// Session is the accumulated listing of one client. Each article id appears
// at most once and items are never reordered or removed.
type Session struct {
	fetcher PageFetcher

	// loading is held for the whole duration of a LoadMore call.
	loading atomic.Bool

	mu     sync.RWMutex
	state  State
	items  []content.Summary
	seen   map[string]struct{}
	cursor string
}

// NewSession creates an Empty session that loads further pages from fetcher.
func NewSession(fetcher PageFetcher) *Session {
	return &Session{
		fetcher: fetcher,
		state:   Empty,
		items:   []content.Summary{},
		seen:    make(map[string]struct{}),
	}
}

// Initialize loads the first page. Duplicate ids within the page are dropped.
func (s *Session) Initialize(page content.ListingPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Empty {
		return ErrAlreadyInitialized
	}

	s.appendUnseen(page.Items)
	s.advance(page.Cursor)
	return nil
}

// LoadMore fetches the page at the current cursor and appends the articles
// not already present, returning only those. A call made while another is in
// flight fails immediately with content.ErrAlreadyLoading. On any failure the
// session is left exactly as it was.
func (s *Session) LoadMore(ctx context.Context) ([]content.Summary, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return nil, content.ErrAlreadyLoading
	}
	defer s.loading.Store(false)

	s.mu.RLock()
	state, cursor := s.state, s.cursor
	s.mu.RUnlock()

	switch state {
	case Empty:
		return nil, ErrNotInitialized
	case Exhausted:
		return nil, content.ErrNoMorePages
	}

	raw, err := s.fetcher.FetchListingPage(ctx, cursor)
	if err != nil {
		return nil, fmt.Errorf("loading next listing page: %w", err)
	}
	page, err := NormalizePage(raw)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appended := s.appendUnseen(page.Items)
	s.advance(page.Cursor)
	return appended, nil
}

// Loading reports whether a LoadMore call is in flight.
func (s *Session) Loading() bool {
	return s.loading.Load()
}

// Snapshot returns a copy of the items with the cursor and state, read under
// one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items:  append([]content.Summary{}, s.items...),
		Cursor: s.cursor,
		State:  s.state,
	}
}

// appendUnseen must be called with mu held.
func (s *Session) appendUnseen(items []content.Summary) []content.Summary {
	appended := make([]content.Summary, 0, len(items))
	for _, item := range items {
		if _, dup := s.seen[item.ID]; dup {
			continue
		}
		s.seen[item.ID] = struct{}{}
		s.items = append(s.items, item)
		appended = append(appended, item)
	}
	return appended
}

// advance must be called with mu held.
func (s *Session) advance(cursor string) {
	s.cursor = cursor
	if cursor == "" {
		s.state = Exhausted
	} else {
		s.state = Loaded
	}
}

// NormalizePage converts a raw repository page into summaries. Any malformed
// record fails the whole page.
func NormalizePage(raw repository.RawPage) (content.ListingPage, error) {
	items := make([]content.Summary, 0, len(raw.Items))
	for i, doc := range raw.Items {
		summary, err := content.NormalizeSummary(doc)
		if err != nil {
			return content.ListingPage{}, fmt.Errorf("listing item %d: %w", i, err)
		}
		items = append(items, summary)
	}
	return content.ListingPage{Items: items, Cursor: raw.NextCursor}, nil
}
