// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-blog/internal/cache"
	"github.com/olegiv/ocms-blog/internal/content"
)

// countingRepository records calls per method.
type countingRepository struct {
	mu       sync.Mutex
	pages    int
	byUID    int
	adjacent int
	fail     error
}

func (r *countingRepository) FetchListingPage(_ context.Context, cursor string) (RawPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages++
	if r.fail != nil {
		return RawPage{}, r.fail
	}
	return RawPage{Items: []Raw{Raw(`{"uid":"a"}`)}, NextCursor: cursor + "n"}, nil
}

func (r *countingRepository) FetchByUID(_ context.Context, uid, ref string) (Raw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUID++
	if r.fail != nil {
		return nil, r.fail
	}
	return Raw(`{"uid":"` + uid + `","ref":"` + ref + `"}`), nil
}

func (r *countingRepository) QueryAdjacent(_ context.Context, q AdjacentQuery) ([]Raw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjacent++
	if r.fail != nil {
		return nil, r.fail
	}
	return []Raw{Raw(`{"uid":"` + string(q.Direction) + `"}`)}, nil
}

func newTestCached(t *testing.T, next Repository) *Cached {
	t.Helper()
	c := cache.NewSimpleMemoryCache(time.Hour)
	t.Cleanup(func() { _ = c.Close() })
	return NewCached(next, c, time.Hour, nil)
}

func TestCached_FetchByUID(t *testing.T) {
	next := &countingRepository{}
	repo := newTestCached(t, next)
	ctx := context.Background()

	for range 3 {
		raw, err := repo.FetchByUID(ctx, "hello", "")
		require.NoError(t, err)
		assert.JSONEq(t, `{"uid":"hello","ref":""}`, string(raw))
	}
	assert.Equal(t, 1, next.byUID)
}

func TestCached_PreviewRefBypassesCache(t *testing.T) {
	next := &countingRepository{}
	repo := newTestCached(t, next)
	ctx := context.Background()

	_, err := repo.FetchByUID(ctx, "hello", "")
	require.NoError(t, err)

	for range 2 {
		raw, err := repo.FetchByUID(ctx, "hello", "draft")
		require.NoError(t, err)
		assert.JSONEq(t, `{"uid":"hello","ref":"draft"}`, string(raw))
	}
	assert.Equal(t, 3, next.byUID)

	// The published entry is not overwritten by draft reads.
	raw, err := repo.FetchByUID(ctx, "hello", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uid":"hello","ref":""}`, string(raw))
}

func TestCached_FetchListingPage(t *testing.T) {
	next := &countingRepository{}
	repo := newTestCached(t, next)
	ctx := context.Background()

	first, err := repo.FetchListingPage(ctx, "")
	require.NoError(t, err)
	second, err := repo.FetchListingPage(ctx, "")
	require.NoError(t, err)

	assert.Equal(t, 1, next.pages)
	assert.Equal(t, first.NextCursor, second.NextCursor)
	require.Len(t, second.Items, 1)
	assert.JSONEq(t, `{"uid":"a"}`, string(second.Items[0]))

	_, err = repo.FetchListingPage(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 2, next.pages)
}

// invalidPageRepository serves listing pages whose documents are not JSON.
type invalidPageRepository struct {
	countingRepository
}

func (r *invalidPageRepository) FetchListingPage(_ context.Context, _ string) (RawPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages++
	return RawPage{Items: []Raw{Raw(`{broken`)}}, nil
}

func TestCached_InvalidDocumentsAreServedNotCached(t *testing.T) {
	next := &invalidPageRepository{}
	repo := newTestCached(t, next)
	ctx := context.Background()

	for range 2 {
		page, err := repo.FetchListingPage(ctx, "")
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "{broken", string(page.Items[0]))
	}
	assert.Equal(t, 2, next.pages)
}

func TestCached_QueryAdjacent(t *testing.T) {
	next := &countingRepository{}
	repo := newTestCached(t, next)
	ctx := context.Background()
	published := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	prev := AdjacentQuery{ID: "x", FirstPublished: published, Direction: Descending, PageSize: 1}
	nextQ := AdjacentQuery{ID: "x", FirstPublished: published, Direction: Ascending, PageSize: 1}

	for range 2 {
		items, err := repo.QueryAdjacent(ctx, prev)
		require.NoError(t, err)
		assert.JSONEq(t, `{"uid":"desc"}`, string(items[0]))

		items, err = repo.QueryAdjacent(ctx, nextQ)
		require.NoError(t, err)
		assert.JSONEq(t, `{"uid":"asc"}`, string(items[0]))
	}
	assert.Equal(t, 2, next.adjacent)
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	next := &countingRepository{fail: content.ErrRepositoryUnavailable}
	repo := newTestCached(t, next)
	ctx := context.Background()

	_, err := repo.FetchByUID(ctx, "x", "")
	assert.ErrorIs(t, err, content.ErrRepositoryUnavailable)

	next.fail = nil
	_, err = repo.FetchByUID(ctx, "x", "")
	require.NoError(t, err)
	assert.Equal(t, 2, next.byUID)
}

func TestCached_Purge(t *testing.T) {
	next := &countingRepository{}
	repo := newTestCached(t, next)
	ctx := context.Background()

	_, _ = repo.FetchByUID(ctx, "x", "")
	require.NoError(t, repo.Purge(ctx))
	_, _ = repo.FetchByUID(ctx, "x", "")

	assert.Equal(t, 2, next.byUID)
}
