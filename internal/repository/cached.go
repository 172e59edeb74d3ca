// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-blog/internal/cache"
)

// Cache key prefixes.
const (
	cachePrefix         = "repo:"
	cacheKeyDocument    = cachePrefix + "doc:"
	cacheKeyListingPage = cachePrefix + "page:"
	cacheKeyAdjacent    = cachePrefix + "adj:"
)

type cachedPage struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"next_cursor"`
}

type cachedDocuments struct {
	Items []json.RawMessage `json:"items"`
}

// Cached decorates a Repository with a read-through cache of published
// content. Reads at a preview ref always reach the underlying repository.
type Cached struct {
	next      Repository
	cache     cache.Cacher
	pages     *cache.TypedCache[cachedPage]
	adjacents *cache.TypedCache[cachedDocuments]
	ttl       time.Duration
	logger    *slog.Logger
}

// NewCached wraps next with c. A zero ttl uses the cache default.
func NewCached(next Repository, c cache.Cacher, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		next:      next,
		cache:     c,
		pages:     cache.NewTypedCache[cachedPage](c, ttl).WithLogger(logger),
		adjacents: cache.NewTypedCache[cachedDocuments](c, ttl).WithLogger(logger),
		ttl:       ttl,
		logger:    logger,
	}
}

// FetchListingPage implements Repository.
func (r *Cached) FetchListingPage(ctx context.Context, cursor string) (RawPage, error) {
	page, err := r.pages.GetOrSet(ctx, cacheKeyListingPage+cursor, func() (*cachedPage, error) {
		page, err := r.next.FetchListingPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		return &cachedPage{Items: toRawMessages(page.Items), NextCursor: page.NextCursor}, nil
	})
	if err != nil {
		return RawPage{}, err
	}
	return RawPage{Items: fromRawMessages(page.Items), NextCursor: page.NextCursor}, nil
}

// FetchByUID implements Repository.
func (r *Cached) FetchByUID(ctx context.Context, uid, ref string) (Raw, error) {
	if ref != "" {
		return r.next.FetchByUID(ctx, uid, ref)
	}

	key := cacheKeyDocument + uid
	if data, err := r.cache.Get(ctx, key); err == nil {
		return Raw(data), nil
	}

	raw, err := r.next.FetchByUID(ctx, uid, "")
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, raw, r.ttl); err != nil {
		r.logger.Warn("failed to cache document", "uid", uid, "error", err)
	}
	return raw, nil
}

// QueryAdjacent implements Repository.
func (r *Cached) QueryAdjacent(ctx context.Context, q AdjacentQuery) ([]Raw, error) {
	key := fmt.Sprintf("%s%s:%d:%s:%d", cacheKeyAdjacent, q.Direction, q.FirstPublished.UnixMilli(), q.ID, q.PageSize)
	docs, err := r.adjacents.GetOrSet(ctx, key, func() (*cachedDocuments, error) {
		items, err := r.next.QueryAdjacent(ctx, q)
		if err != nil {
			return nil, err
		}
		return &cachedDocuments{Items: toRawMessages(items)}, nil
	})
	if err != nil {
		return nil, err
	}
	return fromRawMessages(docs.Items), nil
}

// Purge drops every cached repository response.
func (r *Cached) Purge(ctx context.Context) error {
	return r.cache.DeleteByPrefix(ctx, cachePrefix)
}

// toRawMessages wraps items for storage. Documents that are not valid JSON
// make the store fail, so such responses are served but never cached.
func toRawMessages(items []Raw) []json.RawMessage {
	out := make([]json.RawMessage, len(items))
	for i, item := range items {
		out[i] = json.RawMessage(item)
	}
	return out
}

func fromRawMessages(items []json.RawMessage) []Raw {
	out := make([]Raw, len(items))
	for i, item := range items {
		out[i] = Raw(item)
	}
	return out
}

var _ Repository = (*Cached)(nil)
