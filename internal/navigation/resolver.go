// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package navigation resolves the chronological neighbours of an article.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/repository"
)

// Navigation links an article to its published neighbours. A nil field means
// the article is first (Previous) or last (Next) in publication order.
type Navigation struct {
	Previous *content.Summary `json:"previous,omitempty"`
	Next     *content.Summary `json:"next,omitempty"`
}

// AdjacentQuerier runs adjacent queries. repository.Repository satisfies it.
type AdjacentQuerier interface {
	QueryAdjacent(ctx context.Context, q repository.AdjacentQuery) ([]repository.Raw, error)
}

// Resolver finds the previous and next published article.
type Resolver struct {
	repo   AdjacentQuerier
	logger *slog.Logger
}

// NewResolver creates a Resolver over repo.
func NewResolver(repo AdjacentQuerier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve returns the article published immediately before and after a.
// Both queries run concurrently; if either fails the whole resolution fails
// with an error matching content.ErrRepositoryUnavailable.
func (r *Resolver) Resolve(ctx context.Context, a content.Article) (Navigation, error) {
	var nav Navigation

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		prev, err := r.neighbour(gctx, a, repository.Descending)
		nav.Previous = prev
		return err
	})
	g.Go(func() error {
		next, err := r.neighbour(gctx, a, repository.Ascending)
		nav.Next = next
		return err
	})

	if err := g.Wait(); err != nil {
		return Navigation{}, err
	}
	return nav, nil
}

func (r *Resolver) neighbour(ctx context.Context, a content.Article, dir repository.Direction) (*content.Summary, error) {
	docs, err := r.repo.QueryAdjacent(ctx, repository.AdjacentQuery{
		ID:             a.ID,
		FirstPublished: a.FirstPublished,
		Direction:      dir,
		PageSize:       1,
	})
	if err != nil {
		return nil, unavailable(fmt.Errorf("querying %s neighbour of %q: %w", dir, a.ID, err))
	}

	for _, doc := range docs {
		s, err := content.NormalizeSummary(doc)
		if err != nil {
			return nil, fmt.Errorf("%s neighbour of %q: %w", dir, a.ID, err)
		}
		if s.ID == a.ID {
			continue
		}
		if !strictlyOrdered(a.FirstPublished, s, dir) {
			r.logger.Warn("repository returned out-of-order neighbour",
				"article", a.ID, "neighbour", s.ID, "direction", string(dir))
			continue
		}
		return &s, nil
	}
	return nil, nil
}

// strictlyOrdered reports whether s lies strictly on the dir side of published.
func strictlyOrdered(published time.Time, s content.Summary, dir repository.Direction) bool {
	if dir == repository.Descending {
		return s.FirstPublished.Before(published)
	}
	return s.FirstPublished.After(published)
}

// unavailable makes err match content.ErrRepositoryUnavailable.
func unavailable(err error) error {
	if errors.Is(err, content.ErrRepositoryUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", content.ErrRepositoryUnavailable, err)
}
