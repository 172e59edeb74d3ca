// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package blog assembles listing pages and article bundles from the content
// repository. It is the only entry point the HTTP layer uses.
package blog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/listing"
	"github.com/olegiv/ocms-blog/internal/navigation"
	"github.com/olegiv/ocms-blog/internal/preview"
	"github.com/olegiv/ocms-blog/internal/repository"
)

// maxEnumeratedPages bounds AllUIDs against a repository that never
// reports the last page.
const maxEnumeratedPages = 10000

// ArticleBundle is everything the article page shows.
type ArticleBundle struct {
	Article        content.Article       `json:"article"`
	ReadingMinutes int                   `json:"reading_minutes"`
	Navigation     navigation.Navigation `json:"navigation"`
	Edited         bool                  `json:"edited"`
	LastModified   time.Time             `json:"last_modified"`
	Preview        bool                  `json:"preview"`
	Exit           *preview.ExitContract `json:"exit_preview,omitempty"`
}

// Options configures a Service.
type Options struct {
	WordsPerMinute int
	ExitPath       string
	Logger         *slog.Logger
}

// Service combines the repository with normalization, reading time,
// navigation and preview gating.
type Service struct {
	repo      repository.Repository
	estimator content.Estimator
	resolver  *navigation.Resolver
	gate      *preview.Gate
	logger    *slog.Logger
}

// NewService creates a Service over repo.
func NewService(repo repository.Repository, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		estimator: content.NewEstimator(opts.WordsPerMinute),
		resolver:  navigation.NewResolver(repo, logger),
		gate:      preview.NewGate(opts.ExitPath),
		logger:    logger,
	}
}

// Listing returns the listing page at cursor; an empty cursor is the first page.
func (s *Service) Listing(ctx context.Context, cursor string) (content.ListingPage, error) {
	raw, err := s.repo.FetchListingPage(ctx, cursor)
	if err != nil {
		return content.ListingPage{}, fmt.Errorf("fetching listing page: %w", err)
	}
	return listing.NormalizePage(raw)
}

// NewListingSession creates a listing session initialized with the first page.
func (s *Service) NewListingSession(ctx context.Context) (*listing.Session, error) {
	first, err := s.Listing(ctx, "")
	if err != nil {
		return nil, err
	}
	session := listing.NewSession(s.repo)
	if err := session.Initialize(first); err != nil {
		return nil, err
	}
	return session, nil
}

// Article returns the bundle for uid. Drafts are read only when nc carries a
// preview ref; navigation always reflects published content.
func (s *Service) Article(ctx context.Context, uid string, nc preview.NavigationContext) (ArticleBundle, error) {
	decision := s.gate.Authorize(nc)

	raw, err := s.repo.FetchByUID(ctx, uid, decision.Ref)
	if err != nil {
		return ArticleBundle{}, fmt.Errorf("fetching article %q: %w", uid, err)
	}
	article, err := content.Normalize(raw)
	if err != nil {
		return ArticleBundle{}, err
	}

	bundle := ArticleBundle{
		Article:        article,
		ReadingMinutes: s.estimator.Estimate(article.Sections),
		Edited:         article.WasEdited(),
		LastModified:   article.LastModified,
		Preview:        decision.Draft,
	}
	if decision.Draft {
		bundle.Exit = &decision.Exit
	}

	nav, err := s.resolver.Resolve(ctx, article)
	if err != nil {
		return ArticleBundle{}, err
	}
	bundle.Navigation = nav

	return bundle, nil
}

// ExitPreview returns nc with the preview ref cleared. The caller persists it.
func (s *Service) ExitPreview(nc preview.NavigationContext) preview.NavigationContext {
	return s.gate.Clear(nc)
}

// AllUIDs walks the whole published listing and returns every article uid in
// listing order.
func (s *Service) AllUIDs(ctx context.Context) ([]string, error) {
	items, err := s.AllSummaries(ctx)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(items))
	for _, item := range items {
		uids = append(uids, item.ID)
	}
	return uids, nil
}

// AllSummaries walks the whole published listing and returns every article
// summary in listing order, each uid once.
func (s *Service) AllSummaries(ctx context.Context) ([]content.Summary, error) {
	var (
		items  = []content.Summary{}
		seen   = make(map[string]struct{})
		cursor string
	)
	for range maxEnumeratedPages {
		page, err := s.Listing(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			items = append(items, item)
		}
		if !page.HasMore() {
			return items, nil
		}
		cursor = page.Cursor
	}
	s.logger.Warn("article enumeration stopped at page limit", "pages", maxEnumeratedPages)
	return items, nil
}
