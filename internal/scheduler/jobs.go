// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job names.
const (
	JobListingSweep   = "listing-sweep"
	JobRefRefresh     = "ref-refresh"
	JobLimiterPrune   = "rate-limiter-prune"
	JobEventRetention = "event-retention"
)

// Sweeper drops expired listing sessions.
type Sweeper interface {
	Sweep() int
}

// RefRefresher fetches the repository's current master ref.
type RefRefresher interface {
	RefreshRef(ctx context.Context) (string, error)
}

// Purger drops cached repository responses.
type Purger interface {
	Purge(ctx context.Context) error
}

// Pruner resets an in-memory table once it grows past its bound.
type Pruner interface {
	Prune() bool
}

// EventPruner deletes audit events older than a cutoff.
type EventPruner interface {
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}

// ListingSweepJob removes idle listing sessions.
func ListingSweepJob(schedule string, s Sweeper, logger *slog.Logger) Job {
	return Job{
		Name:        JobListingSweep,
		Description: "Remove expired listing sessions",
		Schedule:    schedule,
		Run: func(context.Context) error {
			if n := s.Sweep(); n > 0 {
				logger.Info("swept listing sessions", "removed", n)
			}
			return nil
		},
	}
}

// RefRefreshJob polls the master ref and purges the cache when it moves, so
// readers see newly published content without waiting for TTL expiry.
func RefRefreshJob(schedule string, refresher RefRefresher, purger Purger, logger *slog.Logger) Job {
	var (
		mu      sync.Mutex
		lastRef string
	)
	return Job{
		Name:        JobRefRefresh,
		Description: "Refresh the repository master ref and purge stale cache",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			ref, err := refresher.RefreshRef(ctx)
			if err != nil {
				return fmt.Errorf("refreshing master ref: %w", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if lastRef != "" && ref != lastRef {
				if err := purger.Purge(ctx); err != nil {
					return fmt.Errorf("purging cache after ref change: %w", err)
				}
				logger.Info("master ref changed, cache purged", "repository", "remote", "ref", ref)
			}
			lastRef = ref
			return nil
		},
	}
}

// LimiterPruneJob bounds the per-client rate limiter table.
func LimiterPruneJob(schedule string, p Pruner, logger *slog.Logger) Job {
	return Job{
		Name:        JobLimiterPrune,
		Description: "Reset the rate limiter client table when it grows too large",
		Schedule:    schedule,
		Run: func(context.Context) error {
			if p.Prune() {
				logger.Info("rate limiter client table reset")
			}
			return nil
		},
	}
}

// EventRetentionJob deletes audit events older than retention.
func EventRetentionJob(schedule string, events EventPruner, retention time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:        JobEventRetention,
		Description: "Delete audit events past the retention window",
		Schedule:    schedule,
		Run: func(ctx context.Context) error {
			n, err := events.DeleteBefore(ctx, time.Now().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("pruned audit events", "removed", n)
			}
			return nil
		},
	}
}
