// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ScheduleOverrides persists operator-chosen cron schedules for maintenance jobs.
type ScheduleOverrides struct {
	db *sql.DB
}

// NewScheduleOverrides creates a ScheduleOverrides on db.
func NewScheduleOverrides(db *sql.DB) *ScheduleOverrides {
	return &ScheduleOverrides{db: db}
}

// Get returns the override for name, or "" when none is stored.
func (s *ScheduleOverrides) Get(ctx context.Context, name string) (string, error) {
	var schedule string
	err := s.db.QueryRowContext(ctx,
		`SELECT schedule FROM schedule_overrides WHERE name = ?`, name).Scan(&schedule)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("loading schedule override %q: %w", name, err)
	}
	return schedule, nil
}

// Set stores schedule as the override for name.
func (s *ScheduleOverrides) Set(ctx context.Context, name, schedule string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_overrides (name, schedule, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET schedule = excluded.schedule, updated_at = excluded.updated_at`,
		name, schedule, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving schedule override %q: %w", name, err)
	}
	return nil
}

// Delete removes the override for name.
func (s *ScheduleOverrides) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM schedule_overrides WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting schedule override %q: %w", name, err)
	}
	return nil
}
