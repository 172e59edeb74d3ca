// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories.
const (
	EventCategorySystem     = "system"
	EventCategoryRepository = "repository"
	EventCategoryListing    = "listing"
	EventCategoryPreview    = "preview"
	EventCategoryCache      = "cache"
	EventCategoryImport     = "import"
)

// Event is an audited log record.
type Event struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// EventLog persists events in the events table.
type EventLog struct {
	db *sql.DB
}

// NewEventLog creates an EventLog on db.
func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db}
}

// Record inserts e. Empty category and metadata get defaults.
func (l *EventLog) Record(ctx context.Context, e Event) error {
	if e.Category == "" {
		e.Category = EventCategorySystem
	}
	if e.Metadata == "" {
		e.Metadata = "{}"
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Level, e.Category, e.Message, e.Metadata, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// List returns up to limit events, newest first.
func (l *EventLog) List(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, level, category, message, metadata, created_at FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteBefore removes events older than t and returns how many were removed.
func (l *EventLog) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, t.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}
