// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session that carries the preview
// ref across requests.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/ocms-blog/internal/preview"
)

// New creates a new session manager configured with SQLite store.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = 24 * time.Hour
	sm.IdleTimeout = 2 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = "__Host-session"
	}

	return sm
}

// NavigationContext reads the preview state of the current request.
func NavigationContext(ctx context.Context, sm *scs.SessionManager) preview.NavigationContext {
	return preview.NavigationContext{PreviewRef: sm.GetString(ctx, preview.SessionKey)}
}

// SetPreviewRef enters draft mode for the session.
func SetPreviewRef(ctx context.Context, sm *scs.SessionManager, ref string) error {
	// New privilege level, new token.
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, preview.SessionKey, ref)
	return nil
}

// ClearPreviewRef leaves draft mode.
func ClearPreviewRef(ctx context.Context, sm *scs.SessionManager) {
	sm.Remove(ctx, preview.SessionKey)
}
