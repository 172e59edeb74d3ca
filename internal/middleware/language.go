// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"

	"github.com/olegiv/ocms-blog/internal/i18n"
)

// ContextKeyLocale holds the negotiated locale.
const ContextKeyLocale ContextKey = "locale"

// LocaleCookieName is the cookie name for the locale preference.
const LocaleCookieName = "blog_locale"

// Locale negotiates the presentation locale of the request.
// Priority order:
//  1. Query parameter ?locale=XX (also stored in the cookie)
//  2. Cookie preference
//  3. Accept-Language header
//  4. Default locale
func Locale(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("locale"); q != "" && i18n.IsSupported(q) {
			lang := i18n.MatchLanguage(q)
			SetLocaleCookie(w, lang)
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), lang)))
			return
		}

		if c, err := r.Cookie(LocaleCookieName); err == nil && i18n.IsSupported(c.Value) {
			next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), i18n.MatchLanguage(c.Value))))
			return
		}

		lang := i18n.MatchLanguage(r.Header.Get("Accept-Language"))
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), lang)))
	})
}

// WithLocale stores lang in ctx.
func WithLocale(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, ContextKeyLocale, lang)
}

// GetLocale returns the negotiated locale, or the default when the Locale
// middleware did not run.
func GetLocale(r *http.Request) string {
	if lang, ok := r.Context().Value(ContextKeyLocale).(string); ok && lang != "" {
		return lang
	}
	return i18n.MatchLanguage("")
}

// SetLocaleCookie sets the locale preference cookie.
func SetLocaleCookie(w http.ResponseWriter, lang string) {
	http.SetCookie(w, &http.Cookie{
		Name:     LocaleCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
