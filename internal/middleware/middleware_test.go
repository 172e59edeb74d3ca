// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/olegiv/ocms-blog/internal/i18n"
	"github.com/olegiv/ocms-blog/internal/logging"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("pt-BR", slog.New(slog.DiscardHandler)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func localeOf(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var got string
	handler := Locale(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetLocale(r)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return got, rec
}

func TestLocale_Default(t *testing.T) {
	got, _ := localeOf(t, httptest.NewRequest(http.MethodGet, "/", nil))
	if got != "pt-BR" {
		t.Errorf("locale = %q, want pt-BR", got)
	}
}

func TestLocale_QueryParamSetsCookie(t *testing.T) {
	got, rec := localeOf(t, httptest.NewRequest(http.MethodGet, "/?locale=en", nil))
	if got != "en" {
		t.Errorf("locale = %q, want en", got)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != LocaleCookieName || cookies[0].Value != "en" {
		t.Errorf("cookies = %v", cookies)
	}
}

func TestLocale_UnsupportedQueryIgnored(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?locale=xx", nil)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	got, rec := localeOf(t, req)
	if got != "en" {
		t.Errorf("locale = %q, want en", got)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("unsupported locale should not set a cookie")
	}
}

func TestLocale_CookieBeatsHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LocaleCookieName, Value: "en"})
	req.Header.Set("Accept-Language", "pt-BR")
	if got, _ := localeOf(t, req); got != "en" {
		t.Errorf("locale = %q, want en", got)
	}
}

func TestGetLocale_WithoutMiddleware(t *testing.T) {
	if got := GetLocale(httptest.NewRequest(http.MethodGet, "/", nil)); got != "pt-BR" {
		t.Errorf("GetLocale = %q, want pt-BR", got)
	}
}

func TestCacheHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	CacheControl(60)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", got)
	}

	rec = httptest.NewRecorder()
	NoStore(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelInfo, false)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.InfoContext(r.Context(), "inside")
		w.WriteHeader(http.StatusBadGateway)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/articles/x", nil))

	dec := json.NewDecoder(&buf)
	var inner, done map[string]any
	if err := dec.Decode(&inner); err != nil {
		t.Fatalf("decode inner: %v", err)
	}
	if err := dec.Decode(&done); err != nil {
		t.Fatalf("decode completed: %v", err)
	}

	if inner["path"] != "/api/v1/articles/x" || inner["method"] != "GET" {
		t.Errorf("inner record missing request attrs: %v", inner)
	}
	if done["msg"] != "request completed" || done["status"] != float64(http.StatusBadGateway) {
		t.Errorf("completed record = %v", done)
	}
	if done["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for 5xx", done["level"])
	}
}
