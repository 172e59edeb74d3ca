// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/olegiv/ocms-blog/internal/version"
)

func ok() Pinger { return PingFunc(func(context.Context) error { return nil }) }

func failing(msg string) Pinger {
	return PingFunc(func(context.Context) error { return errors.New(msg) })
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestHealth_Healthy(t *testing.T) {
	h := NewHealthHandler(HealthOptions{Database: ok(), Repository: ok(), DataDir: t.TempDir()})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "healthy" {
		t.Errorf("status = %v", body["status"])
	}
	if _, ok := body["checks"]; ok {
		t.Error("checks must not be exposed without detailed mode")
	}
}

func TestHealth_DegradedRepository(t *testing.T) {
	h := NewHealthHandler(HealthOptions{Database: ok(), Repository: failing("dial tcp: refused")})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "degraded" {
		t.Errorf("status = %v", body["status"])
	}
}

func TestHealth_Verbose(t *testing.T) {
	h := NewHealthHandler(HealthOptions{
		Database:   ok(),
		Repository: ok(),
		Cache:      failing("redis down"),
		Version:    version.Info{Version: "v1.2.3"},
		Detailed:   true,
	})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health?verbose=true", nil))

	body := decode(t, rec)
	if body["version"] != "v1.2.3" {
		t.Errorf("version = %v", body["version"])
	}
	checks, _ := body["checks"].(map[string]any)
	cacheCheck, _ := checks["cache"].(map[string]any)
	if cacheCheck["status"] != "unhealthy" || cacheCheck["message"] != "redis down" {
		t.Errorf("cache check = %v", cacheCheck)
	}
	if body["system"] == nil {
		t.Error("expected system info")
	}
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(HealthOptions{Database: failing("down")})
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK || decode(t, rec)["status"] != "alive" {
		t.Errorf("liveness failed: %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		opts     HealthOptions
		want     int
		status   string
		hasError bool
	}{
		{"ready", HealthOptions{Database: ok(), Repository: ok()}, http.StatusOK, "ready", false},
		{"database down", HealthOptions{Database: failing("locked"), Repository: ok()}, http.StatusServiceUnavailable, "not_ready", false},
		{"repository down detailed", HealthOptions{Database: ok(), Repository: failing("502"), Detailed: true}, http.StatusServiceUnavailable, "not_ready", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(tt.opts).Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if rec.Code != tt.want {
				t.Errorf("code = %d, want %d", rec.Code, tt.want)
			}
			body := decode(t, rec)
			if body["status"] != tt.status {
				t.Errorf("status = %v, want %s", body["status"], tt.status)
			}
			if _, has := body["message"]; has != tt.hasError {
				t.Errorf("message present = %v, want %v", has, tt.hasError)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[uint64]string{
		512:             "512 B",
		2048:            "2.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}
