// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OCMS_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBPath != "./data/blog.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development by default")
	}
	if cfg.Repository != RepositoryLocal || cfg.UseRemoteRepository() {
		t.Errorf("Repository = %q, want local", cfg.Repository)
	}
	if cfg.RepositoryType != "posts" {
		t.Errorf("RepositoryType = %q", cfg.RepositoryType)
	}
	if cfg.RepositoryTimeout != 10*time.Second || cfg.RepositoryRetries != 3 {
		t.Errorf("timeout/retries = %v/%d", cfg.RepositoryTimeout, cfg.RepositoryRetries)
	}
	if cfg.PageSize != 1 {
		t.Errorf("PageSize = %d, want 1", cfg.PageSize)
	}
	if cfg.WordsPerMinute != 200 {
		t.Errorf("WordsPerMinute = %d, want 200", cfg.WordsPerMinute)
	}
	if cfg.DefaultLocale != "pt-BR" {
		t.Errorf("DefaultLocale = %q", cfg.DefaultLocale)
	}
	if cfg.ListingSessionTTL != 30*time.Minute {
		t.Errorf("ListingSessionTTL = %v", cfg.ListingSessionTTL)
	}
	if cfg.CacheDuration() != 5*time.Minute {
		t.Errorf("CacheDuration = %v", cfg.CacheDuration())
	}
	if cfg.UseRedisCache() {
		t.Error("redis should be disabled by default")
	}
	if cfg.AdminToken != "" || cfg.EventRetention != 30*24*time.Hour {
		t.Errorf("admin token/retention = %q/%v", cfg.AdminToken, cfg.EventRetention)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OCMS_SESSION_SECRET", testSecret)
	setEnv(t, "OCMS_ENV", "production")
	setEnv(t, "OCMS_SERVER_HOST", "0.0.0.0")
	setEnv(t, "OCMS_SERVER_PORT", "3000")
	setEnv(t, "OCMS_REPOSITORY", "Remote")
	setEnv(t, "OCMS_REPOSITORY_URL", "https://blog.cdn.prismic.io/api/v2")
	setEnv(t, "OCMS_REPOSITORY_TIMEOUT", "2s")
	setEnv(t, "OCMS_PAGE_SIZE", "5")
	setEnv(t, "OCMS_WORDS_PER_MINUTE", "250")
	setEnv(t, "OCMS_REDIS_URL", "redis://localhost:6379/0")
	setEnv(t, "OCMS_LISTING_SESSION_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.IsDevelopment() {
		t.Error("expected production")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr())
	}
	if !cfg.UseRemoteRepository() {
		t.Errorf("Repository = %q, want remote", cfg.Repository)
	}
	if cfg.RepositoryTimeout != 2*time.Second {
		t.Errorf("RepositoryTimeout = %v", cfg.RepositoryTimeout)
	}
	if cfg.PageSize != 5 || cfg.WordsPerMinute != 250 {
		t.Errorf("PageSize/WordsPerMinute = %d/%d", cfg.PageSize, cfg.WordsPerMinute)
	}
	if !cfg.UseRedisCache() {
		t.Error("expected redis cache")
	}
	if cfg.ListingSessionTTL != time.Hour {
		t.Errorf("ListingSessionTTL = %v", cfg.ListingSessionTTL)
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Error("expected error when OCMS_SESSION_SECRET is missing")
	}
}

func TestLoad_SessionSecretValidation(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr string
	}{
		{"too short", "short", "at least 32 bytes"},
		{"one byte short", strings.Repeat("a", 31), "at least 32 bytes"},
		{"known default", "change-me-to-32-byte-secret-key!", "known default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "OCMS_SESSION_SECRET", tt.secret)

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	os.Clearenv()
	setEnv(t, "OCMS_SESSION_SECRET", strings.Repeat("a", 32))
	if _, err := Load(); err != nil {
		t.Errorf("32-byte secret rejected: %v", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"remote without url", map[string]string{"OCMS_REPOSITORY": "remote"}, "OCMS_REPOSITORY_URL"},
		{"unknown repository", map[string]string{"OCMS_REPOSITORY": "ftp"}, "OCMS_REPOSITORY must be"},
		{"zero page size", map[string]string{"OCMS_PAGE_SIZE": "0"}, "OCMS_PAGE_SIZE"},
		{"huge page size", map[string]string{"OCMS_PAGE_SIZE": "1000"}, "OCMS_PAGE_SIZE"},
		{"zero reading speed", map[string]string{"OCMS_WORDS_PER_MINUTE": "0"}, "OCMS_WORDS_PER_MINUTE"},
		{"watch without dir", map[string]string{"OCMS_IMPORT_WATCH": "true"}, "OCMS_IMPORT_DIR"},
		{"bad duration", map[string]string{"OCMS_REPOSITORY_TIMEOUT": "soon"}, "parsing config"},
		{"short admin token", map[string]string{"OCMS_ADMIN_TOKEN": "tiny"}, "OCMS_ADMIN_TOKEN"},
		{"zero event retention", map[string]string{"OCMS_EVENT_RETENTION": "0s"}, "OCMS_EVENT_RETENTION"},
		{"bad sweep schedule", map[string]string{"OCMS_LISTING_SWEEP_SCHEDULE": "sometimes"}, "OCMS_LISTING_SWEEP_SCHEDULE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "OCMS_SESSION_SECRET", testSecret)
			for k, v := range tt.env {
				setEnv(t, k, v)
			}

			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"abcdefABCDEFabcdefABCDEFabcdefAB", false},
		{"abcABC123abcABC123abcABC123abcAB", true},
		{testSecret, true},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
