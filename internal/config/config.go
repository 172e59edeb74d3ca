// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/ocms-blog/internal/scheduler"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Repository backends.
const (
	RepositoryLocal  = "local"
	RepositoryRemote = "remote"
)

// MaxPageSize bounds OCMS_PAGE_SIZE.
const MaxPageSize = 100

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"OCMS_DB_PATH" envDefault:"./data/blog.db"`
	SessionSecret string `env:"OCMS_SESSION_SECRET,required"`
	ServerHost    string `env:"OCMS_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"OCMS_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"OCMS_ENV" envDefault:"development"`
	LogLevel      string `env:"OCMS_LOG_LEVEL" envDefault:"info"`

	// Content repository: "local" (SQLite) or "remote" (headless API at RepositoryURL)
	Repository        string        `env:"OCMS_REPOSITORY" envDefault:"local"`
	RepositoryURL     string        `env:"OCMS_REPOSITORY_URL"`
	RepositoryToken   string        `env:"OCMS_REPOSITORY_TOKEN"`
	RepositoryType    string        `env:"OCMS_REPOSITORY_TYPE" envDefault:"posts"`
	RepositoryTimeout time.Duration `env:"OCMS_REPOSITORY_TIMEOUT" envDefault:"10s"`
	RepositoryRetries uint64        `env:"OCMS_REPOSITORY_RETRIES" envDefault:"3"`
	RefRefreshSpec    string        `env:"OCMS_REF_REFRESH_SCHEDULE" envDefault:"@every 1m"`

	// Presentation
	PageSize       int    `env:"OCMS_PAGE_SIZE" envDefault:"1"`
	WordsPerMinute int    `env:"OCMS_WORDS_PER_MINUTE" envDefault:"200"`
	DefaultLocale  string `env:"OCMS_DEFAULT_LOCALE" envDefault:"pt-BR"`

	// Cache configuration
	RedisURL     string `env:"OCMS_REDIS_URL"`                         // Optional Redis URL for distributed caching
	CachePrefix  string `env:"OCMS_CACHE_PREFIX" envDefault:"blog:"`   // Redis key prefix
	CacheTTL     int    `env:"OCMS_CACHE_TTL" envDefault:"300"`        // Default cache TTL in seconds
	CacheMaxSize int    `env:"OCMS_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Listing sessions
	ListingSessionTTL  time.Duration `env:"OCMS_LISTING_SESSION_TTL" envDefault:"30m"`
	ListingMaxSessions int           `env:"OCMS_LISTING_MAX_SESSIONS" envDefault:"10000"`
	ListingSweepSpec   string        `env:"OCMS_LISTING_SWEEP_SCHEDULE" envDefault:"@every 5m"`

	// HTTP
	RequestTimeout time.Duration `env:"OCMS_REQUEST_TIMEOUT" envDefault:"30s"`
	RateLimitRPS   float64       `env:"OCMS_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int           `env:"OCMS_RATE_LIMIT_BURST" envDefault:"30"`

	// Operations
	AdminToken       string        `env:"OCMS_ADMIN_TOKEN"` // Enables /api/v1/admin when set
	HealthDetailed   bool          `env:"OCMS_HEALTH_DETAILED" envDefault:"false"`
	EventRetention   time.Duration `env:"OCMS_EVENT_RETENTION" envDefault:"720h"`
	EventPruneSpec   string        `env:"OCMS_EVENT_PRUNE_SCHEDULE" envDefault:"@daily"`
	LimiterPruneSpec string        `env:"OCMS_RATE_LIMIT_PRUNE_SCHEDULE" envDefault:"@every 10m"`

	// Local content
	DoSeed      bool   `env:"OCMS_DO_SEED" envDefault:"false"`
	ImportDir   string `env:"OCMS_IMPORT_DIR"`
	ImportWatch bool   `env:"OCMS_IMPORT_WATCH" envDefault:"false"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseRemoteRepository reports whether content comes from the remote API.
func (c Config) UseRemoteRepository() bool {
	return c.Repository == RepositoryRemote
}

// CacheDuration returns CacheTTL as a duration.
func (c Config) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// MinAdminTokenLength is the minimum length of OCMS_ADMIN_TOKEN when set.
const MinAdminTokenLength = 24

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("OCMS_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("OCMS_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("OCMS_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	c.Repository = strings.ToLower(strings.TrimSpace(c.Repository))
	switch c.Repository {
	case RepositoryLocal:
	case RepositoryRemote:
		if c.RepositoryURL == "" {
			return errors.New("OCMS_REPOSITORY_URL is required when OCMS_REPOSITORY=remote")
		}
	default:
		return fmt.Errorf("OCMS_REPOSITORY must be %q or %q, got %q", RepositoryLocal, RepositoryRemote, c.Repository)
	}

	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("OCMS_PAGE_SIZE must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}
	if c.WordsPerMinute < 1 {
		return fmt.Errorf("OCMS_WORDS_PER_MINUTE must be positive, got %d", c.WordsPerMinute)
	}
	if c.RepositoryTimeout <= 0 {
		return errors.New("OCMS_REPOSITORY_TIMEOUT must be positive")
	}
	if c.ImportWatch && c.ImportDir == "" {
		return errors.New("OCMS_IMPORT_WATCH requires OCMS_IMPORT_DIR")
	}
	if c.AdminToken != "" && len(c.AdminToken) < MinAdminTokenLength {
		return fmt.Errorf("OCMS_ADMIN_TOKEN must be at least %d bytes long", MinAdminTokenLength)
	}
	if c.EventRetention <= 0 {
		return errors.New("OCMS_EVENT_RETENTION must be positive")
	}

	schedules := map[string]string{
		"OCMS_REF_REFRESH_SCHEDULE":      c.RefRefreshSpec,
		"OCMS_LISTING_SWEEP_SCHEDULE":    c.ListingSweepSpec,
		"OCMS_EVENT_PRUNE_SCHEDULE":      c.EventPruneSpec,
		"OCMS_RATE_LIMIT_PRUNE_SCHEDULE": c.LimiterPruneSpec,
	}
	for name, spec := range schedules {
		if err := scheduler.ValidateSchedule(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
