// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/olegiv/ocms-blog/internal/blog"
	"github.com/olegiv/ocms-blog/internal/cache"
	"github.com/olegiv/ocms-blog/internal/config"
	"github.com/olegiv/ocms-blog/internal/handler"
	"github.com/olegiv/ocms-blog/internal/handler/api"
	"github.com/olegiv/ocms-blog/internal/i18n"
	"github.com/olegiv/ocms-blog/internal/listing"
	"github.com/olegiv/ocms-blog/internal/logging"
	"github.com/olegiv/ocms-blog/internal/middleware"
	"github.com/olegiv/ocms-blog/internal/repository"
	"github.com/olegiv/ocms-blog/internal/scheduler"
	"github.com/olegiv/ocms-blog/internal/session"
	"github.com/olegiv/ocms-blog/internal/store"
	"github.com/olegiv/ocms-blog/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// exitPreviewPath is where the preview exit contract points clients.
const exitPreviewPath = "/api/v1/preview/exit"

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "ocms-blog - headless blog backend\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SESSION_SECRET    Session and listing-id signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_DB_PATH           SQLite database path (default: ./data/blog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_REPOSITORY        Content source: local|remote (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_REPOSITORY_URL    Remote repository API root (required when remote)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_IMPORT_DIR        Markdown directory imported at startup (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_REDIS_URL         Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_ADMIN_TOKEN       Bearer token enabling the admin API (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	info := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
	if *showVersion {
		_, _ = fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(info); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(info version.Info) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(os.Stdout, level, cfg.IsDevelopment())
	slog.SetDefault(logger)
	slog.Info("starting", "version", info.Short(), "env", cfg.Env)

	if err := i18n.Init(cfg.DefaultLocale, logger); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// From here on WARN and ERROR records are also kept in the event log.
	events := store.NewEventLog(db)
	logger = slog.New(logging.NewEventLogHandler(logger.Handler(), events))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := openRepository(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	c, err := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheDuration(),
		MaxSize:         cfg.CacheMaxSize,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = c.Close() }()
	slog.Info("cache initialized", "backend", cache.Backend(c))

	cached := repository.NewCached(src.repo, c, cfg.CacheDuration(), logger)

	svc := blog.NewService(cached, blog.Options{
		WordsPerMinute: cfg.WordsPerMinute,
		ExitPath:       exitPreviewPath,
		Logger:         logger,
	})
	listings := listing.NewRegistry(cfg.ListingSessionTTL, cfg.ListingMaxSessions)
	sessions := session.New(db, cfg.IsDevelopment())
	signer, err := api.NewSigner([]byte(cfg.SessionSecret))
	if err != nil {
		return fmt.Errorf("creating listing signer: %w", err)
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	sched := scheduler.New(store.NewScheduleOverrides(db), logger)
	jobs := []scheduler.Job{
		scheduler.ListingSweepJob(cfg.ListingSweepSpec, listings, logger),
		scheduler.LimiterPruneJob(cfg.LimiterPruneSpec, limiter, logger),
		scheduler.EventRetentionJob(cfg.EventPruneSpec, events, cfg.EventRetention, logger),
	}
	if src.refresher != nil {
		jobs = append(jobs, scheduler.RefRefreshJob(cfg.RefRefreshSpec, src.refresher, cached, logger))
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			return fmt.Errorf("scheduling jobs: %w", err)
		}
	}

	var cachePinger handler.Pinger
	if rc, ok := c.(*cache.RedisCache); ok {
		cachePinger = rc
	}
	health := handler.NewHealthHandler(handler.HealthOptions{
		Database:   handler.PingFunc(db.PingContext),
		Repository: src.pinger,
		Cache:      cachePinger,
		DataDir:    filepath.Dir(cfg.DBPath),
		Version:    info,
		Detailed:   cfg.HealthDetailed,
	})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware())
		r.Use(middleware.Locale)
		r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment())))

		api.NewHandler(api.Config{
			Blog:     svc,
			Listings: listings,
			Sessions: sessions,
			Signer:   signer,
			Logger:   logger,
		}).Mount(r)
	})

	if cfg.AdminToken != "" {
		handler.NewAdminHandler(handler.AdminOptions{
			Token:    cfg.AdminToken,
			Cache:    c,
			Purger:   cached,
			Events:   events,
			Listings: listings,
			Jobs:     sched.Registry(),
			Logger:   logger,
		}).Mount(r)
		slog.Info("admin API enabled")
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	sched.Start()
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if src.watcher != nil {
		src.watcher.OnImport = func(ctx context.Context) {
			if err := cached.Purge(ctx); err != nil {
				slog.Warn("failed to purge cache after import", "category", store.EventCategoryImport, "error", err)
			}
		}
		g.Go(func() error { return src.watcher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// contentSource is the configured content repository and its companions.
type contentSource struct {
	repo      repository.Repository
	pinger    handler.Pinger
	refresher scheduler.RefRefresher // remote only
	watcher   *store.Watcher         // local with OCMS_IMPORT_WATCH only
}

func openRepository(ctx context.Context, cfg *config.Config, db *sql.DB, logger *slog.Logger) (contentSource, error) {
	if cfg.UseRemoteRepository() {
		opts := repository.DefaultClientOptions()
		opts.Endpoint = cfg.RepositoryURL
		opts.AccessToken = cfg.RepositoryToken
		opts.DocumentType = cfg.RepositoryType
		opts.PageSize = cfg.PageSize
		opts.Timeout = cfg.RepositoryTimeout
		opts.MaxRetries = cfg.RepositoryRetries
		opts.Logger = logger

		client, err := repository.NewClient(opts)
		if err != nil {
			return contentSource{}, fmt.Errorf("creating repository client: %w", err)
		}
		if _, err := client.RefreshRef(ctx); err != nil {
			// The ref refresh job retries; reads fail with 502 until it succeeds.
			slog.Warn("repository unreachable at startup", "repository", cfg.RepositoryURL, "error", err)
		}
		slog.Info("using remote repository", "endpoint", cfg.RepositoryURL, "type", cfg.RepositoryType)
		return contentSource{
			repo: client,
			pinger: handler.PingFunc(func(ctx context.Context) error {
				_, err := client.RefreshRef(ctx)
				return err
			}),
			refresher: client,
		}, nil
	}

	local := store.NewRepository(db, cfg.RepositoryType, cfg.PageSize)
	if cfg.DoSeed {
		if err := store.SeedDemo(ctx, local, logger); err != nil {
			return contentSource{}, fmt.Errorf("seeding demo content: %w", err)
		}
	}
	src := contentSource{repo: local, pinger: local}
	if cfg.ImportDir != "" {
		if _, err := store.ImportDir(ctx, local, cfg.ImportDir, logger); err != nil {
			return contentSource{}, err
		}
		if cfg.ImportWatch {
			src.watcher = store.NewWatcher(local, cfg.ImportDir, logger)
		}
	}
	slog.Info("using local repository", "path", cfg.DBPath, "type", cfg.RepositoryType)
	return src, nil
}
