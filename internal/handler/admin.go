// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-blog/internal/cache"
	"github.com/olegiv/ocms-blog/internal/listing"
	"github.com/olegiv/ocms-blog/internal/scheduler"
	"github.com/olegiv/ocms-blog/internal/store"
)

// maxEventsLimit caps ?limit on the events endpoint.
const maxEventsLimit = 500

// Purger drops cached repository responses.
type Purger interface {
	Purge(ctx context.Context) error
}

// AdminHandler serves cache and event log maintenance behind a bearer token.
type AdminHandler struct {
	token    string
	cache    cache.Cacher
	purger   Purger
	events   *store.EventLog
	listings *listing.Registry
	jobs     *scheduler.Registry
	logger   *slog.Logger
}

// AdminOptions configures an AdminHandler.
type AdminOptions struct {
	Token    string
	Cache    cache.Cacher
	Purger   Purger
	Events   *store.EventLog
	Listings *listing.Registry
	Jobs     *scheduler.Registry
	Logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(opts AdminOptions) *AdminHandler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		token:    opts.Token,
		cache:    opts.Cache,
		purger:   opts.Purger,
		events:   opts.Events,
		listings: opts.Listings,
		jobs:     opts.Jobs,
		logger:   logger,
	}
}

// Mount registers the admin routes under /api/v1/admin.
func (h *AdminHandler) Mount(r chi.Router) {
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(h.requireToken)
		r.Get("/cache", h.CacheStats)
		r.Post("/cache/purge", h.PurgeCache)
		r.Get("/events", h.ListEvents)
		if h.jobs != nil {
			r.Get("/jobs", h.ListJobs)
			r.Post("/jobs/{name}/run", h.RunJob)
			r.Put("/jobs/{name}/schedule", h.UpdateJobSchedule)
			r.Delete("/jobs/{name}/schedule", h.ResetJobSchedule)
		}
	})
}

func (h *AdminHandler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "bearer") ||
			subtle.ConstantTimeCompare([]byte(token), []byte(h.token)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CacheStats handles GET /api/v1/admin/cache.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	data := map[string]any{
		"backend":          cache.Backend(h.cache),
		"listing_sessions": h.listings.Len(),
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		data["stats"] = sp.Stats()
	}
	writeJSONSuccess(w, data)
}

// PurgeCache handles POST /api/v1/admin/cache/purge.
func (h *AdminHandler) PurgeCache(w http.ResponseWriter, r *http.Request) {
	if err := h.purger.Purge(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "cache purge failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to purge cache")
		return
	}
	h.logger.InfoContext(r.Context(), "cache purged", "category", store.EventCategoryCache)
	writeJSONSuccess(w, nil)
}

// ListEvents handles GET /api/v1/admin/events?limit=.
func (h *AdminHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxEventsLimit)
	}

	events, err := h.events.List(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "listing events failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSONSuccess(w, map[string]any{"events": events})
}

// ListJobs handles GET /api/v1/admin/jobs.
func (h *AdminHandler) ListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSONSuccess(w, map[string]any{"jobs": h.jobs.List()})
}

// RunJob handles POST /api/v1/admin/jobs/{name}/run.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.TriggerNow(r.Context(), name); err != nil {
		h.writeJobError(w, r, name, err)
		return
	}
	writeJSONSuccess(w, nil)
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
}

// UpdateJobSchedule handles PUT /api/v1/admin/jobs/{name}/schedule.
func (h *AdminHandler) UpdateJobSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req scheduleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil || req.Schedule == "" {
		writeJSONError(w, http.StatusBadRequest, "Body must be {\"schedule\": \"<cron spec>\"}")
		return
	}
	if err := h.jobs.UpdateSchedule(r.Context(), name, req.Schedule); err != nil {
		h.writeJobError(w, r, name, err)
		return
	}
	writeJSONSuccess(w, nil)
}

// ResetJobSchedule handles DELETE /api/v1/admin/jobs/{name}/schedule.
func (h *AdminHandler) ResetJobSchedule(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.jobs.ResetSchedule(r.Context(), name); err != nil {
		h.writeJobError(w, r, name, err)
		return
	}
	writeJSONSuccess(w, nil)
}

func (h *AdminHandler) writeJobError(w http.ResponseWriter, r *http.Request, name string, err error) {
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		writeJSONError(w, http.StatusNotFound, "Job not found")
	case errors.Is(err, scheduler.ErrInvalidSchedule):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrTriggerLimited):
		writeJSONError(w, http.StatusTooManyRequests, "Job was triggered too recently")
	default:
		h.logger.ErrorContext(r.Context(), "job operation failed", "job", name, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Job failed")
	}
}
