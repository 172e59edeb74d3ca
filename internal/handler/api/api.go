// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON HTTP surface of the blog: listings, article
// bundles, listing sessions and the preview entry and exit points.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-blog/internal/blog"
	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/listing"
	"github.com/olegiv/ocms-blog/internal/middleware"
	"github.com/olegiv/ocms-blog/internal/repository"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	blog     *blog.Service
	listings *listing.Registry
	sessions *scs.SessionManager
	signer   *Signer
	logger   *slog.Logger
}

// Config wires a Handler.
type Config struct {
	Blog     *blog.Service
	Listings *listing.Registry
	Sessions *scs.SessionManager
	Signer   *Signer
	Logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		blog:     cfg.Blog,
		listings: cfg.Listings,
		sessions: cfg.Sessions,
		signer:   cfg.Signer,
		logger:   logger,
	}
}

// publishedMaxAge is the Cache-Control max-age, in seconds, of responses that
// only contain published content.
const publishedMaxAge = 60

// Mount registers the API routes on r. Routes that read or write the
// preview ref run inside the session middleware.
func (h *Handler) Mount(r chi.Router) {
	r.With(h.sessions.LoadAndSave, middleware.NoStore).Get("/preview", h.EnterPreview)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.Status)
		r.With(middleware.CacheControl(publishedMaxAge)).Get("/articles", h.ListArticles)
		r.With(middleware.CacheControl(publishedMaxAge)).Get("/articles/uids", h.ArticleUIDs)
		r.With(h.sessions.LoadAndSave).Get("/articles/{uid}", h.GetArticle)
		r.With(h.sessions.LoadAndSave, middleware.NoStore).Post("/preview/exit", h.ExitPreview)

		r.Route("/listings", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Post("/", h.CreateListing)
			r.Get("/{id}", h.GetListing)
			r.Post("/{id}/more", h.LoadMore)
		})
	})
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
// Errors are never cached.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Cache-Control", "no-store")
	WriteJSON(w, statusCode, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, code, message string) {
	WriteError(w, http.StatusBadRequest, code, message)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// errorStatus maps a core error to its HTTP status and error code.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, repository.ErrInvalidCursor):
		return http.StatusBadRequest, "invalid_cursor", "Invalid cursor"
	case errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, "not_found", "Article not found"
	case errors.Is(err, content.ErrAlreadyLoading):
		return http.StatusConflict, "already_loading", "A page is already loading for this listing"
	case errors.Is(err, content.ErrNoMorePages):
		return http.StatusGone, "no_more_pages", "The listing has no more pages"
	case errors.Is(err, content.ErrMalformedRecord):
		return http.StatusUnprocessableEntity, "malformed_record", "The repository returned a malformed record"
	case errors.Is(err, content.ErrRepositoryUnavailable):
		return http.StatusBadGateway, "repository_unavailable", "The content repository is unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

// writeServiceError logs err and writes its mapped error response.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, code, message := errorStatus(err)

	switch {
	case status >= http.StatusInternalServerError || status == http.StatusUnprocessableEntity:
		h.logger.ErrorContext(r.Context(), msg, "error", err, "code", code)
	case status == http.StatusNotFound || status == http.StatusBadRequest:
		h.logger.DebugContext(r.Context(), msg, "error", err, "code", code)
	default:
		h.logger.InfoContext(r.Context(), msg, "error", err, "code", code)
	}

	WriteError(w, status, code, message)
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{Status: "ok", Version: "v1"}, nil)
}
