// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/listing"
)

// ListingResponse is the state of a listing session.
type ListingResponse struct {
	ID       string            `json:"id"`
	Items    []content.Summary `json:"items"`
	Appended []content.Summary `json:"appended,omitempty"`
	Cursor   string            `json:"cursor,omitempty"`
	State    listing.State     `json:"state"`
	HasMore  bool              `json:"has_more"`
}

func newListingResponse(id string, snap listing.Snapshot) ListingResponse {
	return ListingResponse{
		ID:      id,
		Items:   summaries(snap.Items),
		Cursor:  snap.Cursor,
		State:   snap.State,
		HasMore: snap.State == listing.Loaded,
	}
}

// CreateListing handles POST /api/v1/listings. The session starts with the
// first listing page.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	s, err := h.blog.NewListingSession(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "creating listing session failed", err)
		return
	}

	id := h.signer.Sign(h.listings.Add(s))
	h.logger.DebugContext(r.Context(), "listing session created", "sessions", h.listings.Len())
	WriteCreated(w, newListingResponse(id, s.Snapshot()))
}

// GetListing handles GET /api/v1/listings/{id}.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookupListing(r)
	if !ok {
		WriteNotFound(w, "Listing session not found")
		return
	}
	WriteSuccess(w, newListingResponse(id, s.Snapshot()), nil)
}

// LoadMore handles POST /api/v1/listings/{id}/more. Only one load per
// session may be in flight; a concurrent call gets 409.
func (h *Handler) LoadMore(w http.ResponseWriter, r *http.Request) {
	id, s, ok := h.lookupListing(r)
	if !ok {
		WriteNotFound(w, "Listing session not found")
		return
	}

	appended, err := s.LoadMore(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "loading more articles failed", err)
		return
	}

	resp := newListingResponse(id, s.Snapshot())
	resp.Appended = summaries(appended)
	WriteSuccess(w, resp, nil)
}

func (h *Handler) lookupListing(r *http.Request) (string, *listing.Session, bool) {
	token := chi.URLParam(r, "id")
	id, ok := h.signer.Verify(token)
	if !ok {
		return "", nil, false
	}
	s, ok := h.listings.Get(id)
	if !ok {
		return "", nil, false
	}
	return token, s, true
}
