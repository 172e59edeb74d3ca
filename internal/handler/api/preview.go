// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/ocms-blog/internal/session"
	"github.com/olegiv/ocms-blog/internal/util"
)

// PreviewResponse reports the preview state after entering or leaving it.
type PreviewResponse struct {
	Preview bool   `json:"preview"`
	Cleared bool   `json:"cleared,omitempty"`
	Article string `json:"article,omitempty"`
}

// EnterPreview handles GET /preview?token=&documentId=. The token becomes the
// session's preview ref. With a documentId the client is redirected to that
// article.
func (h *Handler) EnterPreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := q.Get("token")
	if token == "" {
		WriteBadRequest(w, "missing_token", "Missing preview token")
		return
	}

	documentID := q.Get("documentId")
	if documentID != "" && !util.IsValidUID(documentID) {
		WriteBadRequest(w, "invalid_uid", "Invalid document id")
		return
	}

	if err := session.SetPreviewRef(r.Context(), h.sessions, token); err != nil {
		h.logger.ErrorContext(r.Context(), "storing preview ref failed", "error", err)
		WriteInternalError(w, "Failed to start preview")
		return
	}
	h.logger.InfoContext(r.Context(), "preview entered", "document", documentID)

	if documentID != "" {
		http.Redirect(w, r, "/api/v1/articles/"+documentID, http.StatusFound)
		return
	}
	WriteSuccess(w, PreviewResponse{Preview: true}, nil)
}

// ExitPreview handles POST /api/v1/preview/exit.
func (h *Handler) ExitPreview(w http.ResponseWriter, r *http.Request) {
	nc := session.NavigationContext(r.Context(), h.sessions)
	cleared := h.blog.ExitPreview(nc)
	session.ClearPreviewRef(r.Context(), h.sessions)
	if nc.Previewing() {
		h.logger.InfoContext(r.Context(), "preview exited")
	}

	WriteSuccess(w, PreviewResponse{Preview: cleared.Previewing(), Cleared: true}, nil)
}
