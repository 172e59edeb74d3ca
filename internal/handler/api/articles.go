// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-blog/internal/blog"
	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/i18n"
	"github.com/olegiv/ocms-blog/internal/middleware"
	"github.com/olegiv/ocms-blog/internal/session"
	"github.com/olegiv/ocms-blog/internal/util"
)

// ArticleResponse is an article bundle with its locale-dependent labels.
type ArticleResponse struct {
	blog.ArticleBundle
	Locale           string `json:"locale"`
	PublishedLabel   string `json:"published_label"`
	ReadingTimeLabel string `json:"reading_time_label"`
	EditedAnnotation string `json:"edited_annotation,omitempty"`
}

func newArticleResponse(b blog.ArticleBundle, lang string) ArticleResponse {
	resp := ArticleResponse{
		ArticleBundle:    b,
		Locale:           lang,
		PublishedLabel:   i18n.FormatDate(b.Article.FirstPublished, lang),
		ReadingTimeLabel: i18n.ReadingTime(b.ReadingMinutes, lang),
	}
	if b.Edited {
		resp.EditedAnnotation = i18n.EditedAnnotation(b.LastModified, lang)
	}
	return resp
}

// ListArticles handles GET /api/v1/articles?cursor=.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	page, err := h.blog.Listing(r.Context(), r.URL.Query().Get("cursor"))
	if err != nil {
		h.writeServiceError(w, r, "listing page failed", err)
		return
	}

	WriteSuccess(w, page.Items, &Meta{Cursor: page.Cursor, HasMore: page.HasMore()})
}

// ArticleUIDs handles GET /api/v1/articles/uids.
func (h *Handler) ArticleUIDs(w http.ResponseWriter, r *http.Request) {
	uids, err := h.blog.AllUIDs(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "enumerating articles failed", err)
		return
	}
	WriteSuccess(w, uids, nil)
}

// GetArticle handles GET /api/v1/articles/{uid}. Drafts are served when the
// session carries a preview ref.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if !util.IsValidUID(uid) {
		WriteBadRequest(w, "invalid_uid", "Invalid article uid")
		return
	}

	nc := session.NavigationContext(r.Context(), h.sessions)
	bundle, err := h.blog.Article(r.Context(), uid, nc)
	if err != nil {
		h.writeServiceError(w, r, "loading article failed", err)
		return
	}

	if bundle.Preview {
		w.Header().Set("Cache-Control", "no-store")
	}
	WriteSuccess(w, newArticleResponse(bundle, middleware.GetLocale(r)), nil)
}

// summaries never encodes as null.
func summaries(items []content.Summary) []content.Summary {
	if items == nil {
		return []content.Summary{}
	}
	return items
}
