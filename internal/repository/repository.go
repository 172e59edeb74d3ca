// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package repository defines the contract with the headless content
// repository and provides a remote HTTP client plus a caching decorator.
package repository

import (
	"context"
	"time"
)

// Raw is an unparsed repository document.
type Raw []byte

// RawPage is one page of raw listing documents. An empty NextCursor means the
// listing is exhausted.
type RawPage struct {
	Items      []Raw
	NextCursor string
}

// Direction orders adjacent queries by first publication date.
type Direction string

const (
	// Ascending finds later articles (the "next" one).
	Ascending Direction = "asc"
	// Descending finds earlier articles (the "previous" one).
	Descending Direction = "desc"
)

// AdjacentQuery asks for published articles strictly before (Descending) or
// strictly after (Ascending) FirstPublished, ties ordered by uid ascending.
type AdjacentQuery struct {
	ID             string
	FirstPublished time.Time
	Direction      Direction
	PageSize       int
}

// Repository is the narrow interface the blog core consumes.
type Repository interface {
	// FetchListingPage returns the page at cursor; an empty cursor is the first page.
	FetchListingPage(ctx context.Context, cursor string) (RawPage, error)

	// FetchByUID returns one document. A non-empty ref selects an unpublished
	// content version. Missing documents yield content.ErrNotFound.
	FetchByUID(ctx context.Context, uid, ref string) (Raw, error)

	// QueryAdjacent returns at most q.PageSize published documents.
	QueryAdjacent(ctx context.Context, q AdjacentQuery) ([]Raw, error)
}
