// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content defines the blog article model and the pure transforms
// applied to raw repository records: normalization, reading time estimation
// and edit detection.
package content

import "time"

// Block is a single rich-text block of a section body.
type Block struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Section is a titled group of body blocks. Sections keep repository order.
type Section struct {
	Heading string  `json:"heading"`
	Body    []Block `json:"body"`
}

// Article is a normalized blog post.
type Article struct {
	ID             string    `json:"id"`
	FirstPublished time.Time `json:"first_published"`
	LastModified   time.Time `json:"last_modified"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle"`
	Author         string    `json:"author"`
	BannerURL      string    `json:"banner_url,omitempty"`
	Sections       []Section `json:"sections"`
}

// Summary is the reduced article shape shown in listings and navigation.
type Summary struct {
	ID             string    `json:"id"`
	FirstPublished time.Time `json:"first_published"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle"`
	Author         string    `json:"author"`
}

// ListingPage is one page of article summaries. An empty Cursor means the
// listing is exhausted.
type ListingPage struct {
	Items  []Summary `json:"items"`
	Cursor string    `json:"cursor,omitempty"`
}

// HasMore reports whether another page can be fetched.
func (p ListingPage) HasMore() bool {
	return p.Cursor != ""
}

// Summary returns the listing view of the article.
func (a Article) Summary() Summary {
	return Summary{
		ID:             a.ID,
		FirstPublished: a.FirstPublished,
		Title:          a.Title,
		Subtitle:       a.Subtitle,
		Author:         a.Author,
	}
}

// WasEdited reports whether the article changed after its first publication.
// Instants are compared, so the same moment expressed in two zones is not an edit.
func (a Article) WasEdited() bool {
	return !a.LastModified.Equal(a.FirstPublished)
}
