// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"errors"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/repository"
)

// documentTimeLayout is the timestamp format of repository documents.
const documentTimeLayout = "2006-01-02T15:04:05-0700"

// DefaultDocumentType is the document type of blog posts.
const DefaultDocumentType = "posts"

// DocumentInput describes a post to be stored as a repository document.
type DocumentInput struct {
	UID            string
	FirstPublished time.Time
	// LastPublished defaults to FirstPublished.
	LastPublished time.Time
	Title         string
	Subtitle      string
	Author        string
	BannerURL     string
	Sections      []content.Section
}

type documentField struct {
	path  string
	value any
}

// BuildDocument renders in as a raw document in the headless repository shape.
func BuildDocument(docType string, in DocumentInput) (repository.Raw, error) {
	if strings.TrimSpace(in.UID) == "" {
		return nil, errors.New("document uid is required")
	}
	if in.FirstPublished.IsZero() {
		return nil, errors.New("document first publication date is required")
	}
	if docType == "" {
		docType = DefaultDocumentType
	}
	lastPublished := in.LastPublished
	if lastPublished.IsZero() {
		lastPublished = in.FirstPublished
	}
	sections := in.Sections
	if sections == nil {
		sections = []content.Section{}
	}

	fields := []documentField{
		{"id", in.UID},
		{"uid", in.UID},
		{"type", docType},
		{"first_publication_date", in.FirstPublished.UTC().Format(documentTimeLayout)},
		{"last_publication_date", lastPublished.UTC().Format(documentTimeLayout)},
		{"data.title", in.Title},
		{"data.subtitle", in.Subtitle},
		{"data.author", in.Author},
		{"data.content", sections},
	}
	if in.BannerURL != "" {
		fields = append(fields, documentField{"data.banner.url", in.BannerURL})
	}

	doc := []byte(`{}`)
	for _, f := range fields {
		var err error
		if doc, err = sjson.SetBytes(doc, f.path, f.value); err != nil {
			return nil, err
		}
	}
	return repository.Raw(doc), nil
}
