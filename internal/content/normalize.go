// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"
)

// Record field paths in the repository document shape.
const (
	pathUID            = "uid"
	pathFirstPublished = "first_publication_date"
	pathLastModified   = "last_publication_date"
	pathTitle          = "data.title"
	pathSubtitle       = "data.subtitle"
	pathAuthor         = "data.author"
	pathBanner         = "data.banner.url"
	pathContent        = "data.content"
)

// timeLayouts lists the accepted timestamp formats, most specific first.
var timeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// stripPolicy removes any markup that leaked into display strings.
var stripPolicy = bluemonday.StrictPolicy()

// Normalize maps a raw repository document to an Article.
// Missing optional fields become empty values and a present title may be
// empty. A missing or unparsable uid, first publication date or title
// yields ErrMalformedRecord. The first publication date is truncated to
// milliseconds.
func Normalize(raw []byte) (Article, error) {
	doc, err := parseRecord(raw)
	if err != nil {
		return Article{}, err
	}

	head, err := normalizeHead(doc)
	if err != nil {
		return Article{}, err
	}

	article := Article{
		ID:             head.ID,
		FirstPublished: head.FirstPublished,
		LastModified:   head.FirstPublished,
		Title:          head.Title,
		Subtitle:       head.Subtitle,
		Author:         head.Author,
		BannerURL:      strings.TrimSpace(doc.Get(pathBanner).String()),
		Sections:       normalizeSections(doc.Get(pathContent)),
	}

	if modified, ok := parseTime(doc.Get(pathLastModified)); ok {
		article.LastModified = modified
	}

	return article, nil
}

// NormalizeSummary maps a raw repository document to a Summary. Listing
// documents may omit the body entirely.
func NormalizeSummary(raw []byte) (Summary, error) {
	doc, err := parseRecord(raw)
	if err != nil {
		return Summary{}, err
	}
	return normalizeHead(doc)
}

func parseRecord(raw []byte) (gjson.Result, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON document", ErrMalformedRecord)
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return gjson.Result{}, fmt.Errorf("%w: document is not an object", ErrMalformedRecord)
	}
	return doc, nil
}

// normalizeHead reads the fields shared by Article and Summary.
func normalizeHead(doc gjson.Result) (Summary, error) {
	uid := strings.TrimSpace(doc.Get(pathUID).String())
	if uid == "" {
		return Summary{}, fmt.Errorf("%w: missing %s", ErrMalformedRecord, pathUID)
	}

	published := doc.Get(pathFirstPublished)
	if !published.Exists() || published.Type == gjson.Null {
		return Summary{}, fmt.Errorf("%w: %s: missing %s", ErrMalformedRecord, uid, pathFirstPublished)
	}
	firstPublished, ok := parseTime(published)
	if !ok {
		return Summary{}, fmt.Errorf("%w: %s: unparsable %s %q", ErrMalformedRecord, uid, pathFirstPublished, published.String())
	}
	// Repositories order and compare publication times in milliseconds.
	firstPublished = firstPublished.Truncate(time.Millisecond)

	// Title may be empty but must be present.
	titleField := doc.Get(pathTitle)
	if !titleField.Exists() || titleField.Type == gjson.Null {
		return Summary{}, fmt.Errorf("%w: %s: missing %s", ErrMalformedRecord, uid, pathTitle)
	}
	title := displayString(titleField)

	return Summary{
		ID:             uid,
		FirstPublished: firstPublished,
		Title:          title,
		Subtitle:       displayString(doc.Get(pathSubtitle)),
		Author:         displayString(doc.Get(pathAuthor)),
	}, nil
}

func normalizeSections(field gjson.Result) []Section {
	sections := []Section{}
	if !field.IsArray() {
		return sections
	}

	for _, item := range field.Array() {
		section := Section{
			Heading: displayString(item.Get("heading")),
			Body:    []Block{},
		}
		for _, block := range item.Get("body").Array() {
			section.Body = append(section.Body, Block{
				Type: block.Get("type").String(),
				Text: block.Get("text").String(),
			})
		}
		sections = append(sections, section)
	}
	return sections
}

// displayString reads a string field that may also be stored as a rich-text
// array, in which case the first block's text is used.
func displayString(field gjson.Result) string {
	var s string
	switch {
	case field.IsArray():
		blocks := field.Array()
		if len(blocks) == 0 {
			return ""
		}
		s = blocks[0].Get("text").String()
	case field.Type == gjson.String:
		s = field.String()
	default:
		return ""
	}
	// Sanitize escapes entities; the stored value is plain text, not HTML.
	return strings.TrimSpace(html.UnescapeString(stripPolicy.Sanitize(s)))
}

func parseTime(field gjson.Result) (time.Time, bool) {
	if field.Type != gjson.String {
		return time.Time{}, false
	}
	value := strings.TrimSpace(field.String())
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
