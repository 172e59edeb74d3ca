// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util provides article uid generation and validation.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxUIDLength bounds accepted article uids.
const MaxUIDLength = 200

var (
	// nonSlugChars matches everything except lowercase ASCII letters, digits and hyphens.
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	// multipleHyphens matches runs of hyphens.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// stripMarks removes combining accents after decomposition.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify converts s into an article uid: accents are removed, other scripts
// are transliterated to ASCII and everything else collapses to single hyphens.
func Slugify(s string) string {
	result, _, err := transform.String(stripMarks, s)
	if err != nil {
		result = s
	}
	result = strings.ToLower(unidecode.Unidecode(result))
	result = nonSlugChars.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")

	if len(result) > MaxUIDLength {
		result = strings.TrimRight(result[:MaxUIDLength], "-")
	}
	return result
}

// IsValidUID reports whether s is a well-formed article uid: lowercase ASCII
// letters, digits, hyphens and underscores, not starting or ending with a
// separator.
func IsValidUID(s string) bool {
	if s == "" || len(s) > MaxUIDLength {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	first, last := s[0], s[len(s)-1]
	return first != '-' && first != '_' && last != '-' && last != '_'
}
