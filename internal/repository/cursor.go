// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package repository

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCursor indicates a cursor that this repository did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

const pageCursorPrefix = "page:"

// encodePageCursor returns the opaque token for a page number.
// The token never embeds the repository's next_page URL.
func encodePageCursor(page int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(pageCursorPrefix + strconv.Itoa(page)))
}

func decodePageCursor(cursor string) (int, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	s, ok := strings.CutPrefix(string(decoded), pageCursorPrefix)
	if !ok {
		return 0, ErrInvalidCursor
	}
	page, err := strconv.Atoi(s)
	if err != nil || page < 1 {
		return 0, ErrInvalidCursor
	}
	return page, nil
}
