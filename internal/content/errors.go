// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

// Error represents a classified content error.
// Callers wrap these with context and test for them with errors.Is.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrMalformedRecord indicates a repository record is missing a mandatory
	// field or carries one that cannot be parsed. Not retryable.
	ErrMalformedRecord Error = "malformed record"

	// ErrRepositoryUnavailable indicates the content repository could not be
	// reached or answered with a server-side failure. Callers may retry.
	ErrRepositoryUnavailable Error = "repository unavailable"

	// ErrNotFound indicates the requested article does not exist or is not
	// visible under the current preview authorization.
	ErrNotFound Error = "article not found"

	// ErrNoMorePages indicates a listing session was asked to load more after
	// the repository reported no further cursor.
	ErrNoMorePages Error = "no more pages"

	// ErrAlreadyLoading indicates a listing session already has a page fetch
	// in flight.
	ErrAlreadyLoading Error = "already loading"
)
