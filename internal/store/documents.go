// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/repository"
)

// Repository is a repository.Repository backed by SQLite. Published documents
// live in documents; unpublished versions live in document_revisions keyed
// by preview ref.
type Repository struct {
	db       *sql.DB
	docType  string
	pageSize int
}

// NewRepository creates a SQLite repository listing pageSize documents per page.
func NewRepository(db *sql.DB, docType string, pageSize int) *Repository {
	if docType == "" {
		docType = DefaultDocumentType
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return &Repository{db: db, docType: docType, pageSize: pageSize}
}

// keysetCursor is the position after the last listed document.
type keysetCursor struct {
	publishedMillis int64
	uid             string
}

const keysetPrefix = "ks:"

func (c keysetCursor) encode() string {
	raw := keysetPrefix + strconv.FormatInt(c.publishedMillis, 10) + ":" + c.uid
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeKeysetCursor(s string) (keysetCursor, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return keysetCursor{}, fmt.Errorf("%w: %v", repository.ErrInvalidCursor, err)
	}
	rest, ok := strings.CutPrefix(string(decoded), keysetPrefix)
	if !ok {
		return keysetCursor{}, repository.ErrInvalidCursor
	}
	millis, uid, ok := strings.Cut(rest, ":")
	if !ok || uid == "" {
		return keysetCursor{}, repository.ErrInvalidCursor
	}
	n, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return keysetCursor{}, repository.ErrInvalidCursor
	}
	return keysetCursor{publishedMillis: n, uid: uid}, nil
}

// FetchListingPage implements repository.Repository. Documents are ordered
// newest first, ties by uid.
func (r *Repository) FetchListingPage(ctx context.Context, cursor string) (repository.RawPage, error) {
	query := `SELECT uid, first_published_at, body FROM documents WHERE doc_type = ?`
	args := []any{r.docType}

	if cursor != "" {
		pos, err := decodeKeysetCursor(cursor)
		if err != nil {
			return repository.RawPage{}, err
		}
		query += ` AND (first_published_at < ? OR (first_published_at = ? AND uid > ?))`
		args = append(args, pos.publishedMillis, pos.publishedMillis, pos.uid)
	}
	query += ` ORDER BY first_published_at DESC, uid ASC LIMIT ?`
	args = append(args, r.pageSize+1)

	rows, err := r.queryDocuments(ctx, query, args...)
	if err != nil {
		return repository.RawPage{}, fmt.Errorf("listing documents: %w", err)
	}

	page := repository.RawPage{Items: make([]repository.Raw, 0, r.pageSize)}
	for i, row := range rows {
		if i == r.pageSize {
			last := rows[i-1]
			page.NextCursor = keysetCursor{publishedMillis: last.publishedMillis, uid: last.uid}.encode()
			break
		}
		page.Items = append(page.Items, row.body)
	}
	return page, nil
}

// FetchByUID implements repository.Repository. A ref selects the revision
// stored under it, falling back to the published document.
func (r *Repository) FetchByUID(ctx context.Context, uid, ref string) (repository.Raw, error) {
	if ref != "" {
		var body string
		err := r.db.QueryRowContext(ctx,
			`SELECT body FROM document_revisions WHERE ref = ? AND uid = ?`, ref, uid).Scan(&body)
		switch {
		case err == nil:
			return repository.Raw(body), nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, unavailable(fmt.Errorf("fetching revision %q of %q: %w", ref, uid, err))
		}
	}

	var body string
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE doc_type = ? AND uid = ?`, r.docType, uid).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", uid, content.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable(fmt.Errorf("fetching %q: %w", uid, err))
	}
	return repository.Raw(body), nil
}

// QueryAdjacent implements repository.Repository.
func (r *Repository) QueryAdjacent(ctx context.Context, q repository.AdjacentQuery) ([]repository.Raw, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 1
	}

	query := `SELECT uid, first_published_at, body FROM documents
		WHERE doc_type = ? AND first_published_at > ? AND uid <> ?
		ORDER BY first_published_at ASC, uid ASC LIMIT ?`
	if q.Direction == repository.Descending {
		query = `SELECT uid, first_published_at, body FROM documents
		WHERE doc_type = ? AND first_published_at < ? AND uid <> ?
		ORDER BY first_published_at DESC, uid ASC LIMIT ?`
	}

	rows, err := r.queryDocuments(ctx, query, r.docType, q.FirstPublished.UnixMilli(), q.ID, pageSize)
	if err != nil {
		return nil, fmt.Errorf("querying %s of %q: %w", q.Direction, q.ID, err)
	}

	items := make([]repository.Raw, len(rows))
	for i, row := range rows {
		items[i] = row.body
	}
	return items, nil
}

// Save publishes raw, replacing any published document with the same uid.
// The document must normalize cleanly.
func (r *Repository) Save(ctx context.Context, raw repository.Raw) error {
	article, err := content.Normalize(raw)
	if err != nil {
		return fmt.Errorf("validating document: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO documents (uid, doc_type, first_published_at, last_published_at, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			doc_type = excluded.doc_type,
			first_published_at = excluded.first_published_at,
			last_published_at = excluded.last_published_at,
			body = excluded.body,
			updated_at = excluded.updated_at`,
		article.ID, r.docType, article.FirstPublished.UnixMilli(), article.LastModified.UnixMilli(),
		string(raw), now, now)
	if err != nil {
		return fmt.Errorf("saving document %q: %w", article.ID, err)
	}
	return nil
}

// SaveRevision stores raw as the version of its document visible under ref.
func (r *Repository) SaveRevision(ctx context.Context, ref string, raw repository.Raw) error {
	if ref == "" {
		return errors.New("revision ref is required")
	}
	article, err := content.Normalize(raw)
	if err != nil {
		return fmt.Errorf("validating revision: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO document_revisions (ref, uid, body, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(ref, uid) DO UPDATE SET body = excluded.body`,
		ref, article.ID, string(raw), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving revision %q of %q: %w", ref, article.ID, err)
	}
	return nil
}

// Count returns the number of published documents.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE doc_type = ?`, r.docType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type documentRow struct {
	uid             string
	publishedMillis int64
	body            repository.Raw
}

func (r *Repository) queryDocuments(ctx context.Context, query string, args ...any) ([]documentRow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer func() { _ = rows.Close() }()

	var out []documentRow
	for rows.Next() {
		var (
			row  documentRow
			body string
		)
		if err := rows.Scan(&row.uid, &row.publishedMillis, &body); err != nil {
			return nil, unavailable(err)
		}
		row.body = repository.Raw(body)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return out, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", content.ErrRepositoryUnavailable, err)
}

var _ repository.Repository = (*Repository)(nil)
