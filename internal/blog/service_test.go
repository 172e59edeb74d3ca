// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/listing"
	"github.com/olegiv/ocms-blog/internal/preview"
	"github.com/olegiv/ocms-blog/internal/repository"
)

var day0 = time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)

type doc struct {
	uid       string
	published time.Time
	modified  time.Time
	words     int
}

func (d doc) raw() repository.Raw {
	return repository.Raw(fmt.Sprintf(`{
		"uid":%q,
		"first_publication_date":%q,
		"last_publication_date":%q,
		"data":{"title":"Post %s","author":"Ana","content":[{"heading":"Intro","body":[{"type":"paragraph","text":%q}]}]}
	}`, d.uid, d.published.Format(time.RFC3339), d.modified.Format(time.RFC3339), d.uid,
		strings.TrimSpace(strings.Repeat("word ", d.words))))
}

// memoryRepo serves docs newest first, pageSize per page.
type memoryRepo struct {
	docs     []doc // newest first
	drafts   map[string]map[string]doc
	pageSize int
	fail     error
	refs     []string
}

func (m *memoryRepo) FetchListingPage(_ context.Context, cursor string) (repository.RawPage, error) {
	if m.fail != nil {
		return repository.RawPage{}, m.fail
	}
	start := 0
	if cursor != "" {
		start, _ = strconv.Atoi(cursor)
	}
	end := min(start+m.pageSize, len(m.docs))
	page := repository.RawPage{}
	for _, d := range m.docs[start:end] {
		page.Items = append(page.Items, d.raw())
	}
	if end < len(m.docs) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (m *memoryRepo) FetchByUID(_ context.Context, uid, ref string) (repository.Raw, error) {
	m.refs = append(m.refs, ref)
	if m.fail != nil {
		return nil, m.fail
	}
	if ref != "" {
		if d, ok := m.drafts[ref][uid]; ok {
			return d.raw(), nil
		}
	}
	for _, d := range m.docs {
		if d.uid == uid {
			return d.raw(), nil
		}
	}
	return nil, fmt.Errorf("%q: %w", uid, content.ErrNotFound)
}

func (m *memoryRepo) QueryAdjacent(_ context.Context, q repository.AdjacentQuery) ([]repository.Raw, error) {
	if q.Direction == repository.Descending {
		for _, d := range m.docs {
			if d.published.Before(q.FirstPublished) {
				return []repository.Raw{d.raw()}, nil
			}
		}
		return nil, nil
	}
	for i := len(m.docs) - 1; i >= 0; i-- {
		if m.docs[i].published.After(q.FirstPublished) {
			return []repository.Raw{m.docs[i].raw()}, nil
		}
	}
	return nil, nil
}

func newRepo() *memoryRepo {
	return &memoryRepo{
		pageSize: 1,
		docs: []doc{
			{uid: "c", published: day0.Add(48 * time.Hour), modified: day0.Add(72 * time.Hour), words: 401},
			{uid: "b", published: day0.Add(24 * time.Hour), modified: day0.Add(24 * time.Hour), words: 200},
			{uid: "a", published: day0, modified: day0, words: 0},
		},
		drafts: map[string]map[string]doc{
			"draft-ref": {"b": {uid: "b", published: day0.Add(24 * time.Hour), modified: day0.Add(96 * time.Hour), words: 201}},
		},
	}
}

func TestService_Listing(t *testing.T) {
	svc := NewService(newRepo(), Options{})

	page, err := svc.Listing(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].ID)
	assert.True(t, page.HasMore())

	page, err = svc.Listing(context.Background(), page.Cursor)
	require.NoError(t, err)
	assert.Equal(t, "b", page.Items[0].ID)
}

func TestService_Article(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, Options{})

	bundle, err := svc.Article(context.Background(), "b", preview.NavigationContext{})
	require.NoError(t, err)

	assert.Equal(t, "b", bundle.Article.ID)
	assert.Equal(t, 2, bundle.ReadingMinutes, "200 words plus the heading")
	assert.False(t, bundle.Edited)
	assert.False(t, bundle.Preview)
	assert.Nil(t, bundle.Exit)
	require.NotNil(t, bundle.Navigation.Previous)
	require.NotNil(t, bundle.Navigation.Next)
	assert.Equal(t, "a", bundle.Navigation.Previous.ID)
	assert.Equal(t, "c", bundle.Navigation.Next.ID)
	assert.Equal(t, []string{""}, repo.refs)
}

func TestService_ArticleEdited(t *testing.T) {
	svc := NewService(newRepo(), Options{})

	bundle, err := svc.Article(context.Background(), "c", preview.NavigationContext{})
	require.NoError(t, err)

	assert.True(t, bundle.Edited)
	assert.True(t, bundle.LastModified.Equal(day0.Add(72*time.Hour)))
	assert.Nil(t, bundle.Navigation.Next)
}

func TestService_ArticlePreview(t *testing.T) {
	repo := newRepo()
	svc := NewService(repo, Options{WordsPerMinute: 100})

	bundle, err := svc.Article(context.Background(), "b", preview.NavigationContext{PreviewRef: "draft-ref"})
	require.NoError(t, err)

	assert.True(t, bundle.Preview)
	assert.True(t, bundle.Edited)
	assert.Equal(t, 3, bundle.ReadingMinutes, "202 words at 100 wpm")
	require.NotNil(t, bundle.Exit)
	assert.Equal(t, preview.SessionKey, bundle.Exit.SessionKey)
	assert.Equal(t, []string{"draft-ref"}, repo.refs)
}

func TestService_ArticleNotFound(t *testing.T) {
	svc := NewService(newRepo(), Options{})

	_, err := svc.Article(context.Background(), "missing", preview.NavigationContext{})
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestService_ArticleUnavailable(t *testing.T) {
	repo := newRepo()
	repo.fail = content.ErrRepositoryUnavailable
	svc := NewService(repo, Options{})

	_, err := svc.Article(context.Background(), "b", preview.NavigationContext{})
	assert.ErrorIs(t, err, content.ErrRepositoryUnavailable)
}

func TestService_ExitPreview(t *testing.T) {
	svc := NewService(newRepo(), Options{})

	nc := svc.ExitPreview(preview.NavigationContext{PreviewRef: "draft-ref"})
	assert.False(t, nc.Previewing())

	bundle, err := svc.Article(context.Background(), "b", nc)
	require.NoError(t, err)
	assert.False(t, bundle.Preview)
}

func TestService_NewListingSession(t *testing.T) {
	svc := NewService(newRepo(), Options{})
	ctx := context.Background()

	session, err := svc.NewListingSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, listing.Loaded, session.Snapshot().State)

	for session.Snapshot().State != listing.Exhausted {
		_, err := session.LoadMore(ctx)
		require.NoError(t, err)
	}

	var got []string
	for _, item := range session.Snapshot().Items {
		got = append(got, item.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, got)
}

func TestService_AllUIDs(t *testing.T) {
	repo := newRepo()
	repo.pageSize = 2
	svc := NewService(repo, Options{})

	uids, err := svc.AllUIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, uids)
}

func TestService_AllSummaries(t *testing.T) {
	repo := newRepo()
	repo.pageSize = 2
	svc := NewService(repo, Options{})

	items, err := svc.AllSummaries(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ID)
	assert.False(t, items[0].FirstPublished.IsZero())
}
