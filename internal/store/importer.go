// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/olegiv/ocms-blog/internal/content"
	"github.com/olegiv/ocms-blog/internal/util"
)

var (
	errNoFrontMatter      = errors.New("no front matter found")
	errInvalidFrontMatter = errors.New("invalid front matter")
)

// FrontMatter is the metadata block of an imported markdown post.
type FrontMatter struct {
	UID       string `yaml:"uid" toml:"uid"`
	Title     string `yaml:"title" toml:"title"`
	Subtitle  string `yaml:"subtitle" toml:"subtitle"`
	Author    string `yaml:"author" toml:"author"`
	Banner    string `yaml:"banner" toml:"banner"`
	Published string `yaml:"published" toml:"published"`
	Updated   string `yaml:"updated" toml:"updated"`

	// PreviewRef stores the post as a revision under this ref instead of
	// publishing it.
	PreviewRef string `yaml:"preview_ref" toml:"preview_ref"`
}

// ParseError reports a markdown file that cannot become a document.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ImportResult counts what an import stored.
type ImportResult struct {
	Published int
	Revisions int
	Skipped   int
}

var markdown = goldmark.New()

// ParseFrontMatter splits a YAML (---) or TOML (+++) front matter block from
// the markdown body.
func ParseFrontMatter(raw []byte) (FrontMatter, []byte, error) {
	norm := bytes.ReplaceAll(bytes.TrimSpace(raw), []byte("\r\n"), []byte("\n"))

	var (
		sep       string
		unmarshal func([]byte, any) error
	)
	switch {
	case bytes.HasPrefix(norm, []byte("---\n")):
		sep, unmarshal = "---", yaml.Unmarshal
	case bytes.HasPrefix(norm, []byte("+++\n")):
		sep, unmarshal = "+++", toml.Unmarshal
	default:
		return FrontMatter{}, norm, errNoFrontMatter
	}

	rest := norm[len(sep)+1:]
	var meta, body []byte
	if parts := bytes.SplitN(rest, []byte("\n"+sep+"\n"), 2); len(parts) == 2 {
		meta, body = parts[0], parts[1]
	} else if bytes.HasSuffix(rest, []byte("\n"+sep)) {
		meta = rest[:len(rest)-len(sep)-1]
	} else {
		return FrontMatter{}, norm, errInvalidFrontMatter
	}

	var fm FrontMatter
	if err := unmarshal(meta, &fm); err != nil {
		return FrontMatter{}, norm, fmt.Errorf("%w: %v", errInvalidFrontMatter, err)
	}
	return fm, bytes.TrimSpace(body), nil
}

// ParseMarkdown converts a markdown post into a DocumentInput. Level 1 and 2
// headings start sections; the first level 1 heading is the title when the
// front matter has none. fallbackUID is used when the front matter has no uid.
func ParseMarkdown(raw []byte, fallbackUID string) (DocumentInput, string, error) {
	fm, body, err := ParseFrontMatter(raw)
	if err != nil {
		return DocumentInput{}, "", err
	}

	uid := strings.TrimSpace(fm.UID)
	if uid == "" {
		uid = util.Slugify(fallbackUID)
	}
	if !util.IsValidUID(uid) {
		return DocumentInput{}, "", fmt.Errorf("invalid uid %q", uid)
	}

	published, err := parseImportTime(fm.Published)
	if err != nil {
		return DocumentInput{}, "", fmt.Errorf("published: %w", err)
	}
	var updated time.Time
	if fm.Updated != "" {
		if updated, err = parseImportTime(fm.Updated); err != nil {
			return DocumentInput{}, "", fmt.Errorf("updated: %w", err)
		}
	}

	in := DocumentInput{
		UID:            uid,
		FirstPublished: published,
		LastPublished:  updated,
		Title:          strings.TrimSpace(fm.Title),
		Subtitle:       strings.TrimSpace(fm.Subtitle),
		Author:         strings.TrimSpace(fm.Author),
		BannerURL:      strings.TrimSpace(fm.Banner),
	}
	in.Sections, in.Title = markdownSections(body, in.Title)
	if in.Title == "" {
		return DocumentInput{}, "", errors.New("missing title")
	}
	return in, strings.TrimSpace(fm.PreviewRef), nil
}

func markdownSections(source []byte, title string) ([]content.Section, string) {
	doc := markdown.Parser().Parse(text.NewReader(source))

	sections := []content.Section{}
	add := func(b content.Block) {
		if b.Text == "" {
			return
		}
		if len(sections) == 0 {
			sections = append(sections, content.Section{Body: []content.Block{}})
		}
		last := &sections[len(sections)-1]
		last.Body = append(last.Body, b)
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			heading := nodeText(node, source)
			if node.Level == 1 && title == "" {
				title = heading
				continue
			}
			if node.Level <= 2 {
				sections = append(sections, content.Section{Heading: heading, Body: []content.Block{}})
				continue
			}
			add(content.Block{Type: "heading" + strconv.Itoa(node.Level), Text: heading})
		case *ast.Paragraph, *ast.Blockquote:
			add(content.Block{Type: "paragraph", Text: nodeText(node, source)})
		case *ast.List:
			itemType := "list-item"
			if node.IsOrdered() {
				itemType = "o-list-item"
			}
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				add(content.Block{Type: itemType, Text: nodeText(item, source)})
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			add(content.Block{Type: "preformatted", Text: nodeLines(node, source)})
		}
	}
	return sections, title
}

// nodeText concatenates the inline text below n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

func nodeLines(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}

func parseImportTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range []string{time.RFC3339, time.DateTime, "2006-01-02 15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}

// ImportFile parses one markdown file and stores it in repo.
func ImportFile(ctx context.Context, repo *Repository, path string) (published bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	base := filepath.Base(path)
	in, ref, err := ParseMarkdown(data, strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return false, &ParseError{Path: path, Err: err}
	}

	raw, err := BuildDocument(repo.docType, in)
	if err != nil {
		return false, &ParseError{Path: path, Err: err}
	}

	if ref != "" {
		return false, repo.SaveRevision(ctx, ref, raw)
	}
	return true, repo.Save(ctx, raw)
}

// ImportDir imports every .md file below dir. Files that fail to parse are
// logged and skipped; storage errors abort the import.
func ImportDir(ctx context.Context, repo *Repository, dir string, logger *slog.Logger) (ImportResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var result ImportResult
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isMarkdown(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		published, err := ImportFile(ctx, repo, path)
		switch {
		case err == nil && published:
			result.Published++
		case err == nil:
			result.Revisions++
		case errors.As(err, new(*ParseError)) || errors.Is(err, content.ErrMalformedRecord):
			logger.Warn("skipping markdown file", "path", path, "error", err)
			result.Skipped++
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("importing %s: %w", dir, err)
	}

	logger.Info("markdown import finished", "dir", dir,
		"published", result.Published, "revisions", result.Revisions, "skipped", result.Skipped)
	return result, nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}
