// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce groups bursts of file events into one import.
const DefaultWatchDebounce = 500 * time.Millisecond

// Watcher re-imports markdown files from a directory as they change.
type Watcher struct {
	repo     *Repository
	dir      string
	logger   *slog.Logger
	debounce time.Duration

	// OnImport runs after each batch that stored at least one document.
	OnImport func(ctx context.Context)
}

// NewWatcher creates a Watcher for dir.
func NewWatcher(repo *Repository, dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		repo:     repo,
		dir:      dir,
		logger:   logger,
		debounce: DefaultWatchDebounce,
	}
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := w.addTree(fw, w.dir); err != nil {
		return err
	}
	w.logger.Info("watching markdown directory", "dir", w.dir)

	pending := make(map[string]struct{})
	var flush <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.logger.Warn("failed to watch directory", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if !isMarkdown(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				// Removing a file does not unpublish its document.
				w.logger.Info("markdown file removed", "path", ev.Name)
				delete(pending, ev.Name)
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) {
				pending[ev.Name] = struct{}{}
				flush = time.After(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-flush:
			flush = nil
			w.importPending(ctx, pending)
			clear(pending)
		}
	}
}

func (w *Watcher) importPending(ctx context.Context, paths map[string]struct{}) {
	stored := 0
	for path := range paths {
		published, err := ImportFile(ctx, w.repo, path)
		if err != nil {
			w.logger.Warn("failed to import markdown file", "path", path, "error", err)
			continue
		}
		stored++
		w.logger.Info("imported markdown file", "path", path, "published", published)
	}
	if stored > 0 && w.OnImport != nil {
		w.OnImport(ctx)
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fw.Add(path); err != nil {
				return fmt.Errorf("watching %s: %w", path, err)
			}
		}
		return nil
	})
}
