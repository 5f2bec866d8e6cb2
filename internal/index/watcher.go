package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c-c-k/progirl/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, uri string)

const reconcileDelay = 200 * time.Millisecond

// Watch watches the notes directories of every collection and keeps the
// index current until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// Directories created at runtime are added to the watch list. Renames
// schedule a reconciliation pass that drops entries whose files are gone
// and indexes files that are not yet known.
func Watch(ctx context.Context, db NoteIndex, store storage.Provider, link Linker, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range store.Roots() {
		if err := addDirsRecursive(w, root); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Warn("watcher: notes root missing", slog.String("root", root))
				continue
			}
			return err
		}
		logger.Info("watcher: started", slog.String("root", root))
	}

	notify := func(kind, u string) {
		if cb != nil {
			cb(kind, u)
		}
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(db, store, link, logger, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			path := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
					if strings.HasPrefix(info.Name(), ".") {
						continue
					}
					if addErr := addDirsRecursive(w, path); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", path),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", path))
					}
					indexNewDir(db, store, link, path, logger, notify)
					continue
				}
			}

			u, isNote := store.Locate(path)
			if !isNote {
				continue
			}
			key := u.String()

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				data, readErr := store.Read(path)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("uri", key), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := IndexFile(db, u, path, data, link); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("uri", key), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("uri", key), slog.String("op", kind))
				notify(kind, key)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteNote(key); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("uri", key), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("uri", key))
				notify("deleted", key)

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives
				// as a Create when it stays inside a watched directory.
				if delErr := db.DeleteNote(key); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("uri", key), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("uri", key))
					notify("deleted", key)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile drops index entries without a file on disk and indexes files
// whose checksum differs from the stored one.
func reconcile(db NoteIndex, store storage.Provider, link Linker, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]storage.NoteMeta, len(metas))
	for _, m := range metas {
		disk[m.URI.String()] = m
	}

	for u := range checksums {
		if _, ok := disk[u]; !ok {
			if delErr := db.DeleteNote(u); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("uri", u))
				notify("deleted", u)
			}
		}
	}

	for key, m := range disk {
		if checksums[key] == m.Checksum {
			continue
		}
		data, readErr := store.Read(m.Path)
		if readErr != nil {
			continue
		}
		if idxErr := IndexFile(db, m.URI, m.Path, data, link); idxErr == nil {
			logger.Debug("reconcile: indexed new", slog.String("uri", key))
			notify("created", key)
		}
	}
}

// indexNewDir indexes the notes already present in a new directory.
func indexNewDir(db NoteIndex, store storage.Provider, link Linker, dir string, logger *slog.Logger, notify EventCallback) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		u, ok := store.Locate(path)
		if !ok {
			return nil
		}
		data, readErr := store.Read(path)
		if readErr != nil {
			return nil
		}
		if idxErr := IndexFile(db, u, path, data, link); idxErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("uri", u.String()))
			notify("created", u.String())
		}
		return nil
	})
}

// addDirsRecursive adds root and its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
