package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/c-c-k/progirl/internal/parser"
	"github.com/c-c-k/progirl/internal/storage"
	"github.com/c-c-k/progirl/internal/uri"
)

// Linker maps a raw link target found in the note at notePath to the URI
// stored in the links table. An empty result drops the link.
type Linker func(target, notePath string) string

// Sync brings the index up to date with the notes of every collection:
//   - new and changed notes are parsed and upserted
//   - notes removed from disk are deleted from the index
func Sync(db NoteIndex, store storage.Provider, link Linker, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		key := m.URI.String()
		disk[key] = struct{}{}

		if checksums[key] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("uri", key), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.URI, m.Path, data, link); err != nil {
			logger.Warn("sync: index failed", slog.String("uri", key), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("uri", key))
		}
	}

	for u := range checksums {
		if _, ok := disk[u]; !ok {
			if err := db.DeleteNote(u); err != nil {
				logger.Warn("sync: delete failed", slog.String("uri", u), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("uri", u))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it as the note u stored at path.
func IndexFile(db NoteIndex, u uri.URI, path string, data []byte, link Linker) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}

	var targets []string
	for _, raw := range res.Links {
		if link != nil {
			raw = link(raw, path)
		}
		if raw != "" {
			targets = append(targets, raw)
		}
	}

	updated := time.Now().UTC()
	if info, err := os.Stat(path); err == nil {
		updated = info.ModTime().UTC()
	}
	title := res.Title
	if title == "" {
		title = filepath.Base(path)
	}
	row := NoteRow{
		URI:        u.String(),
		Collection: u.Protocol,
		Path:       path,
		Title:      title,
		Checksum:   storage.Checksum(data),
		Tags:       res.Tags,
		UpdatedAt:  updated,
	}
	return db.UpsertNote(row, res.Body, targets)
}
