package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/uri"
)

// FS implements Provider over the notes directories of a registry.
type FS struct {
	registry *collection.Registry
}

// NewFS returns a provider for the collections of reg.
func NewFS(reg *collection.Registry) *FS {
	return &FS{registry: reg}
}

// Roots implements Provider.
func (f *FS) Roots() []string {
	var out []string
	for _, c := range f.registry.All() {
		out = append(out, c.NotesPath)
	}
	return out
}

// Locate implements Provider. Hidden files and files without the
// collection extension are not notes.
func (f *FS) Locate(path string) (uri.URI, bool) {
	c, ok := f.registry.ByPath(path)
	if !ok || !isNote(c, path) {
		return uri.URI{}, false
	}
	u := c.URIFor(path)
	if u.Protocol == "" {
		return uri.URI{}, false
	}
	return u, true
}

func isNote(c *collection.Collection, path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return c.Extension == "" || strings.EqualFold(filepath.Ext(name), c.Extension)
}

// List implements Provider. Missing notes directories are skipped.
func (f *FS) List() ([]NoteMeta, error) {
	var out []NoteMeta
	for _, c := range f.registry.All() {
		err := filepath.WalkDir(c.NotesPath, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if p == c.NotesPath && errors.Is(walkErr, fs.ErrNotExist) {
					return filepath.SkipDir
				}
				return walkErr
			}
			if d.IsDir() {
				if p != c.NotesPath && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			u, ok := f.Locate(p)
			// Notes of a nested collection belong to that collection.
			if !ok || u.Protocol != c.ID {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			out = append(out, NoteMeta{
				URI:       u,
				Path:      p,
				Checksum:  Checksum(data),
				UpdatedAt: info.ModTime(),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", c.ID, err)
		}
	}
	return out, nil
}

// Read implements Provider.
func (f *FS) Read(path string) ([]byte, error) {
	if _, ok := f.Locate(path); !ok {
		return nil, fmt.Errorf("storage: %s is not a note: %w", path, apperr.ErrNotFound)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w: %w", path, apperr.ErrIO, err)
	}
	return data, nil
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
