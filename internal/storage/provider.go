// Package storage lists, reads and writes the note files of collections.
package storage

import (
	"time"

	"github.com/c-c-k/progirl/internal/uri"
)

// NoteMeta describes one note file on disk.
type NoteMeta struct {
	URI       uri.URI   `json:"uri"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for note file access across collections.
type Provider interface {
	// List returns metadata for every note file of every collection.
	List() ([]NoteMeta, error)
	// Read returns the raw bytes of the note at the absolute path.
	Read(path string) ([]byte, error)
	// Locate returns the URI of a note file, or false when path is not a
	// note of any collection.
	Locate(path string) (uri.URI, bool)
	// Roots returns the notes directories to watch.
	Roots() []string
}
