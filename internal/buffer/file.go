package buffer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c-c-k/progirl/internal/storage"
)

// File is a Buffer loaded from a file on disk. Applied edits are written
// back atomically.
type File struct {
	*Memory
	trailingNewline bool
}

// OpenFile loads path into a buffer with the cursor at line, col.
// A missing file yields an empty buffer that is created on first edit.
func OpenFile(path string, line, col int) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("buffer: resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("buffer: read %s: %w", path, err)
	}

	content := string(data)
	trailing := strings.HasSuffix(content, "\n") || content == ""
	content = strings.TrimSuffix(content, "\n")
	var lines []string
	if content != "" || len(data) > 0 {
		lines = strings.Split(content, "\n")
	}
	return &File{
		Memory:          NewMemory(lines, WithCursor(line, col), WithPath(abs)),
		trailingNewline: trailing,
	}, nil
}

// Apply applies e and rewrites the file: temp file, fsync, rename.
// The in-memory lines only change once the file has been replaced.
func (f *File) Apply(e Edit) error {
	lines, err := apply(f.lines, e)
	if err != nil {
		return err
	}
	content := strings.Join(lines, "\n")
	if f.trailingNewline {
		content += "\n"
	}
	if err := storage.WriteFile(f.path, []byte(content)); err != nil {
		return err
	}
	f.lines = lines
	return nil
}
