// Package autoid allocates sequential ids from plain-text counter files.
//
// A counter file is claimed by renaming it to its "~" sibling, updated in
// place, and released by renaming it back. Rename is atomic, so at most one
// cooperating process holds a counter at a time.
package autoid

import (
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

	"github.com/c-c-k/progirl/internal/apperr"
)

// Format is the numeric base a counter is stored and returned in.
type Format string

// Counter formats.
const (
	Decimal Format = "decimal"
	Hex     Format = "hex"
)

func (f Format) base() int {
	if f == Hex {
		return 16
	}
	return 10
}

// Defaults used by New.
const (
	DefaultWidth      = 4
	DefaultRetries    = 10
	DefaultRetryDelay = 10 * time.Millisecond
	DefaultStaleAfter = 2 * time.Second
)

// Allocator hands out ids from counter files.
type Allocator struct {
	Format     Format
	Width      int
	Retries    int
	RetryDelay time.Duration
	// StaleAfter is how old an orphaned "~" file must be before it is
	// treated as left behind by a crashed holder. Zero disables recovery.
	StaleAfter time.Duration
	Logger     *slog.Logger
}

// New returns an allocator with the default retry policy.
func New(format Format, width int) *Allocator {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Allocator{
		Format:     format,
		Width:      width,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		StaleAfter: DefaultStaleAfter,
		Logger:     slog.Default(),
	}
}

// CollectionCounter returns the counter file of a collection rooted at root.
func CollectionCounter(root string) string {
	return filepath.Join(root, ".pkb", "next_id")
}

// DirectoryCounter returns the counter file of a directory.
func DirectoryCounter(dir string) string {
	return filepath.Join(dir, ".next_id")
}

func tempPath(counter string) string {
	return counter + "~"
}

// Allocate increments the counter stored at path and returns its previous
// value, left padded with zeros to the allocator width.
func (a *Allocator) Allocate(ctx context.Context, path string) (string, error) {
	tmp := tempPath(path)

	if !exists(path) && !exists(tmp) {
		if err := initCounter(path); err != nil {
			return "", err
		}
	}

	if err := a.claim(ctx, path, tmp); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(tmp)
	if err != nil {
		return "", fmt.Errorf("autoid: read %s: %w: %w", tmp, apperr.ErrIO, err)
	}
	text := strings.TrimSpace(string(raw))
	current, err := strconv.ParseUint(text, a.Format.base(), 64)
	if err != nil {
		// Release the claim unchanged so the counter is not lost.
		_ = os.Rename(tmp, path)
		return "", fmt.Errorf("autoid: parse %q in %s: %w", text, path, err)
	}

	next := strconv.FormatUint(current+1, a.Format.base())
	if err := os.WriteFile(tmp, []byte(next), 0o644); err != nil {
		_ = os.Rename(tmp, path)
		return "", fmt.Errorf("autoid: write %s: %w: %w", tmp, apperr.ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("autoid: release %s: %w: %w", path, apperr.ErrIO, err)
	}

	a.logger().Debug("autoid: allocated",
		slog.String("counter", path),
		slog.String("value", text))
	return a.pad(strconv.FormatUint(current, a.Format.base())), nil
}

// claim renames the counter to its temp sibling, retrying while another
// holder has it.
func (a *Allocator) claim(ctx context.Context, path, tmp string) error {
	retries := a.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	for attempt := 0; attempt < retries; attempt++ {
		err := os.Rename(path, tmp)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("autoid: claim %s: %w: %w", path, apperr.ErrIO, err)
		}
		if a.recoverStale(path, tmp) {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.RetryDelay):
		}
	}
	return fmt.Errorf("autoid: can't access %s to get auto id: %w", path, apperr.ErrCounterBusy)
}

// recoverStale restores a temp file left behind by a crashed holder. Age
// is taken from the inode change time, which every claim and write moves.
func (a *Allocator) recoverStale(path, tmp string) bool {
	if a.StaleAfter <= 0 {
		return false
	}
	changed, ok := changeTime(tmp)
	if !ok || time.Since(changed) < a.StaleAfter {
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		return false
	}
	a.logger().Warn("autoid: recovered abandoned counter",
		slog.String("counter", path),
		slog.Time("changed", changed))
	return true
}

func (a *Allocator) pad(v string) string {
	if len(v) >= a.Width {
		return v
	}
	return strings.Repeat("0", a.Width-len(v)) + v
}

func (a *Allocator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// initCounter publishes a zero counter at path unless one appeared in the
// meantime. The value is written to a private file first and hard linked
// into place, so readers never observe an empty counter.
func initCounter(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("autoid: mkdir: %w: %w", apperr.ErrIO, err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), ".next_id-init-*")
	if err != nil {
		return fmt.Errorf("autoid: init %s: %w: %w", path, apperr.ErrIO, err)
	}
	name := f.Name()
	defer os.Remove(name)

	_ = f.Chmod(0o644)
	if _, err := f.WriteString("0"); err != nil {
		_ = f.Close()
		return fmt.Errorf("autoid: init %s: %w: %w", path, apperr.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("autoid: init %s: %w: %w", path, apperr.ErrIO, err)
	}
	if err := os.Link(name, path); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("autoid: init %s: %w: %w", path, apperr.ErrIO, err)
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
