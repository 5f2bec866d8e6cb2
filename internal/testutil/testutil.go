// Package testutil provides shared test helpers for setting up collections,
// databases and note services.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/c-c-k/progirl/internal/autoid"
	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/index"
	"github.com/c-c-k/progirl/internal/noteservice"
	"github.com/c-c-k/progirl/internal/notes"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/resolver"
)

// Now is the clock of services built by TestService.
var Now = time.Unix(1700000000, 0)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "progirl-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestRegistry creates one collection per name under a temporary base
// directory, each with an existing notes directory. The first is active.
func TestRegistry(t *testing.T, names ...string) *collection.Registry {
	t.Helper()
	if len(names) == 0 {
		names = []string{"wiki"}
	}
	base := pathutil.RealPath(t.TempDir())
	defs := make([]collection.Definition, 0, len(names))
	for _, name := range names {
		dir := filepath.Join(base, name)
		if err := os.MkdirAll(filepath.Join(dir, "notes"), 0o755); err != nil {
			t.Fatal(err)
		}
		defs = append(defs, collection.Definition{Name: name, Path: dir})
	}
	reg, err := collection.Load(defs, collection.LoadOptions{Prefix: collection.DefaultPrefix, WorkingDir: base})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

// TestService builds a note service with an index over TestRegistry
// collections, resolving through the collection strategy before the
// context fallback.
func TestService(t *testing.T, names ...string) (*noteservice.Service, *collection.Registry) {
	t.Helper()
	reg := TestRegistry(t, names...)
	chain, err := resolver.New(reg, resolver.Options{
		Mode:       resolver.ModeContext,
		Strategies: []string{string(resolver.ModeCollection)},
	})
	if err != nil {
		t.Fatal(err)
	}
	alloc := autoid.New(autoid.Decimal, autoid.DefaultWidth)
	creator := notes.NewCreator(reg, alloc, notes.WithClock(func() time.Time { return Now }))
	svc := noteservice.NewService(reg, chain, creator, alloc, noteservice.WithIndex(TestDB(t)))
	return svc, reg
}

// WriteNote writes content to the note at rel below the notes directory of
// c and returns its path.
func WriteNote(t *testing.T, c *collection.Collection, rel, content string) string {
	t.Helper()
	path := filepath.Join(c.NotesPath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
