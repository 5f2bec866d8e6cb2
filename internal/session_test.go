package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/c-c-k/progirl/internal/collection"
)

func testConfig(t *testing.T, withIndex bool) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.PKB.WorkingDir = dir
	cfg.PKB.Collections = []collection.Definition{
		{Name: "wiki", Path: filepath.Join(dir, "wiki")},
		{Name: "work", Path: filepath.Join(dir, "work")},
	}
	cfg.PKB.Active = "work"
	if withIndex {
		cfg.SQLite.Path = filepath.Join(dir, "state", "index.db")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestOpen(t *testing.T) {
	cfg := testConfig(t, true)
	s, err := Open(WithConfig(cfg), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if got := s.Registry.ActiveID(); got != "pkb-work" {
		t.Errorf("active = %q, want pkb-work", got)
	}
	if _, err := os.Stat(cfg.SQLite.Path); err != nil {
		t.Errorf("index database not created: %v", err)
	}
	if err := s.Service.Sync(); err != nil {
		t.Errorf("Sync: %v", err)
	}
}

func TestOpen_WithoutIndex(t *testing.T) {
	s, err := Open(WithConfig(testConfig(t, false)), WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if _, err := s.Service.Search(context.Background(), "x", 1); err == nil {
		t.Error("search should fail without an index")
	}
}

func TestOpen_RequiresConfig(t *testing.T) {
	if _, err := Open(WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestOpen_UnknownActive(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.PKB.Active = "nope"
	if _, err := Open(WithConfig(cfg), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected error for unknown active collection")
	}
}
