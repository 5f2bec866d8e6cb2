package autoid

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/c-c-k/progirl/internal/apperr"
)

func readCounter(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return string(data)
}

func TestAllocate_FreshCounter(t *testing.T) {
	path := DirectoryCounter(filepath.Join(t.TempDir(), "new", "dir"))
	a := New(Decimal, 8)

	got, err := a.Allocate(context.Background(), path)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got != "00000000" {
		t.Errorf("id = %q, want %q", got, "00000000")
	}
	if c := readCounter(t, path); c != "1" {
		t.Errorf("counter = %q, want %q", c, "1")
	}
	if _, err := os.Stat(path + "~"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestAllocate_Monotonic(t *testing.T) {
	path := CollectionCounter(t.TempDir())
	a := New(Hex, 4)

	want := []string{"0000", "0001", "0002", "0003", "0004", "0005", "0006", "0007",
		"0008", "0009", "000a", "000b", "000c", "000d", "000e", "000f", "0010"}
	for i, w := range want {
		got, err := a.Allocate(context.Background(), path)
		if err != nil {
			t.Fatalf("Allocate #%d: %v", i, err)
		}
		if got != w {
			t.Errorf("Allocate #%d = %q, want %q", i, got, w)
		}
	}
	if c := readCounter(t, path); c != "11" {
		t.Errorf("counter = %q, want 11", c)
	}
}

func TestAllocate_ReadsExistingValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".next_id")
	if err := os.WriteFile(path, []byte("41\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := New(Decimal, 2).Allocate(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "41" {
		t.Errorf("id = %q, want 41", got)
	}
	if c := readCounter(t, path); c != "42" {
		t.Errorf("counter = %q, want 42", c)
	}
}

func TestAllocate_CrashRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".next_id")
	if err := os.WriteFile(path+"~", []byte("5"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := New(Decimal, 4)
	a.StaleAfter = 50 * time.Millisecond
	time.Sleep(100 * time.Millisecond)

	got, err := a.Allocate(context.Background(), path)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if got != "0005" {
		t.Errorf("id = %q, want 0005 (not reinitialised)", got)
	}
	if c := readCounter(t, path); c != "6" {
		t.Errorf("counter = %q, want 6", c)
	}
}

func TestAllocate_FreshClaimOfOldCounterIsHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".next_id")
	if err := os.WriteFile(path, []byte("7"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}
	// Another process claims the counter; the rename keeps the old mtime.
	if err := os.Rename(path, path+"~"); err != nil {
		t.Fatal(err)
	}

	a := New(Decimal, 4)
	a.Retries = 3
	a.RetryDelay = time.Millisecond
	a.StaleAfter = time.Second

	if id, err := a.Allocate(context.Background(), path); !errors.Is(err, apperr.ErrCounterBusy) {
		t.Fatalf("Allocate = %q, %v, want ErrCounterBusy", id, err)
	}
	if c := readCounter(t, path+"~"); c != "7" {
		t.Errorf("held counter = %q, want 7", c)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("held claim was taken over: %v", err)
	}
}

func TestAllocate_BusyCounterFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".next_id")
	if err := os.WriteFile(path+"~", []byte("3"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := New(Decimal, 4)
	a.Retries = 3
	a.RetryDelay = time.Millisecond
	a.StaleAfter = time.Hour

	_, err := a.Allocate(context.Background(), path)
	if !errors.Is(err, apperr.ErrCounterBusy) {
		t.Fatalf("err = %v, want ErrCounterBusy", err)
	}
	if c := readCounter(t, path+"~"); c != "3" {
		t.Errorf("pending counter modified: %q", c)
	}
}

func TestAllocate_ContextCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".next_id")
	if err := os.WriteFile(path+"~", []byte("3"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := New(Decimal, 4)
	a.StaleAfter = 0
	if _, err := a.Allocate(ctx, path); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAllocate_InvalidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".next_id")
	if err := os.WriteFile(path, []byte("zz"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Decimal, 4).Allocate(context.Background(), path); err == nil {
		t.Fatal("expected parse error")
	}
	if c := readCounter(t, path); c != "zz" {
		t.Errorf("counter should be released unchanged, got %q", c)
	}
}

func TestAllocate_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".next_id")
	a := New(Decimal, 4)
	a.Retries = 10000
	a.RetryDelay = 100 * time.Microsecond
	a.StaleAfter = 0

	// Initialise before racing; creation itself is not contention safe.
	if _, err := a.Allocate(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	const workers, each = 8, 5
	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				id, err := a.Allocate(context.Background(), path)
				if err != nil {
					t.Errorf("Allocate: %v", err)
					return
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*each {
		t.Errorf("got %d distinct ids, want %d", len(seen), workers*each)
	}
	if c := readCounter(t, path); c != "41" {
		t.Errorf("counter = %q, want 41", c)
	}
}
