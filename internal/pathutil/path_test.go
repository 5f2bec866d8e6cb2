package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/c-c-k/progirl/internal/apperr"
)

func tempDir(t *testing.T) string {
	t.Helper()
	return RealPath(t.TempDir())
}

func TestExpand(t *testing.T) {
	t.Setenv("PROGIRL_TEST_DIR", "/srv/notes")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cases := map[string]string{
		"$PROGIRL_TEST_DIR/a/../b": "/srv/notes/b",
		"${PROGIRL_TEST_DIR}/x":    "/srv/notes/x",
		"~/pkb":                    filepath.Join(home, "pkb"),
		"~":                        home,
		"a/./b/":                   "a/b",
		"":                         ".",
		"$PROGIRL_UNSET_VAR/x":     "${PROGIRL_UNSET_VAR}/x",
	}
	for in, want := range cases {
		if got := Expand(in); got != want {
			t.Errorf("Expand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve_ContextDir(t *testing.T) {
	dir := tempDir(t)
	got := Resolve("sub/../note.md", WithContextDir(dir))
	want := filepath.Join(dir, "note.md")
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolve_ContextRoot(t *testing.T) {
	root := tempDir(t)
	got := Resolve("/projects/x.md", WithContextRoot(root), WithContextDir("/elsewhere"))
	want := filepath.Join(root, "projects", "x.md")
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestResolve_RelativeIgnoresRoot(t *testing.T) {
	root := tempDir(t)
	dir := tempDir(t)
	got := Resolve("x.md", WithContextRoot(root), WithContextDir(dir))
	if got != filepath.Join(dir, "x.md") {
		t.Errorf("Resolve = %q, want under context dir", got)
	}
}

func TestResolve_WorkingDirFallback(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	got := Resolve("x.md", WithoutCanonicalize())
	if got != filepath.Join(wd, "x.md") {
		t.Errorf("Resolve = %q", got)
	}
}

func TestResolve_Symlink(t *testing.T) {
	dir := tempDir(t)
	target := filepath.Join(dir, "real")
	if err := os.Mkdir(target, 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got := Resolve("link/missing/file.md", WithContextDir(dir))
	want := filepath.Join(target, "missing", "file.md")
	if got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
	raw := Resolve("link/file.md", WithContextDir(dir), WithoutCanonicalize())
	if raw != filepath.Join(link, "file.md") {
		t.Errorf("uncanonical Resolve = %q", raw)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	dir := tempDir(t)
	once := Resolve("a/b/../c.md", WithContextDir(dir))
	twice := Resolve(once, WithContextDir(dir))
	if once != twice {
		t.Errorf("not idempotent: %q vs %q", once, twice)
	}
}

func TestValidate(t *testing.T) {
	dir := tempDir(t)
	existing := filepath.Join(dir, "with space.md")
	if err := os.WriteFile(existing, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if got, err := Validate(existing); err != nil || got != existing {
		t.Errorf("Validate(existing) = %q, %v", got, err)
	}
	if _, err := Validate("/plausible/заметка_é.md"); err != nil {
		t.Errorf("non-ascii plausible path rejected: %v", err)
	}
	if _, err := Validate("/plausible/new_note.md"); err != nil {
		t.Errorf("plausible path rejected: %v", err)
	}
	_, err := Validate("/no such/file?.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTouchWithParents(t *testing.T) {
	dir := tempDir(t)
	p := filepath.Join(dir, "a", "b", "note.md")

	got, err := TouchWithParents(p)
	if err != nil {
		t.Fatalf("TouchWithParents: %v", err)
	}
	if got != p {
		t.Errorf("path = %q, want %q", got, p)
	}
	info, err := os.Stat(p)
	if err != nil || info.Size() != 0 {
		t.Fatalf("expected empty file, stat err = %v", err)
	}

	if err := os.WriteFile(p, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := TouchWithParents(p); err != nil {
		t.Fatalf("second touch: %v", err)
	}
	data, _ := os.ReadFile(p)
	if string(data) != "keep" {
		t.Errorf("existing file modified: %q", data)
	}
}

func TestTouchWithParents_IOError(t *testing.T) {
	dir := tempDir(t)
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := TouchWithParents(filepath.Join(blocker, "child", "x.md"))
	if !errors.Is(err, apperr.ErrIO) {
		t.Errorf("err = %v, want ErrIO", err)
	}
}

func TestContextDir(t *testing.T) {
	dir := tempDir(t)
	if got := ContextDir(filepath.Join(dir, "note.md"), false); got != dir {
		t.Errorf("ContextDir = %q, want %q", got, dir)
	}
	if got := ContextDir("", false); got != "" {
		t.Errorf("ContextDir without buffer = %q, want empty", got)
	}
	if got := ContextDir("", true); got == "" {
		t.Error("ContextDir with cwd fallback should not be empty")
	}
}

func TestHasPathPrefix(t *testing.T) {
	cases := []struct {
		path, prefix string
		want         bool
	}{
		{"/pkb/default/notes/a.md", "/pkb/default", true},
		{"/pkb/default", "/pkb/default", true},
		{"/pkb/default2/a.md", "/pkb/default", false},
		{"/pkb/a.md", "/", true},
		{"/pkb", "", false},
	}
	for _, c := range cases {
		if got := HasPathPrefix(c.path, c.prefix); got != c.want {
			t.Errorf("HasPathPrefix(%q, %q) = %v, want %v", c.path, c.prefix, got, c.want)
		}
	}
}
