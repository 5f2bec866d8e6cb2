package collection

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/pathutil"
)

func boolPtr(b bool) *bool { return &b }

func TestLoad_DefaultCollection(t *testing.T) {
	t.Setenv("HOME", pathutil.RealPath(t.TempDir()))

	reg, err := Load(nil, LoadOptions{Prefix: DefaultPrefix})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ids := reg.IDs(); len(ids) != 1 || ids[0] != "pkb-default" {
		t.Fatalf("ids = %v, want [pkb-default]", ids)
	}
	c := reg.Active()
	if c.ID != "pkb-default" || reg.ActiveID() != "pkb-default" {
		t.Errorf("active = %q", reg.ActiveID())
	}
	home, _ := filepath.Abs(pathutil.Expand("~"))
	if c.Path != filepath.Join(home, "pkb", "default") {
		t.Errorf("path = %q", c.Path)
	}
	if c.NotesPath != filepath.Join(c.Path, "notes") {
		t.Errorf("notes path = %q", c.NotesPath)
	}
	if c.DefaultTemplate != filepath.Join(c.Path, "templates", "note.tpl") {
		t.Errorf("default template = %q", c.DefaultTemplate)
	}
	if c.Extension != ".md" || c.AutoIDScope != ScopeDirectory {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestLoad_WorkingDirContext(t *testing.T) {
	root := pathutil.RealPath(t.TempDir())
	wd := pathutil.RealPath(t.TempDir())

	reg, err := Load([]Definition{{
		Name:          "work",
		Path:          root,
		UsePathAsRoot: boolPtr(false),
		NotesPath:     "shared/notes",
	}}, LoadOptions{Prefix: "pkb-", WorkingDir: wd})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c, err := reg.Get("pkb-work")
	if err != nil {
		t.Fatal(err)
	}
	if c.NotesPath != filepath.Join(wd, "shared", "notes") {
		t.Errorf("notes path = %q, want under working dir", c.NotesPath)
	}
	if c.TemplatesPath != "/templates" {
		t.Errorf("absolute templates path should stay absolute, got %q", c.TemplatesPath)
	}
}

func TestLoad_ExplicitIDAndActive(t *testing.T) {
	base := pathutil.RealPath(t.TempDir())
	reg, err := Load([]Definition{
		{Name: "first", Path: filepath.Join(base, "a")},
		{Name: "second", ID: "custom", Path: filepath.Join(base, "b")},
	}, LoadOptions{Prefix: "x-", Active: "second"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reg.ActiveID() != "custom" {
		t.Errorf("active = %q, want custom", reg.ActiveID())
	}
	if !reg.Has("x-first") || !reg.Has("custom") {
		t.Errorf("ids = %v", reg.IDs())
	}
	if err := reg.SetActive("x-first"); err != nil || reg.Active().Name != "first" {
		t.Errorf("SetActive by id failed: %v", err)
	}
}

func TestLoad_InvalidName(t *testing.T) {
	_, err := Load([]Definition{{Name: "Bad-Name", Path: t.TempDir()}}, LoadOptions{})
	if !errors.Is(err, apperr.ErrInvalidName) {
		t.Errorf("err = %v, want ErrInvalidName", err)
	}
}

func TestLoad_InvalidScope(t *testing.T) {
	_, err := Load([]Definition{{Name: "ok", Path: t.TempDir(), AutoIDScope: "global"}}, LoadOptions{})
	if err == nil {
		t.Error("expected validation error for unknown auto id scope")
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]Definition{{Name: "a", Path: dir}, {Name: "a", Path: dir}}, LoadOptions{})
	if err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestRegistry_LookupUnknown(t *testing.T) {
	reg, err := Load([]Definition{{Name: "a", Path: t.TempDir()}}, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Lookup("nope"); !errors.Is(err, apperr.ErrUnknownCollection) {
		t.Errorf("err = %v, want ErrUnknownCollection", err)
	}
	if err := reg.SetActive("nope"); err == nil {
		t.Error("SetActive should fail for unknown collection")
	}
	if c, err := reg.Lookup("a"); err != nil || c.ID != "a" {
		t.Errorf("Lookup by name = %v, %v", c, err)
	}
}

func TestRegistry_ByPath(t *testing.T) {
	base := pathutil.RealPath(t.TempDir())
	reg, err := Load([]Definition{
		{Name: "outer", Path: filepath.Join(base, "pkb")},
		{Name: "inner", Path: filepath.Join(base, "pkb", "inner")},
		{Name: "sibling", Path: filepath.Join(base, "pkb2")},
	}, LoadOptions{Prefix: "pkb-"})
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]string{
		filepath.Join(base, "pkb", "notes", "a.md"):          "pkb-outer",
		filepath.Join(base, "pkb", "inner", "notes", "b.md"): "pkb-inner",
		filepath.Join(base, "pkb2", "c.md"):                  "pkb-sibling",
	}
	for p, want := range cases {
		c, ok := reg.ByPath(p)
		if !ok || c.ID != want {
			t.Errorf("ByPath(%q) = %v, want %s", p, c, want)
		}
	}
	if _, ok := reg.ByPath("/elsewhere/x.md"); ok {
		t.Error("unexpected match outside every collection")
	}
	if got := reg.Current("/elsewhere/x.md"); got.ID != reg.ActiveID() {
		t.Errorf("Current fallback = %q", got.ID)
	}
}

func TestFilenameTemplateFor(t *testing.T) {
	reg, err := Load([]Definition{{Name: "a", Path: t.TempDir()}}, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	c := reg.Active()
	if got := c.FilenameTemplateFor("/pkb/notes/projects/x/cards"); got != "${AUTO_ID}-${TITLE_CLEAN}" {
		t.Errorf("cards template = %q", got)
	}
	if got := c.FilenameTemplateFor("/pkb/notes/journal"); got != c.FilenameTemplate {
		t.Errorf("default template = %q", got)
	}
}

func TestURIFor(t *testing.T) {
	base := pathutil.RealPath(t.TempDir())
	reg, err := Load([]Definition{{Name: "kb", Path: base}}, LoadOptions{Prefix: "pkb-"})
	if err != nil {
		t.Fatal(err)
	}
	c := reg.Active()

	if got := reg.URIFor(filepath.Join(c.NotesPath, "a", "b.md")).String(); got != "pkb-kb:/a/b.md" {
		t.Errorf("note uri = %q", got)
	}
	outside := filepath.Join(base, "other", "c.md")
	if got := reg.URIFor(outside); got.Protocol != "" || got.Body != outside {
		t.Errorf("outside notes root = %+v", got)
	}
	if got := reg.URIFor("/elsewhere/x.md").String(); got != "/elsewhere/x.md" {
		t.Errorf("outside collections = %q", got)
	}
}
