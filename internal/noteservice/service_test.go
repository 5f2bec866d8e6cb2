package noteservice_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/autoid"
	"github.com/c-c-k/progirl/internal/buffer"
	"github.com/c-c-k/progirl/internal/noteservice"
	"github.com/c-c-k/progirl/internal/notes"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/resolver"
	"github.com/c-c-k/progirl/internal/testutil"
)

func openBuffer(t *testing.T, path string, line, col int) *buffer.File {
	t.Helper()
	buf, err := buffer.OpenFile(path, line, col)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	return buf
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestResolve(t *testing.T) {
	svc, reg := testutil.TestService(t)
	wiki := reg.Active()

	got, err := svc.Resolve(context.Background(), "pkb-wiki:/a/b.md", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := filepath.Join(wiki.NotesPath, "a", "b.md"); got != want {
		t.Errorf("got = %q, want %q", got, want)
	}

	if _, err := svc.Resolve(context.Background(), "pkb-nope:/x.md", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown collection: err = %v, want ErrNotFound", err)
	}
}

func TestGoto(t *testing.T) {
	svc, reg := testutil.TestService(t)
	wiki := reg.Active()
	path := testutil.WriteNote(t, wiki, "index.md", "See [new](sub/new.md) now\n")

	got, err := svc.Goto(context.Background(), openBuffer(t, path, 0, 6))
	if err != nil {
		t.Fatalf("Goto: %v", err)
	}
	want := filepath.Join(wiki.NotesPath, "sub", "new.md")
	if got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
	if !pathutil.Exists(want) {
		t.Error("goto target was not created")
	}

	if _, err := svc.Goto(context.Background(), openBuffer(t, path, 0, 0)); !errors.Is(err, apperr.ErrNoLink) {
		t.Errorf("no link: err = %v, want ErrNoLink", err)
	}
}

func TestGoto_Reference(t *testing.T) {
	svc, reg := testutil.TestService(t)
	wiki := reg.Active()
	path := testutil.WriteNote(t, wiki, "index.md", "Read [the plan][2].\n\n[2]: pkb-wiki:/plans/q1.md\n")

	got, err := svc.Goto(context.Background(), openBuffer(t, path, 0, 8))
	if err != nil {
		t.Fatalf("Goto: %v", err)
	}
	if want := filepath.Join(wiki.NotesPath, "plans", "q1.md"); got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
}

func TestEx(t *testing.T) {
	svc, reg := testutil.TestService(t)
	wiki := reg.Active()
	path := testutil.WriteNote(t, wiki, "index.md", "[site](https://example.com/x) and [doc](pkb-wiki:/doc.pdf)\n")

	got, err := svc.Ex(context.Background(), openBuffer(t, path, 0, 2))
	if err != nil {
		t.Fatalf("Ex: %v", err)
	}
	if got != "https://example.com/x" {
		t.Errorf("url: got = %q", got)
	}

	got, err = svc.Ex(context.Background(), openBuffer(t, path, 0, 36))
	if err != nil {
		t.Fatalf("Ex: %v", err)
	}
	if want := "pkb-wiki:" + filepath.Join(wiki.NotesPath, "doc.pdf"); got != want {
		t.Errorf("collection uri: got = %q, want %q", got, want)
	}
}

func TestCreateNote_Indexed(t *testing.T) {
	svc, reg := testutil.TestService(t)

	info, err := svc.CreateNote(context.Background(), notes.Request{Args: []string{"hello", "world"}})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if !info.Created {
		t.Error("expected a new note")
	}
	if want := filepath.Join(reg.Active().NotesPath, "1700000000-hello_world.md"); info.Path != want {
		t.Errorf("path = %q, want %q", info.Path, want)
	}

	hits, err := svc.Search(context.Background(), "world", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].URI != "pkb-wiki:/1700000000-hello_world.md" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestAddNoteRefLink_SameCollection(t *testing.T) {
	svc, reg := testutil.TestService(t)
	wiki := reg.Active()
	path := testutil.WriteNote(t, wiki, "index.md", "Intro: text\n")
	buf := openBuffer(t, path, 0, 5)

	res, err := svc.AddNoteRefLink(context.Background(), buf, notes.Request{Args: []string{"my", "idea"}, UseBuffer: true})
	if err != nil {
		t.Fatalf("AddNoteRefLink: %v", err)
	}
	if res.Index != "0" || res.Target != "/1700000000-my_idea.md" {
		t.Errorf("ref = %+v", res)
	}
	want := "Intro:[my idea][0] text\n[0]: /1700000000-my_idea.md\n"
	if got := readFile(t, path); got != want {
		t.Errorf("buffer = %q, want %q", got, want)
	}
	if !pathutil.Exists(res.Note.Path) {
		t.Error("linked note was not created")
	}
}

func TestAddNoteRefLink_OtherCollection(t *testing.T) {
	svc, reg := testutil.TestService(t, "wiki", "work")
	work, err := reg.Lookup("work")
	if err != nil {
		t.Fatal(err)
	}
	path := testutil.WriteNote(t, work, "todo.md", "x\n")
	buf := openBuffer(t, path, 0, 0)

	res, err := svc.AddNoteRefLink(context.Background(), buf, notes.Request{Args: []string{"pkb-wiki:/", "other"}, UseBuffer: true})
	if err != nil {
		t.Fatalf("AddNoteRefLink: %v", err)
	}
	if want := "pkb-wiki:/1700000000-other.md"; res.Target != want {
		t.Errorf("target = %q, want %q", res.Target, want)
	}
	refs := svc.RefTargets(buf)
	if refs["0"] != res.Target {
		t.Errorf("refs = %v", refs)
	}
}

func TestAllocateID(t *testing.T) {
	svc, reg := testutil.TestService(t)
	ctx := context.Background()

	for _, want := range []string{"0000", "0001"} {
		got, err := svc.AllocateID(ctx, "", "")
		if err != nil {
			t.Fatalf("AllocateID: %v", err)
		}
		if got != want {
			t.Errorf("got = %q, want %q", got, want)
		}
	}
	if got := readFile(t, filepath.Join(reg.Active().NotesPath, ".next_id")); got != "2" {
		t.Errorf("counter = %q, want %q", got, "2")
	}
	if _, err := svc.AllocateID(ctx, "nope", ""); !errors.Is(err, apperr.ErrUnknownCollection) {
		t.Errorf("err = %v, want ErrUnknownCollection", err)
	}
}

func TestCollections(t *testing.T) {
	svc, _ := testutil.TestService(t, "wiki", "work")

	cols := svc.Collections()
	if len(cols) != 2 || cols[0].ID != "pkb-wiki" || !cols[0].Active || cols[1].Active {
		t.Fatalf("collections = %+v", cols)
	}
	if err := svc.SetActive("work"); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	cols = svc.Collections()
	if cols[0].Active || !cols[1].Active {
		t.Errorf("collections after SetActive = %+v", cols)
	}
	if err := svc.SetActive("nope"); !errors.Is(err, apperr.ErrUnknownCollection) {
		t.Errorf("err = %v, want ErrUnknownCollection", err)
	}
}

func TestSyncAndBacklinks(t *testing.T) {
	svc, reg := testutil.TestService(t, "wiki", "work")
	wiki := reg.Active()
	work, _ := reg.Lookup("work")
	testutil.WriteNote(t, wiki, "a.md", "# A\n\nSee [b](b.md).\n")
	testutil.WriteNote(t, wiki, "b.md", "# B\n")
	testutil.WriteNote(t, work, "c.md", "[b][1]\n\n[1]: pkb-wiki:/b.md\n")

	if err := svc.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	bl, err := svc.Backlinks(context.Background(), "pkb-wiki:/b.md", "")
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 || bl[0] != "pkb-wiki:/a.md" || bl[1] != "pkb-work:/c.md" {
		t.Errorf("backlinks = %q", bl)
	}
}

func TestOpenBuffer(t *testing.T) {
	svc, reg := testutil.TestService(t)
	inside := testutil.WriteNote(t, reg.Active(), "a.md", "x\n")

	buf, err := svc.OpenBuffer(inside, 0, 1)
	if err != nil {
		t.Fatalf("OpenBuffer: %v", err)
	}
	if buf.Path() != inside {
		t.Errorf("path = %q, want %q", buf.Path(), inside)
	}

	outside := filepath.Join(t.TempDir(), "b.md")
	if _, err := svc.OpenBuffer(outside, 0, 0); !errors.Is(err, apperr.ErrOutsideCollection) {
		t.Errorf("outside: err = %v, want ErrOutsideCollection", err)
	}
}

func TestIndexDisabled(t *testing.T) {
	reg := testutil.TestRegistry(t)
	chain, err := resolver.New(reg, resolver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	alloc := autoid.New(autoid.Decimal, 4)
	svc := noteservice.NewService(reg, chain, notes.NewCreator(reg, alloc), alloc)

	if _, err := svc.Search(context.Background(), "x", 1); !errors.Is(err, apperr.ErrIndexDisabled) {
		t.Errorf("Search err = %v, want ErrIndexDisabled", err)
	}
	if err := svc.Sync(); !errors.Is(err, apperr.ErrIndexDisabled) {
		t.Errorf("Sync err = %v, want ErrIndexDisabled", err)
	}
	if _, err := svc.CreateNote(context.Background(), notes.Request{Args: []string{"plain"}}); err != nil {
		t.Errorf("CreateNote without index: %v", err)
	}
}
