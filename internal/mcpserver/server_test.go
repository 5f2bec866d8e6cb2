package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/testutil"
)

func testServer(t *testing.T, names ...string) (*Server, *collection.Registry) {
	t.Helper()
	svc, reg := testutil.TestService(t, names...)
	return New(svc, "test"), reg
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "resolve_uri":
		result, err = srv.resolveURI(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "link_at":
		result, err = srv.linkAt(ctx, req)
	case "add_ref_link":
		result, err = srv.addRefLink(ctx, req)
	case "allocate_id":
		result, err = srv.allocateID(ctx, req)
	case "list_collections":
		result, err = srv.listCollections(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "get_backlinks":
		result, err = srv.getBacklinks(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestResolveURI(t *testing.T) {
	srv, reg := testServer(t)

	r := callTool(t, srv, "resolve_uri", map[string]interface{}{"uri": "pkb-wiki:/a/b.md"})
	if r.IsError {
		t.Fatalf("resolve failed: %s", resultText(r))
	}
	if want := filepath.Join(reg.Active().NotesPath, "a", "b.md"); resultText(r) != want {
		t.Errorf("path = %q, want %q", resultText(r), want)
	}

	r = callTool(t, srv, "resolve_uri", map[string]interface{}{"uri": "pkb-nope:/x.md"})
	if !r.IsError {
		t.Error("expected error for unknown collection")
	}
}

func TestCreateAndReadNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{"title": "My Idea"})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	var info struct {
		Path    string `json:"path"`
		Created bool   `json:"created"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &info); err != nil {
		t.Fatal(err)
	}
	if !info.Created || filepath.Base(info.Path) != "1700000000-my_idea.md" {
		t.Errorf("info = %+v", info)
	}

	r = callTool(t, srv, "read_note", map[string]interface{}{"uri": "pkb-wiki:/1700000000-my_idea.md"})
	if r.IsError {
		t.Fatalf("read failed: %s", resultText(r))
	}
	if got := resultText(r); got != "" {
		t.Errorf("read result = %q, want empty note without a template", got)
	}

	r = callTool(t, srv, "create_note", map[string]interface{}{"title": "My Idea"})
	if err := json.Unmarshal([]byte(resultText(r)), &info); err != nil {
		t.Fatal(err)
	}
	if info.Created {
		t.Error("second create should find the existing note")
	}
}

func TestCreateNote_Location(t *testing.T) {
	srv, reg := testServer(t, "wiki", "work")
	work, _ := reg.Lookup("work")

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"title":    "plan",
		"location": "pkb-work:/projects",
	})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	want := filepath.Join(work.NotesPath, "projects", "1700000000-plan.md")
	if _, err := os.Stat(want); err != nil {
		t.Errorf("note not created at %s: %v", want, err)
	}
}

func TestReadNoteMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_note", map[string]interface{}{"uri": "pkb-wiki:/nope.md"})
	if !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestLinkAt(t *testing.T) {
	srv, reg := testServer(t)
	path := testutil.WriteNote(t, reg.Active(), "index.md", "See [b](b.md) here\n")

	r := callTool(t, srv, "link_at", map[string]interface{}{"path": path, "line": 0, "col": 5})
	if r.IsError {
		t.Fatalf("link_at failed: %s", resultText(r))
	}
	var l struct {
		Kind   string `json:"kind"`
		Target string `json:"target"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &l); err != nil {
		t.Fatal(err)
	}
	if l.Kind != "direct" || l.Target != "b.md" {
		t.Errorf("link = %+v", l)
	}

	r = callTool(t, srv, "link_at", map[string]interface{}{"path": path, "line": 0, "col": 0})
	if !r.IsError {
		t.Error("expected error when no link is under the cursor")
	}
}

func TestLinkAt_OutsideCollections(t *testing.T) {
	srv, _ := testServer(t)
	path := filepath.Join(t.TempDir(), "outside.md")
	if err := os.WriteFile(path, []byte("See [b](b.md) here\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "link_at", map[string]interface{}{"path": path, "line": 0, "col": 5})
	if !r.IsError {
		t.Fatalf("link_at outside collections = %s, want error", resultText(r))
	}
}

func TestAddRefLink(t *testing.T) {
	srv, reg := testServer(t)
	path := testutil.WriteNote(t, reg.Active(), "index.md", "Intro: text\n")

	r := callTool(t, srv, "add_ref_link", map[string]interface{}{
		"path":  path,
		"line":  0,
		"col":   5,
		"title": "my idea",
	})
	if r.IsError {
		t.Fatalf("add_ref_link failed: %s", resultText(r))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Intro:[my idea][0] text\n[0]: /1700000000-my_idea.md\n"
	if string(data) != want {
		t.Errorf("buffer = %q, want %q", data, want)
	}
}

func TestAllocateID(t *testing.T) {
	srv, _ := testServer(t)
	for _, want := range []string{"0000", "0001"} {
		r := callTool(t, srv, "allocate_id", map[string]interface{}{})
		if got := resultText(r); got != want {
			t.Errorf("id = %q, want %q", got, want)
		}
	}
	r := callTool(t, srv, "allocate_id", map[string]interface{}{"collection": "nope"})
	if !r.IsError {
		t.Error("expected error for unknown collection")
	}
}

func TestListCollections(t *testing.T) {
	srv, _ := testServer(t, "wiki", "work")
	r := callTool(t, srv, "list_collections", map[string]interface{}{})
	var cols []struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &cols); err != nil {
		t.Fatal(err)
	}
	if len(cols) != 2 || cols[0].ID != "pkb-wiki" || !cols[0].Active || cols[1].ID != "pkb-work" {
		t.Errorf("collections = %+v", cols)
	}
}

func TestSearchAndBacklinks(t *testing.T) {
	srv, reg := testServer(t)
	testutil.WriteNote(t, reg.Active(), "a.md", "# Alpha\n\nzebra facts, see [b](b.md)\n")
	testutil.WriteNote(t, reg.Active(), "b.md", "# Beta\n")
	if err := srv.svc.Sync(); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "zebra"})
	if r.IsError {
		t.Fatalf("search failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "pkb-wiki:/a.md") {
		t.Errorf("search result = %q", resultText(r))
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"uri": "pkb-wiki:/b.md"})
	if got := resultText(r); got != "pkb-wiki:/a.md" {
		t.Errorf("backlinks = %q, want pkb-wiki:/a.md", got)
	}

	r = callTool(t, srv, "get_backlinks", map[string]interface{}{"uri": "pkb-wiki:/a.md"})
	if got := resultText(r); got != "no backlinks found" {
		t.Errorf("backlinks = %q", got)
	}
}
