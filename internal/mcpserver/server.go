// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes progirl tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/c-c-k/progirl/internal/buffer"
	"github.com/c-c-k/progirl/internal/noteservice"
	"github.com/c-c-k/progirl/internal/notes"
)

// Server wraps the MCP server with progirl tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all progirl tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"progirl",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_uri",
		mcp.WithDescription("Resolve a note URI (pkb-<collection>:/path, file:path or a plain path) to a filesystem path."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("URI to resolve")),
		mcp.WithString("context_dir", mcp.Description("Directory relative paths are resolved against")),
	), s.resolveURI)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a note by URI."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Note URI, e.g. pkb-wiki:/projects/plan.md")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note from a title, or return the existing note with the same filename. "+
			"The note is rendered from the collection content template."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title words")),
		mcp.WithString("location", mcp.Description("Optional collection and directory, e.g. pkb-work:/projects")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("link_at",
		mcp.WithDescription("Return the Markdown link at a zero-based line and byte column of a note file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the note file")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line")),
		mcp.WithNumber("col", mcp.Required(), mcp.Description("Zero-based byte column")),
	), s.linkAt)

	s.mcp.AddTool(mcp.NewTool("add_ref_link",
		mcp.WithDescription("Create a note and insert a numbered reference link to it into a note file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute path of the note file to edit")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("Zero-based line of the insertion point")),
		mcp.WithNumber("col", mcp.Required(), mcp.Description("Zero-based byte column of the insertion point")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the linked note")),
	), s.addRefLink)

	s.mcp.AddTool(mcp.NewTool("allocate_id",
		mcp.WithDescription("Consume and return the next auto id of a collection."),
		mcp.WithString("collection", mcp.Description("Collection id or name (default: active)")),
	), s.allocateID)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List the configured note collections."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through notes content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the specified note."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("URI of the note to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddResource(
		mcp.NewResource("progirl://uri-format", "Note URI Format",
			mcp.WithResourceDescription("How note URIs and links are written."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readURIFormatResource,
	)

	return s
}

// Listen serves MCP requests read from in until ctx is cancelled or in
// is closed.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resolveURI(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.Resolve(ctx, raw, req.GetString("context_dir", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(path), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path, err := s.svc.Resolve(ctx, raw, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.svc.Store().Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", raw)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func titleArgs(req mcp.CallToolRequest) ([]string, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return nil, err
	}
	args := strings.Fields(title)
	if len(args) == 0 {
		return nil, fmt.Errorf("title is empty")
	}
	if loc := req.GetString("location", ""); loc != "" {
		args = append([]string{loc}, args...)
	}
	return args, nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := titleArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.svc.CreateNote(ctx, notes.Request{Args: args})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(info)
}

func (s *Server) openAt(req mcp.CallToolRequest) (*buffer.File, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return nil, err
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return nil, err
	}
	col, err := req.RequireInt("col")
	if err != nil {
		return nil, err
	}
	return s.svc.OpenBuffer(path, line, col)
}

func (s *Server) linkAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buf, err := s.openAt(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line, col := buf.Cursor()
	l, err := s.svc.LinkAt(buf, line, col)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(l)
}

func (s *Server) addRefLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	buf, err := s.openAt(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args, err := titleArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.AddNoteRefLink(ctx, buf, notes.Request{Args: args, UseBuffer: true})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) allocateID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.svc.AllocateID(ctx, req.GetString("collection", ""), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(id), nil
}

func (s *Server) listCollections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Collections())
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, raw, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) readURIFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "progirl://uri-format",
			MIMEType: "text/markdown",
			Text:     URIFormat,
		},
	}, nil
}
