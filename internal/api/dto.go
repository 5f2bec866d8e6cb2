package api

import (
	"github.com/c-c-k/progirl/internal/index"
	"github.com/c-c-k/progirl/internal/links"
	"github.com/c-c-k/progirl/internal/noteservice"
	"github.com/c-c-k/progirl/internal/notes"
)

// Position addresses a byte column of a line in a note file. Lines and
// columns are zero-based.
type Position struct {
	Path string `json:"path" example:"/home/me/pkb/default/notes/index.md" validate:"required"`
	Line int    `json:"line" example:"3"`
	Col  int    `json:"col" example:"12"`
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Args       []string          `json:"args" example:"pkb-default:/projects,My Idea" validate:"required"`
	BufferPath string            `json:"buffer_path,omitempty"`
	UseBuffer  bool              `json:"use_buffer,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

func (r CreateNoteRequest) toRequest() notes.Request {
	return notes.Request{
		Args:       r.Args,
		BufferPath: r.BufferPath,
		UseBuffer:  r.UseBuffer,
		Params:     r.Params,
	}
}

// AddRefLinkRequest is the request body for POST /links/ref.
type AddRefLinkRequest struct {
	Position
	Args      []string `json:"args" validate:"required"`
	UseBuffer bool     `json:"use_buffer,omitempty"`
}

// SetActiveRequest is the request body for PUT /collections/active.
type SetActiveRequest struct {
	Collection string `json:"collection" example:"work" validate:"required"`
}

// AllocateIDRequest is the request body for POST /ids.
type AllocateIDRequest struct {
	Collection string `json:"collection,omitempty" example:"pkb-default"`
	Dir        string `json:"dir,omitempty"`
}

// ResolveResponse is returned by GET /resolve.
type ResolveResponse struct {
	URI  string `json:"uri" example:"pkb-default:/index.md" validate:"required"`
	Path string `json:"path" example:"/home/me/pkb/default/notes/index.md" validate:"required"`
}

// PathResponse carries a single filesystem path.
type PathResponse struct {
	Path string `json:"path" validate:"required"`
}

// TargetResponse carries a rewritten URI for an external opener.
type TargetResponse struct {
	Target string `json:"target" example:"print:/home/me/pkb/default/notes/a.pdf" validate:"required"`
}

// IDResponse carries an allocated auto id.
type IDResponse struct {
	ID string `json:"id" example:"00af" validate:"required"`
}

// Link is a link found in a note (aliased from the domain layer).
type Link = links.Link

// NoteInfo describes a created or existing note (aliased from the domain layer).
type NoteInfo = notes.Info

// RefLink is the result of adding a reference link (aliased from the domain layer).
type RefLink = noteservice.RefLink

// CollectionsResponse wraps the configured collections.
type CollectionsResponse struct {
	Collections []noteservice.CollectionInfo `json:"collections" validate:"required"`
}

// RefTargetsResponse wraps the reference map of a note.
type RefTargetsResponse struct {
	Refs links.RefTargets `json:"refs" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the URIs of notes linking to a note.
type BacklinksResponse struct {
	URI       string   `json:"uri" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}
