package api

import (
	"net/http"
	"strconv"

	"github.com/c-c-k/progirl/internal/buffer"
	"github.com/c-c-k/progirl/internal/index"
	"github.com/c-c-k/progirl/internal/noteservice"
	"github.com/c-c-k/progirl/internal/notes"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// openBuffer loads the note file addressed by p.
func (h *Handler) openBuffer(w http.ResponseWriter, p Position) (*buffer.File, bool) {
	if p.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return nil, false
	}
	buf, err := h.svc.OpenBuffer(p.Path, p.Line, p.Col)
	if err != nil {
		writeError(w, "open buffer", err)
		return nil, false
	}
	return buf, true
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a note URI to a path
//	@Tags			resolve
//	@Produce		json
//	@Param			uri		query		string	true	"Note URI"
//	@Param			context	query		string	false	"Context directory"
//	@Success		200		{object}	ResolveResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("uri")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'uri' is required"))
		return
	}
	path, err := h.svc.Resolve(r.Context(), raw, r.URL.Query().Get("context"))
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveResponse{URI: raw, Path: path})
}

// Goto handles POST /api/goto.
//
//	@Summary		Resolve the link at a position, creating the target file
//	@Tags			resolve
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Position	true	"Link position"
//	@Success		200		{object}	PathResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goto [post]
func (h *Handler) Goto(w http.ResponseWriter, r *http.Request) {
	var req Position
	if !decode(w, r, &req) {
		return
	}
	buf, ok := h.openBuffer(w, req)
	if !ok {
		return
	}
	path, err := h.svc.Goto(r.Context(), buf)
	if err != nil {
		writeError(w, "goto", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: path})
}

// Ex handles POST /api/ex.
//
//	@Summary		Rewrite the link at a position for an external opener
//	@Tags			resolve
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Position	true	"Link position"
//	@Success		200		{object}	TargetResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ex [post]
func (h *Handler) Ex(w http.ResponseWriter, r *http.Request) {
	var req Position
	if !decode(w, r, &req) {
		return
	}
	buf, ok := h.openBuffer(w, req)
	if !ok {
		return
	}
	target, err := h.svc.Ex(r.Context(), buf)
	if err != nil {
		writeError(w, "ex", err)
		return
	}
	writeJSON(w, http.StatusOK, TargetResponse{Target: target})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note from title words
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteInfo	"Created"
//	@Success		200		{object}	NoteInfo	"Already existed"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Args) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("args are required"))
		return
	}
	info, err := h.svc.CreateNote(r.Context(), req.toRequest())
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	status := http.StatusOK
	if info.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, info)
}

// AllocateID handles POST /api/ids.
//
//	@Summary		Allocate the next auto id
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AllocateIDRequest	false	"Counter selection"
//	@Success		200		{object}	IDResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/ids [post]
func (h *Handler) AllocateID(w http.ResponseWriter, r *http.Request) {
	var req AllocateIDRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	id, err := h.svc.AllocateID(r.Context(), req.Collection, req.Dir)
	if err != nil {
		writeError(w, "allocate id", err)
		return
	}
	writeJSON(w, http.StatusOK, IDResponse{ID: id})
}

// LinkAt handles POST /api/links/at.
//
//	@Summary		Find the link at a position
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		Position	true	"Position"
//	@Success		200		{object}	Link
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/at [post]
func (h *Handler) LinkAt(w http.ResponseWriter, r *http.Request) {
	var req Position
	if !decode(w, r, &req) {
		return
	}
	buf, ok := h.openBuffer(w, req)
	if !ok {
		return
	}
	l, err := h.svc.LinkAt(buf, req.Line, req.Col)
	if err != nil {
		writeError(w, "link at", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// AddRefLink handles POST /api/links/ref.
//
//	@Summary		Create a note and link it as a reference
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddRefLinkRequest	true	"Position and note"
//	@Success		200		{object}	RefLink
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/links/ref [post]
func (h *Handler) AddRefLink(w http.ResponseWriter, r *http.Request) {
	var req AddRefLinkRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Args) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("args are required"))
		return
	}
	buf, ok := h.openBuffer(w, req.Position)
	if !ok {
		return
	}
	res, err := h.svc.AddNoteRefLink(r.Context(), buf, notes.Request{Args: req.Args, UseBuffer: req.UseBuffer})
	if err != nil {
		writeError(w, "add ref link", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RefTargets handles GET /api/links/refs.
//
//	@Summary		Reference map of a note
//	@Tags			links
//	@Produce		json
//	@Param			path	query		string	true	"Note path"
//	@Success		200		{object}	RefTargetsResponse
//	@Security		BearerAuth
//	@Router			/links/refs [get]
func (h *Handler) RefTargets(w http.ResponseWriter, r *http.Request) {
	buf, ok := h.openBuffer(w, Position{Path: r.URL.Query().Get("path")})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RefTargetsResponse{Refs: h.svc.RefTargets(buf)})
}

// Collections handles GET /api/collections.
//
//	@Summary		List collections
//	@Tags			collections
//	@Produce		json
//	@Success		200	{object}	CollectionsResponse
//	@Security		BearerAuth
//	@Router			/collections [get]
func (h *Handler) Collections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CollectionsResponse{Collections: h.svc.Collections()})
}

// SetActive handles PUT /api/collections/active.
//
//	@Summary		Set the active collection
//	@Tags			collections
//	@Accept			json
//	@Param			body	body	SetActiveRequest	true	"Collection id or name"
//	@Success		204		"Active collection changed"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/collections/active [put]
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SetActive(req.Collection); err != nil {
		writeError(w, "set active", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across collections
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Backlinks handles GET /api/backlinks.
//
//	@Summary		Notes linking to a note
//	@Tags			search
//	@Produce		json
//	@Param			uri		query		string	true	"Note URI"
//	@Param			context	query		string	false	"Context directory"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("uri")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'uri' is required"))
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), raw, r.URL.Query().Get("context"))
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{URI: raw, Backlinks: bl})
}

// Sync handles POST /api/index/sync.
//
//	@Summary		Bring the index up to date with every collection
//	@Tags			search
//	@Success		204	"Index synced"
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/index/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, _ *http.Request) {
	if err := h.svc.Sync(); err != nil {
		writeError(w, "sync", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
