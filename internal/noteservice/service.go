// Package noteservice ties collections, resolution, links, note creation
// and the index together for the CLI, HTTP and MCP front ends.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/autoid"
	"github.com/c-c-k/progirl/internal/buffer"
	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/index"
	"github.com/c-c-k/progirl/internal/links"
	"github.com/c-c-k/progirl/internal/notes"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/resolver"
	"github.com/c-c-k/progirl/internal/storage"
	"github.com/c-c-k/progirl/internal/uri"
)

// CollectionInfo is the public view of a collection.
type CollectionInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	NotesPath string `json:"notes_path"`
	Extension string `json:"extension"`
	Active    bool   `json:"active"`
}

// RefLink is the result of adding a reference link to a buffer.
type RefLink struct {
	Note   *notes.Info `json:"note"`
	Index  string      `json:"index"`
	Target string      `json:"target"`
}

// Service coordinates the session components.
type Service struct {
	registry  *collection.Registry
	chain     *resolver.Chain
	creator   *notes.Creator
	allocator *autoid.Allocator
	store     storage.Provider
	db        index.NoteIndex
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIndex enables search, backlinks and indexing of created notes.
func WithIndex(db index.NoteIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a note service over the collections of reg.
func NewService(reg *collection.Registry, chain *resolver.Chain, creator *notes.Creator, alloc *autoid.Allocator, opts ...Option) *Service {
	s := &Service{
		registry:  reg,
		chain:     chain,
		creator:   creator,
		allocator: alloc,
		store:     storage.NewFS(reg),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the note file provider of the session.
func (s *Service) Store() storage.Provider {
	return s.store
}

// Resolve resolves a URI string to a path. An empty contextDir uses the
// working directory.
func (s *Service) Resolve(ctx context.Context, raw, contextDir string) (string, error) {
	if contextDir == "" {
		contextDir = pathutil.ContextDir("", true)
	}
	return s.chain.Resolve(ctx, uri.Parse(raw), contextDir)
}

// OpenBuffer loads the note file at path for the HTTP and MCP front ends.
// Paths outside every collection are refused with
// apperr.ErrOutsideCollection.
func (s *Service) OpenBuffer(path string, line, col int) (*buffer.File, error) {
	p := pathutil.Resolve(path)
	if _, ok := s.registry.ByPath(p); !ok {
		return nil, fmt.Errorf("noteservice: open %s: %w", path, apperr.ErrOutsideCollection)
	}
	return buffer.OpenFile(p, line, col)
}

// LinkAt returns the link at a position of buf with references resolved.
func (s *Service) LinkAt(buf buffer.Buffer, line, col int) (links.Link, error) {
	return links.LinkAt(buf, line, col)
}

// Goto resolves the link under the cursor of buf to a file, creating the
// file and its parents when missing, and returns its path.
func (s *Service) Goto(ctx context.Context, buf buffer.Buffer) (string, error) {
	l, err := links.LinkAtCursor(buf)
	if err != nil {
		return "", err
	}
	path, err := s.chain.Resolve(ctx, uri.Parse(l.Target), pathutil.ContextDir(buf.Path(), true))
	if err != nil {
		return "", err
	}
	s.logger.Debug("goto", slog.String("target", l.Target), slog.String("path", path))
	return pathutil.TouchWithParents(path)
}

// Ex rewrites the link under the cursor of buf for an external opener.
func (s *Service) Ex(ctx context.Context, buf buffer.Buffer) (string, error) {
	l, err := links.LinkAtCursor(buf)
	if err != nil {
		return "", err
	}
	u, err := s.chain.Ex(ctx, uri.Parse(l.Target), pathutil.ContextDir(buf.Path(), true))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// RefTargets rebuilds and returns the reference map of buf.
func (s *Service) RefTargets(buf buffer.Buffer) links.RefTargets {
	return links.BuildRefTargets(buf)
}

// CreateNote creates the note described by req, or finds the existing one,
// and indexes it when an index is configured.
func (s *Service) CreateNote(ctx context.Context, req notes.Request) (*notes.Info, error) {
	info, err := s.creator.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if info.Created && s.db != nil {
		if err := s.IndexFile(info.Path); err != nil {
			s.logger.Warn("index created note failed",
				slog.String("uri", info.URI.String()),
				slog.String("error", err.Error()))
		}
	}
	return info, nil
}

// AddNoteRefLink creates or finds the note described by req and links it
// from buf as a numbered reference. Notes in the buffer's collection are
// linked by id, others by full URI.
func (s *Service) AddNoteRefLink(ctx context.Context, buf buffer.Buffer, req notes.Request) (*RefLink, error) {
	if req.BufferPath == "" {
		req.BufferPath = buf.Path()
	}
	info, err := s.CreateNote(ctx, req)
	if err != nil {
		return nil, err
	}

	target := info.URI.String()
	if p := buf.Path(); p != "" {
		if c, ok := s.registry.ByPath(pathutil.Resolve(p)); ok && c.ID == info.CollectionID {
			target = info.ID()
		}
	}
	idx, err := links.AddRefLink(buf, info.Title, target)
	if err != nil {
		return nil, err
	}
	return &RefLink{Note: info, Index: idx, Target: target}, nil
}

// AllocateID consumes the next auto id of the counter used for notes
// created in dir. idOrName selects the collection; empty picks the
// collection containing dir, or the active one. An empty dir uses the
// collection notes root.
func (s *Service) AllocateID(ctx context.Context, idOrName, dir string) (string, error) {
	var col *collection.Collection
	if dir != "" {
		dir = pathutil.Resolve(dir)
	}
	if idOrName != "" {
		c, err := s.registry.Lookup(idOrName)
		if err != nil {
			return "", err
		}
		col = c
	} else {
		col = s.registry.Current(dir)
	}
	if dir == "" {
		dir = col.NotesPath
	}
	return s.allocator.Allocate(ctx, notes.CounterPath(col, dir))
}

// Collections lists the configured collections in definition order.
func (s *Service) Collections() []CollectionInfo {
	active := s.registry.ActiveID()
	var out []CollectionInfo
	for _, c := range s.registry.All() {
		out = append(out, CollectionInfo{
			ID:        c.ID,
			Name:      c.Name,
			Path:      c.Path,
			NotesPath: c.NotesPath,
			Extension: c.Extension,
			Active:    c.ID == active,
		})
	}
	return out
}

// SetActive makes a collection active by id or name.
func (s *Service) SetActive(idOrName string) error {
	return s.registry.SetActive(idOrName)
}

// Search runs a full-text query over the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("noteservice: search: %w", apperr.ErrIndexDisabled)
	}
	return s.db.Search(query, limit)
}

// Backlinks returns the URIs of notes linking to the note raw resolves to.
func (s *Service) Backlinks(ctx context.Context, raw, contextDir string) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("noteservice: backlinks: %w", apperr.ErrIndexDisabled)
	}
	path, err := s.Resolve(ctx, raw, contextDir)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(s.registry.URIFor(path).String())
	if err != nil {
		return nil, err
	}
	if bl == nil {
		bl = []string{}
	}
	return bl, nil
}

// Linker maps link targets to the canonical URIs stored in the index.
// Targets that do not resolve to a local file are kept as written.
func (s *Service) Linker() index.Linker {
	return func(target, notePath string) string {
		path, err := s.chain.Resolve(context.Background(), uri.Parse(target), filepath.Dir(notePath))
		if err != nil {
			return target
		}
		return s.registry.URIFor(path).String()
	}
}

// IndexFile indexes the note at path.
func (s *Service) IndexFile(path string) error {
	if s.db == nil {
		return fmt.Errorf("noteservice: index %s: %w", path, apperr.ErrIndexDisabled)
	}
	u, ok := s.store.Locate(path)
	if !ok {
		return fmt.Errorf("noteservice: %s is not a note: %w", path, apperr.ErrNotFound)
	}
	data, err := s.store.Read(path)
	if err != nil {
		return err
	}
	return index.IndexFile(s.db, u, path, data, s.Linker())
}

// Sync brings the index up to date with every collection.
func (s *Service) Sync() error {
	if s.db == nil {
		return fmt.Errorf("noteservice: sync: %w", apperr.ErrIndexDisabled)
	}
	return index.Sync(s.db, s.store, s.Linker(), s.logger)
}

// Watch keeps the index current until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, cb index.EventCallback) error {
	if s.db == nil {
		return fmt.Errorf("noteservice: watch: %w", apperr.ErrIndexDisabled)
	}
	return index.Watch(ctx, s.db, s.store, s.Linker(), s.logger, cb)
}
