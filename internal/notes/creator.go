package notes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/autoid"
	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/storage"
	"github.com/c-c-k/progirl/internal/tmpl"
	"github.com/c-c-k/progirl/internal/uri"
)

// Creator builds and creates notes.
type Creator struct {
	registry  *collection.Registry
	allocator *autoid.Allocator
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Creator.
type Option func(*Creator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Creator) { c.logger = l }
}

// WithClock sets the time source used when a request has no time.
func WithClock(now func() time.Time) Option {
	return func(c *Creator) { c.now = now }
}

// NewCreator returns a Creator for the collections of reg.
func NewCreator(reg *collection.Registry, alloc *autoid.Allocator, opts ...Option) *Creator {
	c := &Creator{
		registry:  reg,
		allocator: alloc,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// draft carries state between the steps of Plan.
type draft struct {
	req  Request
	args []string
	dir  string
	ext  string
	info *Info
}

// Plan derives the note described by req without creating it. A filename
// template using ${AUTO_ID} consumes an id.
func (c *Creator) Plan(ctx context.Context, req Request) (*Info, error) {
	if req.Now.IsZero() {
		req.Now = c.now()
	}
	d := &draft{req: req, args: slices.Clone(req.Args), info: &Info{}}

	if err := c.parseLocation(d); err != nil {
		return nil, err
	}
	c.resolveCollection(d)
	extractExtension(d)
	c.resolveDir(d)
	resolveExtension(d)
	d.info.Title = strings.Join(d.args, " ")
	if err := c.buildFilename(ctx, d); err != nil {
		return nil, err
	}
	d.info.Path = pathutil.Resolve(d.info.Filename, pathutil.WithContextDir(d.info.Dir))
	d.info.URI = d.info.collection.URIFor(d.info.Path)
	return d.info, nil
}

// parseLocation consumes a leading "collection:dir" or "dir/" argument.
func (c *Creator) parseLocation(d *draft) error {
	if len(d.args) == 0 {
		return nil
	}
	u := uri.Parse(d.args[0])
	dir := u.Body
	if u.Protocol != "" {
		col, err := c.registry.Lookup(u.Protocol)
		if err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		d.info.collection = col
	}
	if u.Protocol == "" && !strings.Contains(dir, "/") {
		dir = ""
	}
	if dir != "" || u.Protocol != "" {
		d.args = d.args[1:]
	}
	if u.Protocol != "" && dir == "" {
		dir = "/"
	}
	d.dir = dir
	return nil
}

// bufferPath returns the canonical buffer path when the buffer is used.
func (d *draft) bufferPath() string {
	if !d.req.UseBuffer || d.req.BufferPath == "" {
		return ""
	}
	return pathutil.Resolve(d.req.BufferPath)
}

func (c *Creator) resolveCollection(d *draft) {
	if d.info.collection == nil {
		d.info.collection = c.registry.Current(d.bufferPath())
	}
	d.info.CollectionID = d.info.collection.ID
}

// extractExtension pops a trailing ".ext" argument.
func extractExtension(d *draft) {
	if n := len(d.args); n > 0 && strings.HasPrefix(d.args[n-1], ".") {
		d.ext = d.args[n-1]
		d.args = d.args[:n-1]
	}
}

// resolveDir resolves the directory argument under the notes root. Relative
// directories start at the buffer directory when the buffer belongs to the
// same collection.
func (c *Creator) resolveDir(d *draft) {
	col := d.info.collection
	contextDir := col.NotesPath
	if bp := d.bufferPath(); bp != "" {
		bufDir := filepath.Dir(bp)
		if bc, ok := c.registry.ByPath(bufDir); ok && bc.ID == col.ID {
			contextDir = bufDir
		}
	}
	d.info.Dir = pathutil.Resolve(d.dir,
		pathutil.WithContextDir(contextDir),
		pathutil.WithContextRoot(col.NotesPath),
	)
}

func resolveExtension(d *draft) {
	ext := d.ext
	if ext == "" {
		ext = d.info.collection.Extension
	}
	if ext = CleanTitle(strings.TrimLeft(ext, ".")); ext != "" {
		ext = "." + ext
	}
	d.info.Extension = ext
}

// buildFilename renders the filename template for the target directory.
func (c *Creator) buildFilename(ctx context.Context, d *draft) error {
	info := d.info
	col := info.collection
	template := tmpl.ExpandTime(col.FilenameTemplateFor(info.Dir), d.req.Now)

	params := map[string]string{"TITLE_CLEAN": CleanTitle(info.Title)}
	if tmpl.References(template, "AUTO_ID") {
		id, err := c.allocator.Allocate(ctx, CounterPath(col, info.Dir))
		if err != nil {
			return fmt.Errorf("notes: auto id: %w", err)
		}
		params["AUTO_ID"] = id
	}
	withExt := tmpl.References(template, "EXTENSION")
	if withExt {
		params["EXTENSION"] = info.Extension
	}

	name, err := tmpl.Substitute(template, params)
	if err != nil {
		return fmt.Errorf("notes: filename template of %s: %w", col.ID, err)
	}
	if withExt {
		info.Filename = name
		info.BaseFilename = strings.TrimSuffix(name, info.Extension)
	} else {
		info.Filename = name + info.Extension
		info.BaseFilename = name
	}
	return nil
}

// CounterPath returns the auto id counter used for notes created in dir.
func CounterPath(col *collection.Collection, dir string) string {
	if col.AutoIDScope == collection.ScopeCollection {
		return autoid.CollectionCounter(col.Path)
	}
	return autoid.DirectoryCounter(dir)
}

// Create plans the note and creates it with its initial content. An
// existing note is returned untouched.
func (c *Creator) Create(ctx context.Context, req Request) (*Info, error) {
	info, err := c.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	if pathutil.Exists(info.Path) {
		return info, nil
	}
	if _, err := pathutil.TouchWithParents(info.Path); err != nil {
		return nil, fmt.Errorf("notes: can not create %s: %w", info.Path, err)
	}

	content, err := c.render(info, req.Params)
	if err != nil {
		return nil, err
	}
	if err := storage.WriteFile(info.Path, []byte(content)); err != nil {
		return nil, fmt.Errorf("notes: write %s: %w: %w", info.Path, apperr.ErrIO, err)
	}
	info.Created = true

	c.logger.Info("note created",
		slog.String("uri", info.URI.String()),
		slog.String("path", info.Path))
	return info, nil
}

// render fills the collection's default content template. A missing
// template yields empty content.
func (c *Creator) render(info *Info, extra map[string]string) (string, error) {
	data, err := os.ReadFile(info.collection.DefaultTemplate)
	if errors.Is(err, fs.ErrNotExist) {
		data = nil
	} else if err != nil {
		return "", fmt.Errorf("notes: read template: %w: %w", apperr.ErrIO, err)
	}
	return tmpl.SafeSubstitute(string(data), contentParams(info, extra)), nil
}
