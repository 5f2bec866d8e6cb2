// Package collection loads note collection definitions and keeps the
// registry of collections known to a session.
package collection

import (
	"fmt"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/uri"
)

// AutoIDScope selects which counter file feeds ${AUTO_ID}.
type AutoIDScope string

// Auto id scopes.
const (
	ScopeDirectory  AutoIDScope = "directory"
	ScopeCollection AutoIDScope = "collection"
)

var nameRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// DirectoryTemplate overrides the filename template for target
// directories matching Pattern.
type DirectoryTemplate struct {
	Pattern          *regexp.Regexp
	FilenameTemplate string
}

// Collection is a named, independently rooted set of notes.
// All path fields are absolute and symlink resolved.
type Collection struct {
	ID                 string
	Name               string
	Path               string
	UsePathAsRoot      bool
	NotesPath          string
	Extension          string
	FilenameTemplate   string
	TemplatesPath      string
	DefaultTemplate    string
	AutoIDScope        AutoIDScope
	DirectoryTemplates []DirectoryTemplate
}

// FilenameTemplateFor returns the filename template for notes created in dir.
func (c *Collection) FilenameTemplateFor(dir string) string {
	for _, dt := range c.DirectoryTemplates {
		if dt.Pattern.MatchString(dir) {
			return dt.FilenameTemplate
		}
	}
	return c.FilenameTemplate
}

// URIFor returns the URI of the note at path p: the collection id with the
// path below the notes root. Paths outside the notes root get a plain path
// URI.
func (c *Collection) URIFor(p string) uri.URI {
	if !pathutil.HasPathPrefix(p, c.NotesPath) {
		return uri.New("", p)
	}
	rel, err := filepath.Rel(c.NotesPath, p)
	if err != nil {
		return uri.New("", p)
	}
	return uri.New(c.ID, "/"+filepath.ToSlash(rel))
}

// DirectoryTemplateDefinition is the raw form of a DirectoryTemplate.
type DirectoryTemplateDefinition struct {
	Pattern          string `yaml:"pattern"`
	FilenameTemplate string `yaml:"filename_template"`
}

// Definition is a collection as written in the configuration file.
// Unset fields are taken from DefaultDefinition.
type Definition struct {
	ID                 string                        `yaml:"id"`
	Name               string                        `yaml:"name"`
	Path               string                        `yaml:"path"`
	UsePathAsRoot      *bool                         `yaml:"use_path_as_root"`
	NotesPath          string                        `yaml:"notes_path"`
	Extension          string                        `yaml:"extension"`
	FilenameTemplate   string                        `yaml:"filename_template"`
	TemplatesPath      string                        `yaml:"templates_path"`
	DefaultTemplate    string                        `yaml:"default_template"`
	AutoIDScope        string                        `yaml:"auto_id_scope"`
	DirectoryTemplates []DirectoryTemplateDefinition `yaml:"directory_templates"`
}

// DefaultDefinition returns the collection used when none is configured.
func DefaultDefinition() Definition {
	root := true
	return Definition{
		Name:             "default",
		Path:             "~/pkb/default",
		UsePathAsRoot:    &root,
		NotesPath:        "/notes",
		Extension:        ".md",
		FilenameTemplate: "%s-${TITLE_CLEAN}${EXTENSION}",
		TemplatesPath:    "/templates",
		DefaultTemplate:  "/templates/note.tpl",
		AutoIDScope:      string(ScopeDirectory),
		DirectoryTemplates: []DirectoryTemplateDefinition{
			{Pattern: `^.*projects/.*cards/?$`, FilenameTemplate: "${AUTO_ID}-${TITLE_CLEAN}"},
		},
	}
}

// merged returns d with unset fields filled from the default definition.
func (d Definition) merged() Definition {
	def := DefaultDefinition()
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&d.Name, def.Name)
	fill(&d.Path, def.Path)
	fill(&d.NotesPath, def.NotesPath)
	fill(&d.Extension, def.Extension)
	fill(&d.FilenameTemplate, def.FilenameTemplate)
	fill(&d.TemplatesPath, def.TemplatesPath)
	fill(&d.DefaultTemplate, def.DefaultTemplate)
	fill(&d.AutoIDScope, def.AutoIDScope)
	if d.UsePathAsRoot == nil {
		d.UsePathAsRoot = def.UsePathAsRoot
	}
	if d.DirectoryTemplates == nil {
		d.DirectoryTemplates = def.DirectoryTemplates
	}
	return d
}

// Validate validates a merged definition.
func (d Definition) Validate() error {
	if !nameRe.MatchString(d.Name) {
		return fmt.Errorf("collection: %q must match '[a-z0-9_]+': %w", d.Name, apperr.ErrInvalidName)
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.Path, validation.Required),
		validation.Field(&d.AutoIDScope, validation.In(string(ScopeDirectory), string(ScopeCollection))),
		validation.Field(&d.DirectoryTemplates, validation.Each(validation.By(validDirectoryTemplate))),
	)
}

func validDirectoryTemplate(value any) error {
	dt, ok := value.(DirectoryTemplateDefinition)
	if !ok {
		return fmt.Errorf("unexpected directory template %T", value)
	}
	if dt.FilenameTemplate == "" {
		return fmt.Errorf("filename_template is required")
	}
	if _, err := regexp.Compile(dt.Pattern); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}
	return nil
}

// build resolves a definition into a Collection. The definition must be
// merged and valid.
func (d Definition) build(prefix, workingDir string) (*Collection, error) {
	id := d.ID
	if id == "" {
		id = prefix + d.Name
	}

	path := pathutil.Resolve(d.Path, pathutil.WithContextDir(workingDir))
	var ctx []pathutil.ResolveOption
	if *d.UsePathAsRoot {
		ctx = append(ctx, pathutil.WithContextRoot(path), pathutil.WithContextDir(path))
	} else {
		ctx = append(ctx, pathutil.WithContextDir(workingDir))
	}

	c := &Collection{
		ID:               id,
		Name:             d.Name,
		Path:             path,
		UsePathAsRoot:    *d.UsePathAsRoot,
		NotesPath:        pathutil.Resolve(d.NotesPath, ctx...),
		Extension:        d.Extension,
		FilenameTemplate: d.FilenameTemplate,
		TemplatesPath:    pathutil.Resolve(d.TemplatesPath, ctx...),
		DefaultTemplate:  pathutil.Resolve(d.DefaultTemplate, ctx...),
		AutoIDScope:      AutoIDScope(d.AutoIDScope),
	}
	for _, dt := range d.DirectoryTemplates {
		re, err := regexp.Compile(dt.Pattern)
		if err != nil {
			return nil, fmt.Errorf("collection %s: directory template: %w", id, err)
		}
		c.DirectoryTemplates = append(c.DirectoryTemplates, DirectoryTemplate{Pattern: re, FilenameTemplate: dt.FilenameTemplate})
	}
	return c, nil
}
