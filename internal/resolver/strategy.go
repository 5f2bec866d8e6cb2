// Package resolver turns note URIs into filesystem paths through an
// ordered chain of strategies.
package resolver

import (
	"context"
	"fmt"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/uri"
)

// DefaultLocalProtocols are the protocols treated as plain paths.
var DefaultLocalProtocols = []string{"file", "local", ""}

// Strategy resolves a URI to a path. A strategy that does not handle the
// URI returns an error wrapping apperr.ErrNotFound.
type Strategy interface {
	Resolve(ctx context.Context, u uri.URI, contextDir string) (string, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, u uri.URI, contextDir string) (string, error)

// Resolve calls f.
func (f StrategyFunc) Resolve(ctx context.Context, u uri.URI, contextDir string) (string, error) {
	return f(ctx, u, contextDir)
}

// Context resolves local protocols relative to the context directory.
type Context struct {
	Protocols []string
}

// Resolve implements Strategy.
func (s Context) Resolve(_ context.Context, u uri.URI, contextDir string) (string, error) {
	protocols := s.Protocols
	if protocols == nil {
		protocols = DefaultLocalProtocols
	}
	if !u.IsLocal(protocols) {
		return "", fmt.Errorf("resolver: protocol %q is not local: %w", u.Protocol, apperr.ErrNotFound)
	}
	return pathutil.Validate(pathutil.Resolve(u.Body, pathutil.WithContextDir(contextDir)))
}

// Collection resolves URIs whose protocol names a collection. The empty
// protocol selects the collection containing the context directory, or
// the active collection. Rooted bodies resolve under the notes path;
// relative ones against the context directory, or the notes path when no
// context is given.
type Collection struct {
	Registry *collection.Registry
}

// Resolve implements Strategy.
func (s Collection) Resolve(_ context.Context, u uri.URI, contextDir string) (string, error) {
	var c *collection.Collection
	if u.Protocol == "" {
		c = s.Registry.Current(contextDir)
	} else {
		found, err := s.Registry.Get(u.Protocol)
		if err != nil {
			return "", fmt.Errorf("resolver: %w: %w", apperr.ErrNotFound, err)
		}
		c = found
	}

	if contextDir == "" {
		contextDir = c.NotesPath
	}
	p := pathutil.Resolve(u.Body,
		pathutil.WithContextRoot(c.NotesPath),
		pathutil.WithContextDir(contextDir),
	)
	return pathutil.Validate(p)
}
