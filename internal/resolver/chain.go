package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/c-c-k/progirl/internal/apperr"
	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/uri"
)

// Mode selects the fallback strategy of a chain.
type Mode string

// Resolution modes.
const (
	// ModeContext resolves local and empty protocols against the context
	// directory.
	ModeContext Mode = "context"
	// ModeCollection resolves strictly against a named or current collection.
	ModeCollection Mode = "collection"
)

// Options configures New.
type Options struct {
	Mode Mode
	// Strategies are strategy names tried in order before the fallback.
	Strategies     []string
	LocalProtocols []string
	Logger         *slog.Logger
}

// Chain tries its strategies in order, then its fallback.
type Chain struct {
	strategies []Strategy
	fallback   Strategy
	logger     *slog.Logger
}

// builtins maps configuration names to strategy constructors.
var builtins = map[string]func(reg *collection.Registry, opts Options) Strategy{
	string(ModeContext): func(_ *collection.Registry, opts Options) Strategy {
		return Context{Protocols: opts.LocalProtocols}
	},
	string(ModeCollection): func(reg *collection.Registry, _ Options) Strategy {
		return Collection{Registry: reg}
	},
}

// New builds a chain from configuration. Strategy names are resolved here,
// once; unknown names are an error.
func New(reg *collection.Registry, opts Options, extra ...Strategy) (*Chain, error) {
	if opts.Mode == "" {
		opts.Mode = ModeContext
	}
	fallback, ok := builtins[string(opts.Mode)]
	if !ok {
		return nil, fmt.Errorf("resolver: unknown mode %q", opts.Mode)
	}

	c := &Chain{
		fallback: fallback(reg, opts),
		logger:   opts.Logger,
	}
	for _, name := range opts.Strategies {
		mk, ok := builtins[name]
		if !ok {
			return nil, fmt.Errorf("resolver: unknown strategy %q", name)
		}
		c.strategies = append(c.strategies, mk(reg, opts))
	}
	c.strategies = append(c.strategies, extra...)
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// NewChain builds a chain from strategy values.
func NewChain(fallback Strategy, strategies ...Strategy) *Chain {
	return &Chain{
		strategies: strategies,
		fallback:   fallback,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Resolve returns the first path produced by a strategy. It fails with
// apperr.ErrNotFound when none handles u; other errors stop the chain.
func (c *Chain) Resolve(ctx context.Context, u uri.URI, contextDir string) (string, error) {
	for _, s := range slices.Concat(c.strategies, []Strategy{c.fallback}) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p, err := s.Resolve(ctx, u, contextDir)
		if err == nil {
			c.logger.Debug("uri resolved",
				slog.String("uri", u.String()),
				slog.String("path", p))
			return p, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("resolver: %q: %w", u.String(), apperr.ErrNotFound)
}

// Ex resolves the path an external opener should receive for u. A URI
// such as "print:pkb-notes:/x" wraps a nested URI; the nested one is
// resolved and the outer body replaced with the path. When nothing
// resolves, u is returned unchanged, as are URLs with an authority
// ("https://host/...").
func (c *Chain) Ex(ctx context.Context, u uri.URI, contextDir string) (uri.URI, error) {
	var attempts []uri.URI
	switch {
	case u.Protocol != "" && strings.HasPrefix(u.Body, "//"):
		return u, nil
	case u.Protocol == "":
		attempts = []uri.URI{u}
	default:
		nested := uri.Parse(u.Body)
		if nested.Protocol == "" {
			attempts = []uri.URI{u, nested}
		} else {
			attempts = []uri.URI{nested}
		}
	}

	for _, a := range attempts {
		p, err := c.Resolve(ctx, a, contextDir)
		if err == nil {
			return u.WithBody(p), nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return uri.URI{}, err
		}
	}
	return u, nil
}
