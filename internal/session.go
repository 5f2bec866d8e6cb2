package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c-c-k/progirl/internal/collection"
	"github.com/c-c-k/progirl/internal/index"
	"github.com/c-c-k/progirl/internal/noteservice"
	"github.com/c-c-k/progirl/internal/notes"
	"github.com/c-c-k/progirl/internal/pathutil"
	"github.com/c-c-k/progirl/internal/resolver"
)

// Session holds the components built from one configuration.
type Session struct {
	Config   *Config
	Logger   *slog.Logger
	Registry *collection.Registry
	Service  *noteservice.Service

	db *index.DB
}

// Open builds a session from the given options. The index is opened when
// the configuration names a database.
func Open(opts ...Option) (*Session, error) {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := app.logger()

	reg, err := collection.Load(cfg.PKB.Collections, cfg.PKB.LoadOptions())
	if err != nil {
		return nil, fmt.Errorf("load collections: %w", err)
	}
	chain, err := resolver.New(reg, cfg.Resolver.Options(logger))
	if err != nil {
		return nil, fmt.Errorf("init resolver: %w", err)
	}
	alloc := cfg.AutoID.Allocator(logger)
	creator := notes.NewCreator(reg, alloc, notes.WithLogger(logger))

	s := &Session{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
	}
	svcOpts := []noteservice.Option{noteservice.WithLogger(logger)}
	if cfg.SQLite.Enabled() {
		path := pathutil.Expand(cfg.SQLite.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		db, err := index.Open(path)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		s.db = db
		svcOpts = append(svcOpts, noteservice.WithIndex(db))
	}
	s.Service = noteservice.NewService(reg, chain, creator, alloc, svcOpts...)

	logger.Debug("session opened",
		slog.Int("collections", len(reg.All())),
		slog.String("active", reg.ActiveID()),
		slog.Bool("index", s.db != nil))
	return s, nil
}

// Close releases the index database.
func (s *Session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
