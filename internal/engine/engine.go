// Package engine exposes the thin operation surface external
// collaborators (the REPL, the argument-mode dispatcher, the tree
// printers) call into: Open/Close, Insert/Remove/Find/Range/All, and
// a handful of diagnostics. It owns the lifetime of one Pager and one
// BTree per open database file.
package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cabewaldrop/forgedb/internal/applog"
	"github.com/cabewaldrop/forgedb/internal/storage"
)

// Engine is a single open forgedb database file.
type Engine struct {
	path  string
	pager *storage.Pager
	tree  *storage.BTree
	log   *zap.Logger
}

// Option configures an Engine at Open time.
type Option func(*engineConfig)

type engineConfig struct {
	maxCacheSize int
	logger       *zap.Logger
}

// WithMaxCacheSize overrides the pager's default buffer pool size.
func WithMaxCacheSize(n int) Option {
	return func(c *engineConfig) { c.maxCacheSize = n }
}

// WithLogger attaches a *zap.Logger used by both the pager and the
// B+Tree for diagnostic tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// Open opens (or creates) the database file at path.
func Open(path string, opts ...Option) (*Engine, error) {
	cfg := &engineConfig{maxCacheSize: storage.BufferPoolSize, logger: applog.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}

	pager, err := storage.NewPager(path,
		storage.WithMaxCacheSize(cfg.maxCacheSize),
		storage.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("engine: open %s: %w", path, err)
	}

	tree, err := storage.NewBTree(pager, storage.WithTreeLogger(cfg.logger))
	if err != nil {
		pager.Close()
		return nil, fmt.Errorf("engine: initialise tree for %s: %w", path, err)
	}

	return &Engine{path: path, pager: pager, tree: tree, log: cfg.logger}, nil
}

// Close persists the header and flushes every cached page.
func (e *Engine) Close() error {
	defer e.log.Sync() //nolint:errcheck
	return e.pager.Close()
}

// Insert adds row under row.ID, returning storage.ErrDuplicateKey if
// the id is already present.
func (e *Engine) Insert(row storage.Row) error {
	return e.tree.Insert(row)
}

// Remove deletes the row with the given id, returning
// storage.ErrNotFound if absent.
func (e *Engine) Remove(id uint32) error {
	if err := e.tree.Remove(id); err != nil {
		return err
	}
	return nil
}

// Find returns the row stored under id, and whether it was present.
func (e *Engine) Find(id uint32) (storage.Row, bool, error) {
	return e.tree.Find(id)
}

// Range returns every row with lo <= id <= hi in ascending key order.
func (e *Engine) Range(lo, hi uint32) ([]storage.Row, error) {
	return e.tree.Range(lo, hi)
}

// All returns every row in ascending key order.
func (e *Engine) All() ([]storage.Row, error) {
	return e.tree.All()
}
