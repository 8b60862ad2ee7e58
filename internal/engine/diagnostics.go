package engine

// Diagnostic surface: stats/pool_stats/free_list/tree_dump/json_dump/
// bloom_stats/bloom_rebuild/free(page), matching spec §6's diagnostic
// operations one-for-one. None of these mutate tree data (free(page)
// aside, which is explicitly restricted to page > 1).

import (
	"encoding/json"
	"fmt"

	"github.com/cabewaldrop/forgedb/internal/storage"
)

// Stats is the header-level snapshot a ".stats" command prints.
type Stats struct {
	Magic         uint32
	PageSize      uint32
	TotalPages    uint32
	FreePages     uint32
	FirstFreePage uint32
}

// Stats reports the current file header fields.
func (e *Engine) Stats() Stats {
	h := e.pager.Header()
	return Stats{
		Magic:         h.Magic,
		PageSize:      h.PageSize,
		TotalPages:    h.TotalPages,
		FreePages:     h.FreePages,
		FirstFreePage: h.FirstFreePage,
	}
}

// PoolStats reports buffer pool hit/miss/eviction counters.
func (e *Engine) PoolStats() storage.PoolStats {
	return e.pager.Stats()
}

// FreeList returns the free list's page numbers, head first.
func (e *Engine) FreeList() ([]uint32, error) {
	return e.pager.FreeListPages()
}

// TreeDump returns the structural summary of every node, for the
// textual ".tree" command.
func (e *Engine) TreeDump() ([]storage.TreeNodeDump, error) {
	return e.tree.DumpTree()
}

// JSONDump renders the same structural summary as indented JSON, for
// the ".json" command and any HTML visualiser consuming it.
func (e *Engine) JSONDump() (string, error) {
	dump, err := e.tree.DumpTree()
	if err != nil {
		return "", err
	}
	out, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return "", fmt.Errorf("engine: marshal tree dump: %w", err)
	}
	return string(out), nil
}

// BloomStats reports the Bloom filter's fill and estimated
// false-positive rate.
func (e *Engine) BloomStats() storage.BloomStats {
	return e.tree.BloomStats()
}

// BloomRebuild clears and re-derives the Bloom filter from the leaf
// chain.
func (e *Engine) BloomRebuild() error {
	return e.tree.RebuildBloom()
}

// FreePage returns page n to the free list. Restricted to n > 1: the
// header and root pages are never freed.
func (e *Engine) FreePage(n uint32) error {
	return e.pager.FreePage(n)
}
