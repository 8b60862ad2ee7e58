package storage

// Package storage - error taxonomy
//
// EDUCATIONAL NOTES:
// ------------------
// The storage-level failures callers branch on are a small, closed
// set of sentinel errors (plus ErrFieldTooLong in row.go), matched
// with errors.Is rather than by parsing message strings. File I/O and
// record-decoding failures are returned as ordinary descriptive
// errors, not sentinels. Fatal errors (magic mismatch,
// pool exhaustion, invariant violations) are still returned as plain
// errors rather than os.Exit calls: it's the caller at the engine/CLI
// boundary that decides to terminate the process.

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateKey is returned by Insert when the id already exists.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrNotFound is returned by Remove when the id is absent. Find
	// reports absence through its bool result instead.
	ErrNotFound = errors.New("storage: not found")

	// ErrMagicMismatch is returned by Open when an existing file's
	// header magic does not match DBMagic. Fatal: the caller should
	// instruct the user to delete the file.
	ErrMagicMismatch = errors.New("storage: file header magic mismatch")

	// ErrPoolExhausted is returned when every frame in the buffer pool
	// is pinned at the moment an eviction is required. Fatal.
	ErrPoolExhausted = errors.New("storage: buffer pool exhausted (all frames pinned)")

	// ErrInvariantViolation marks an internal-consistency failure: a
	// missing child in a parent node, bad underflow arithmetic, or an
	// unrecognised node type. Fatal.
	ErrInvariantViolation = errors.New("storage: invariant violation")

	// ErrFreePageProtected is returned by FreePage for page 0 or 1,
	// which are never returned to the free list.
	ErrFreePageProtected = errors.New("storage: cannot free header or root page")
)

// CRCMismatchError records a checksum mismatch detected while loading
// a page. It is never returned as a hard error — the pager logs it as
// a warning and continues to operate on the page's on-disk contents —
// but it is typed so tests and diagnostics can recognise it precisely.
type CRCMismatchError struct {
	Page     uint32
	Stored   uint32
	Computed uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("storage: crc mismatch on page %d: stored=0x%08X computed=0x%08X", e.Page, e.Stored, e.Computed)
}
