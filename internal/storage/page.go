// Package storage implements the paged, single-file storage engine:
// a fixed-page file format, a B+ tree index with leaf sibling
// chaining, and a Bloom filter accelerator, all described in detail
// by the project's storage-engine specification.
//
// EDUCATIONAL NOTES:
// ------------------
// Real databases store data in fixed-size blocks called "pages"
// (typically 4KB-16KB). This gives predictable, efficient disk I/O,
// a natural unit for a buffer pool, and a natural unit for per-block
// integrity checking (the CRC32 in bytes 2-5 of every tree page).
//
// Page 0 is special: it holds the file header plus the Bloom filter
// bit-array. Page 1 is always the B+Tree root. Pages 2+ are leaves,
// internal nodes, or free pages threaded onto the free list.
package storage

import "encoding/binary"

const (
	// PageSize is the size of every page in the file, in bytes.
	PageSize = 4096

	// DBMagic identifies a valid forgedb file header.
	DBMagic uint32 = 0xF04DB

	// HeaderPageNum is the page holding the DbHeader + Bloom filter.
	HeaderPageNum uint32 = 0
	// RootPageNum is the page holding the B+Tree root. It never moves.
	RootPageNum uint32 = 1

	// BufferPoolSize is the default number of frames held in RAM.
	// Must be >= tree height + max pages touched by one operation.
	BufferPoolSize = 100
)

// PageType distinguishes the three kinds of page bodies that can
// occupy a page slot beyond the header page.
type PageType uint8

const (
	// PageTypeInternal marks a fixed-cell internal B+Tree node.
	PageTypeInternal PageType = 0
	// PageTypeLeaf marks a slotted leaf B+Tree node.
	PageTypeLeaf PageType = 1
	// PageTypeFree marks a page sitting on the pager's free list.
	PageTypeFree PageType = 2
)

func (t PageType) String() string {
	switch t {
	case PageTypeInternal:
		return "internal"
	case PageTypeLeaf:
		return "leaf"
	case PageTypeFree:
		return "free"
	default:
		return "unknown"
	}
}

// Common node header, present on every page except the header page:
//
//	offset 0: type      (1 byte)
//	offset 1: is_root   (1 byte)
//	offset 2: crc32     (4 bytes)
const (
	offsetType       = 0
	offsetIsRoot     = 1
	offsetChecksum   = 2
	commonHeaderSize = offsetChecksum + 4 // 6
)

// Leaf header, extending the common header:
//
//	offset 6:  num_cells    (4 bytes)
//	offset 10: data_end     (2 bytes)
//	offset 12: total_free   (2 bytes)
//	offset 14: next_leaf    (4 bytes)
const (
	offsetLeafNumCells  = commonHeaderSize
	offsetLeafDataEnd   = offsetLeafNumCells + 4
	offsetLeafTotalFree = offsetLeafDataEnd + 2
	offsetLeafNextLeaf  = offsetLeafTotalFree + 2
	leafHeaderSize      = offsetLeafNextLeaf + 4 // 18

	slotSize = 4 // [offset:u16][length:u16]

	// LeafUsableSpace is the space available for slots + records.
	LeafUsableSpace = PageSize - leafHeaderSize // 4078

	// LeafMinCells is the hard floor below which a non-root leaf
	// always underflows, regardless of byte occupancy.
	LeafMinCells = 2
)

// Internal header, extending the common header:
//
//	offset 6:  num_keys     (4 bytes)
//	offset 10: right_child  (4 bytes)
//
// Cell i (i < num_keys) lives at 14 + i*8 = [child:u32][key:u32].
const (
	offsetInternalNumKeys    = commonHeaderSize
	offsetInternalRightChild = offsetInternalNumKeys + 4
	internalHeaderSize       = offsetInternalRightChild + 4 // 14

	internalCellSize = 8 // child(4) + key(4)

	// InternalMaxCells is the maximum number of keys an internal node
	// can hold.
	InternalMaxCells = (PageSize - internalHeaderSize) / internalCellSize // 510
	// InternalMinKeys is the minimum occupancy for a non-root internal
	// node.
	InternalMinKeys = InternalMaxCells / 2 // 255
)

// Free page layout: byte 0 is PageTypeFree (so flush skips CRC
// stamping), and the next-free-page pointer sits at the same offset
// (6) the leaf/internal headers reserve for their first 4-byte field
// after the common header, so free-list bookkeeping never collides
// with the checksum field.
const offsetFreeNext = commonHeaderSize

// page is an in-memory 4096-byte frame plus its page number. It backs
// both the generic free-list/common-header view and the more specific
// LeafNode / InternalNode views defined in leaf.go / internal_node.go.
type page struct {
	num uint32
	buf [PageSize]byte
}

func newPage(num uint32) *page {
	return &page{num: num}
}

func (p *page) bytes() []byte { return p.buf[:] }

func (p *page) Type() PageType     { return PageType(p.buf[offsetType]) }
func (p *page) SetType(t PageType) { p.buf[offsetType] = byte(t) }

func (p *page) IsRoot() bool { return p.buf[offsetIsRoot] != 0 }
func (p *page) SetIsRoot(v bool) {
	if v {
		p.buf[offsetIsRoot] = 1
	} else {
		p.buf[offsetIsRoot] = 0
	}
}

func (p *page) Checksum() uint32 {
	return binary.LittleEndian.Uint32(p.buf[offsetChecksum:])
}
func (p *page) setChecksum(v uint32) {
	binary.LittleEndian.PutUint32(p.buf[offsetChecksum:], v)
}

// stampChecksum recomputes and writes the CRC32 over the full page
// with the checksum field zeroed, as required before every flush of a
// LEAF or INTERNAL page.
func (p *page) stampChecksum() {
	p.setChecksum(0)
	p.setChecksum(computeCRC32(p.buf[:]))
}

// verifyChecksum reports whether the stored CRC32 matches a
// recomputation (with the checksum field zeroed for the duration of
// the check). A stored checksum of zero (a freshly allocated page
// never flushed) is treated as trivially valid.
func (p *page) verifyChecksum() (ok bool, stored, computed uint32) {
	stored = p.Checksum()
	if stored == 0 {
		return true, 0, 0
	}
	p.setChecksum(0)
	computed = computeCRC32(p.buf[:])
	p.setChecksum(stored)
	return stored == computed, stored, computed
}

// freeNext returns / sets the next-free-page pointer stored on a page
// that has been placed on the free list (type == PageTypeFree).
func (p *page) freeNext() uint32 {
	return binary.LittleEndian.Uint32(p.buf[offsetFreeNext:])
}
func (p *page) setFreeNext(next uint32) {
	binary.LittleEndian.PutUint32(p.buf[offsetFreeNext:], next)
}

// dbHeader is the decoded form of page 0's first 20 bytes.
type dbHeader struct {
	Magic         uint32
	PageSize      uint32
	TotalPages    uint32
	FreePages     uint32
	FirstFreePage uint32
}

const dbHeaderSize = 20

// BloomOffset is the byte offset within the header page where the
// Bloom filter's bit-array begins.
const BloomOffset = dbHeaderSize

// BloomSize is the size in bytes of the Bloom filter's bit-array.
const BloomSize = PageSize - BloomOffset // 4076

// BloomBits is the number of addressable bits in the Bloom filter.
const BloomBits = BloomSize * 8 // 32608

func readDBHeader(buf []byte) dbHeader {
	return dbHeader{
		Magic:         binary.LittleEndian.Uint32(buf[0:4]),
		PageSize:      binary.LittleEndian.Uint32(buf[4:8]),
		TotalPages:    binary.LittleEndian.Uint32(buf[8:12]),
		FreePages:     binary.LittleEndian.Uint32(buf[12:16]),
		FirstFreePage: binary.LittleEndian.Uint32(buf[16:20]),
	}
}

func writeDBHeader(buf []byte, h dbHeader) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.PageSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.TotalPages)
	binary.LittleEndian.PutUint32(buf[12:16], h.FreePages)
	binary.LittleEndian.PutUint32(buf[16:20], h.FirstFreePage)
}
