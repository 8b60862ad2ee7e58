package storage

// Package storage - slotted leaf node
//
// EDUCATIONAL NOTES:
// ------------------
// A leaf page packs variable-length serialized rows against the tail
// of the page while a fixed-width slot directory (offset,length pairs)
// grows from the header downward. This is the classic "slotted page"
// layout used by real disk-based databases: it lets records of
// different sizes coexist without per-record padding, at the cost of
// needing an explicit defragment step to reclaim holes left by
// deletes.

import (
	"encoding/binary"
	"sort"
)

// leafNode is a typed view over a *page known to hold type=LEAF.
type leafNode struct {
	p *page
}

func asLeaf(p *page) *leafNode { return &leafNode{p: p} }

func (n *leafNode) initialize() {
	n.p.SetType(PageTypeLeaf)
	n.p.SetIsRoot(false)
	n.setNumCells(0)
	n.setDataEnd(PageSize)
	n.setTotalFree(LeafUsableSpace)
	n.setNextLeaf(0)
}

func (n *leafNode) numCells() uint32 {
	return binary.LittleEndian.Uint32(n.p.buf[offsetLeafNumCells:])
}
func (n *leafNode) setNumCells(v uint32) {
	binary.LittleEndian.PutUint32(n.p.buf[offsetLeafNumCells:], v)
}

func (n *leafNode) dataEnd() uint16 {
	return binary.LittleEndian.Uint16(n.p.buf[offsetLeafDataEnd:])
}
func (n *leafNode) setDataEnd(v uint16) {
	binary.LittleEndian.PutUint16(n.p.buf[offsetLeafDataEnd:], v)
}

func (n *leafNode) totalFree() uint16 {
	return binary.LittleEndian.Uint16(n.p.buf[offsetLeafTotalFree:])
}
func (n *leafNode) setTotalFree(v uint16) {
	binary.LittleEndian.PutUint16(n.p.buf[offsetLeafTotalFree:], v)
}

func (n *leafNode) nextLeaf() uint32 {
	return binary.LittleEndian.Uint32(n.p.buf[offsetLeafNextLeaf:])
}
func (n *leafNode) setNextLeaf(v uint32) {
	binary.LittleEndian.PutUint32(n.p.buf[offsetLeafNextLeaf:], v)
}

func slotOffset(i uint32) int { return leafHeaderSize + int(i)*slotSize }

func (n *leafNode) slot(i uint32) (offset, length uint16) {
	o := slotOffset(i)
	return binary.LittleEndian.Uint16(n.p.buf[o:]), binary.LittleEndian.Uint16(n.p.buf[o+2:])
}

func (n *leafNode) setSlot(i uint32, offset, length uint16) {
	o := slotOffset(i)
	binary.LittleEndian.PutUint16(n.p.buf[o:], offset)
	binary.LittleEndian.PutUint16(n.p.buf[o+2:], length)
}

// record returns the raw bytes of cell i (its serialized Row).
func (n *leafNode) record(i uint32) []byte {
	off, length := n.slot(i)
	return n.p.buf[off : off+length]
}

// key returns the primary key of cell i by reading only the first 4
// bytes of its record, without deserializing the whole row.
func (n *leafNode) key(i uint32) uint32 {
	off, _ := n.slot(i)
	return binary.LittleEndian.Uint32(n.p.buf[off:])
}

// contiguousFree is the space between the end of the slot directory
// and the start of the record area — the space an insert can use
// without first defragmenting.
func (n *leafNode) contiguousFree() int {
	return int(n.dataEnd()) - (leafHeaderSize + int(n.numCells())*slotSize)
}

func (n *leafNode) canFit(size int) bool {
	return int(n.totalFree()) >= size+slotSize
}

// findKeyIndex returns the index of key in the sorted key sequence
// and whether it was found (false => the index it would be inserted
// at to keep the sequence sorted).
func (n *leafNode) findKeyIndex(key uint32) (idx uint32, found bool) {
	count := int(n.numCells())
	i := sort.Search(count, func(i int) bool {
		return n.key(uint32(i)) >= key
	})
	if i < count && n.key(uint32(i)) == key {
		return uint32(i), true
	}
	return uint32(i), false
}

// defragment compacts every live record against the page tail in slot
// order, rewriting slot offsets, and reclaims any holes left by prior
// deletes.
func (n *leafNode) defragment() {
	count := n.numCells()
	type rec struct {
		bytes  []byte
		length uint16
	}
	recs := make([]rec, count)
	for i := uint32(0); i < count; i++ {
		off, length := n.slot(i)
		buf := make([]byte, length)
		copy(buf, n.p.buf[off:off+length])
		recs[i] = rec{bytes: buf, length: length}
	}

	cursor := uint16(PageSize)
	for i := uint32(0); i < count; i++ {
		r := recs[i]
		cursor -= r.length
		copy(n.p.buf[cursor:cursor+r.length], r.bytes)
		n.setSlot(i, cursor, r.length)
	}
	n.setDataEnd(cursor)
}

// insert places a new record (whose first 4 bytes must already equal
// key) into the leaf, preserving sort order by key. Caller must have
// already verified the key is absent and that canFit(len(recordBytes))
// holds.
func (n *leafNode) insert(key uint32, recordBytes []byte) {
	size := len(recordBytes)
	idx, _ := n.findKeyIndex(key)

	if n.contiguousFree() < size+slotSize {
		n.defragment()
	}

	newEnd := n.dataEnd() - uint16(size)
	copy(n.p.buf[newEnd:], recordBytes)
	n.setDataEnd(newEnd)

	count := n.numCells()
	for i := count; i > idx; i-- {
		off, length := n.slot(i - 1)
		n.setSlot(i, off, length)
	}
	n.setSlot(idx, newEnd, uint16(size))
	n.setNumCells(count + 1)
	n.setTotalFree(n.totalFree() - uint16(size+slotSize))
}

// removeAt deletes slot i, shifting later slots down. The record bytes
// themselves are left in place; the hole is reclaimed lazily by a
// future defragment.
func (n *leafNode) removeAt(i uint32) {
	_, length := n.slot(i)
	count := n.numCells()
	for j := i; j+1 < count; j++ {
		off, l := n.slot(j + 1)
		n.setSlot(j, off, l)
	}
	n.setNumCells(count - 1)
	n.setTotalFree(n.totalFree() + length + slotSize)
}

// remove deletes the record with the given key if present, returning
// whether it was found.
func (n *leafNode) remove(key uint32) bool {
	idx, found := n.findKeyIndex(key)
	if !found {
		return false
	}
	n.removeAt(idx)
	return true
}

// usedBytes is the total bytes this leaf occupies out of
// LeafUsableSpace, including per-slot overhead — the complement of
// totalFree.
func (n *leafNode) usedBytes() int {
	return LeafUsableSpace - int(n.totalFree())
}

// underflow reports whether the leaf is below the minimum occupancy
// threshold: fewer than LeafMinCells cells, or fewer than half of
// usable space occupied.
func (n *leafNode) underflow() bool {
	return n.numCells() < LeafMinCells || n.usedBytes() < LeafUsableSpace/2
}
