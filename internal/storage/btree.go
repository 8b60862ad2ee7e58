package storage

// Package storage - B+Tree over paged storage
//
// EDUCATIONAL NOTES:
// ------------------
// This is the core data structure: a disk-resident B+Tree with
// variable-length slotted leaves and fixed-cell internal nodes, no
// parent pointers (traversal records the ancestor chain on the call
// stack instead), and leaf-chained sibling pointers for cheap ordered
// iteration. Splits and merges propagate upward by walking back along
// that recorded path rather than following parent links, which is why
// every lookup that might later mutate the tree returns a path
// alongside the terminal leaf.

import (
	"fmt"

	"go.uber.org/zap"
)

// TreeOption configures a BTree at construction time.
type TreeOption func(*BTree)

// WithTreeLogger attaches a *zap.Logger the tree uses to trace
// structural events (splits, merges, root growth/collapse) at debug
// level, mirroring the reference implementation's "DEBUG: ..." traces.
func WithTreeLogger(l *zap.Logger) TreeOption {
	return func(t *BTree) { t.log = l }
}

// BTree is the ordered index over a Pager's page file.
type BTree struct {
	pager *Pager
	bloom *bloomFilter
	log   *zap.Logger
}

// NewBTree constructs (or attaches to) the B+Tree stored in pager. A
// fresh file gets page 1 initialised as an empty root leaf; an
// existing file has its Bloom filter rebuilt from the leaf chain,
// since the filter is not persisted reliably across crashes and
// rebuild is cheap relative to correctness.
func NewBTree(pager *Pager, opts ...TreeOption) (*BTree, error) {
	t := &BTree{pager: pager, log: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}

	if pager.Header().TotalPages <= 1 {
		num, err := pager.AllocatePage()
		if err != nil {
			return nil, err
		}
		if num != RootPageNum {
			return nil, fmt.Errorf("%w: expected fresh root at page %d, got %d", ErrInvariantViolation, RootPageNum, num)
		}
		rootPg, err := pager.GetPage(RootPageNum)
		if err != nil {
			return nil, err
		}
		asLeaf(rootPg).initialize()
		rootPg.SetIsRoot(true)
	}

	t.bloom = newBloomFilter(pager.BloomBytes())
	if err := t.RebuildBloom(); err != nil {
		return nil, err
	}
	return t, nil
}

// Pager exposes the underlying pager for diagnostics (pool stats,
// free list, explicit page free).
func (t *BTree) Pager() *Pager { return t.pager }

func (t *BTree) pinAll(nums []uint32) {
	for _, n := range nums {
		t.pager.Pin(n)
	}
}

func (t *BTree) unpinAll(nums []uint32) {
	for _, n := range nums {
		t.pager.Unpin(n)
	}
}

// find descends from the root, returning the terminal leaf's page
// number and the stack of internal ancestor page numbers, oldest
// (the root) first.
func (t *BTree) find(key uint32) (leafNum uint32, path []uint32, err error) {
	cur := RootPageNum
	for {
		pg, err := t.pager.GetPage(cur)
		if err != nil {
			return 0, nil, err
		}
		switch pg.Type() {
		case PageTypeLeaf:
			return cur, path, nil
		case PageTypeInternal:
			path = append(path, cur)
			cur = asInternal(pg).findChild(key)
		default:
			return 0, nil, fmt.Errorf("%w: page %d has unexpected type %s", ErrInvariantViolation, cur, pg.Type())
		}
	}
}

func (t *BTree) leftmostLeaf() (uint32, error) {
	cur := RootPageNum
	for {
		pg, err := t.pager.GetPage(cur)
		if err != nil {
			return 0, err
		}
		if pg.Type() == PageTypeLeaf {
			return cur, nil
		}
		if pg.Type() != PageTypeInternal {
			return 0, fmt.Errorf("%w: page %d has unexpected type %s", ErrInvariantViolation, cur, pg.Type())
		}
		cur = asInternal(pg).child(0)
	}
}

// Insert adds row under row.ID. Returns ErrDuplicateKey if the id is
// already present.
func (t *BTree) Insert(row Row) error {
	if err := row.Validate(); err != nil {
		return err
	}
	key := row.ID

	leafNum, path, err := t.find(key)
	if err != nil {
		return err
	}
	pins := append(append([]uint32{}, path...), leafNum)
	t.pinAll(pins)
	defer t.unpinAll(pins)

	pg, err := t.pager.GetPage(leafNum)
	if err != nil {
		return err
	}
	leaf := asLeaf(pg)
	if _, found := leaf.findKeyIndex(key); found {
		return fmt.Errorf("%w: id %d", ErrDuplicateKey, key)
	}

	t.bloom.add(key)

	size := row.SerializedSize()
	buf := make([]byte, size)
	if _, err := Serialize(row, buf); err != nil {
		return err
	}

	if leaf.canFit(size) {
		leaf.insert(key, buf)
		return nil
	}

	t.log.Debug("leaf full, splitting", zap.Uint32("page", leafNum), zap.Uint32("key", key))
	return t.splitLeaf(leafNum, path, key, buf)
}

// splitLeaf rebuilds leafNum's contents (its existing rows plus the
// pending one) into a byte-balanced left/right pair and propagates
// the new separator upward.
func (t *BTree) splitLeaf(leafNum uint32, path []uint32, newKey uint32, newRecord []byte) error {
	pg, err := t.pager.GetPage(leafNum)
	if err != nil {
		return err
	}
	leaf := asLeaf(pg)

	type row struct {
		key uint32
		rec []byte
	}
	count := leaf.numCells()
	rows := make([]row, 0, count+1)
	for i := uint32(0); i < count; i++ {
		rec := append([]byte(nil), leaf.record(i)...)
		rows = append(rows, row{key: leaf.key(i), rec: rec})
	}
	insertAt := 0
	for insertAt < len(rows) && rows[insertAt].key < newKey {
		insertAt++
	}
	rows = append(rows, row{})
	copy(rows[insertAt+1:], rows[insertAt:])
	rows[insertAt] = row{key: newKey, rec: newRecord}

	// Smallest prefix whose cumulative size+4 exceeds half of usable
	// space; at least one row stays left; fallback to the median.
	splitAt := -1
	cum := 0
	half := LeafUsableSpace / 2
	for i, r := range rows {
		cum += len(r.rec) + slotSize
		if cum > half && i+1 < len(rows) {
			splitAt = i + 1
			break
		}
	}
	if splitAt <= 0 {
		splitAt = len(rows) / 2
		if splitAt == 0 {
			splitAt = 1
		}
	}

	wasRoot := leaf.p.IsRoot()
	savedNext := leaf.nextLeaf()

	newPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}
	t.pager.Pin(newPageNum)
	defer t.pager.Unpin(newPageNum)

	newPg, err := t.pager.GetPage(newPageNum)
	if err != nil {
		return err
	}
	newLeaf := asLeaf(newPg)
	newLeaf.initialize()

	leaf.initialize()
	if wasRoot {
		leaf.p.SetIsRoot(true)
	}
	for _, r := range rows[:splitAt] {
		leaf.insert(r.key, r.rec)
	}
	for _, r := range rows[splitAt:] {
		newLeaf.insert(r.key, r.rec)
	}

	leaf.setNextLeaf(newPageNum)
	newLeaf.setNextLeaf(savedNext)

	separator := rows[splitAt].key

	if wasRoot {
		t.log.Debug("root leaf split, growing root", zap.Uint32("separator", separator))
		return t.growRoot(separator, newPageNum)
	}

	parentNum := path[len(path)-1]
	parentPg, err := t.pager.GetPage(parentNum)
	if err != nil {
		return err
	}
	parent := asInternal(parentPg)
	childIdx, ok := parent.findChildIndex(leafNum)
	if !ok {
		return fmt.Errorf("%w: leaf %d not found among parent %d's children", ErrInvariantViolation, leafNum, parentNum)
	}
	if parent.numKeys() < InternalMaxCells {
		parent.insertChild(childIdx, separator, newPageNum)
		return nil
	}
	t.log.Debug("parent internal node full, splitting", zap.Uint32("page", parentNum))
	return t.splitInternal(parentNum, path[:len(path)-1], childIdx, separator, newPageNum)
}

// growRoot copies the current root's contents to a freshly allocated
// page (which becomes the new left child) and reinitialises page 1 in
// place as the new root. Page 1's number never changes.
func (t *BTree) growRoot(separator uint32, newRightPage uint32) error {
	rootPg, err := t.pager.GetPage(RootPageNum)
	if err != nil {
		return err
	}

	leftPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}
	t.pager.Pin(leftPageNum)
	defer t.pager.Unpin(leftPageNum)

	leftPg, err := t.pager.GetPage(leftPageNum)
	if err != nil {
		return err
	}
	leftPg.buf = rootPg.buf
	leftPg.SetIsRoot(false)

	root := asInternal(rootPg)
	root.initialize()
	root.setCellChild(0, leftPageNum)
	root.setCellKey(0, separator)
	root.setRightChild(newRightPage)
	root.setNumKeys(1)
	rootPg.SetIsRoot(true)
	return nil
}

// splitInternal handles a full internal node (InternalMaxCells keys)
// that needs to absorb one more (key, child) pair at childIndex. It
// conceptually builds the InternalMaxCells+1 keys / +2 children array,
// splits it at the midpoint, and propagates the push-up key to the
// grandparent (or grows the root).
func (t *BTree) splitInternal(nodeNum uint32, ancestorPath []uint32, childIndex uint32, newKey uint32, newChild uint32) error {
	pg, err := t.pager.GetPage(nodeNum)
	if err != nil {
		return err
	}
	node := asInternal(pg)

	n := node.numKeys()
	keys := make([]uint32, n)
	children := make([]uint32, n+1)
	for i := uint32(0); i < n; i++ {
		keys[i] = node.cellKey(i)
		children[i] = node.cellChild(i)
	}
	children[n] = node.rightChild()

	newKeys := make([]uint32, 0, n+1)
	newKeys = append(newKeys, keys[:childIndex]...)
	newKeys = append(newKeys, newKey)
	newKeys = append(newKeys, keys[childIndex:]...)

	newChildren := make([]uint32, 0, n+2)
	newChildren = append(newChildren, children[:childIndex+1]...)
	newChildren = append(newChildren, newChild)
	newChildren = append(newChildren, children[childIndex+1:]...)

	mid := (n + 1) / 2
	pushUpKey := newKeys[mid]
	leftKeys := newKeys[:mid]
	leftChildren := newChildren[:mid+1]
	rightKeys := newKeys[mid+1:]
	rightChildren := newChildren[mid+1:]

	wasRoot := node.p.IsRoot()

	newRightPageNum, err := t.pager.AllocatePage()
	if err != nil {
		return err
	}
	t.pager.Pin(newRightPageNum)
	defer t.pager.Unpin(newRightPageNum)

	rightPg, err := t.pager.GetPage(newRightPageNum)
	if err != nil {
		return err
	}
	rightNode := asInternal(rightPg)
	rightNode.initialize()
	for i, k := range rightKeys {
		rightNode.setCellKey(uint32(i), k)
		rightNode.setCellChild(uint32(i), rightChildren[i])
	}
	rightNode.setRightChild(rightChildren[len(rightChildren)-1])
	rightNode.setNumKeys(uint32(len(rightKeys)))

	node.initialize()
	if wasRoot {
		node.p.SetIsRoot(true)
	}
	for i, k := range leftKeys {
		node.setCellKey(uint32(i), k)
		node.setCellChild(uint32(i), leftChildren[i])
	}
	node.setRightChild(leftChildren[len(leftChildren)-1])
	node.setNumKeys(uint32(len(leftKeys)))

	if wasRoot {
		t.log.Debug("root internal split, growing root", zap.Uint32("pushUpKey", pushUpKey))
		return t.growRoot(pushUpKey, newRightPageNum)
	}

	grandparentNum := ancestorPath[len(ancestorPath)-1]
	gpPg, err := t.pager.GetPage(grandparentNum)
	if err != nil {
		return err
	}
	gp := asInternal(gpPg)
	idx, ok := gp.findChildIndex(nodeNum)
	if !ok {
		return fmt.Errorf("%w: node %d not found among parent %d's children", ErrInvariantViolation, nodeNum, grandparentNum)
	}
	if gp.numKeys() < InternalMaxCells {
		gp.insertChild(idx, pushUpKey, newRightPageNum)
		return nil
	}
	return t.splitInternal(grandparentNum, ancestorPath[:len(ancestorPath)-1], idx, pushUpKey, newRightPageNum)
}

// Remove deletes the row with the given id. The Bloom filter is
// consulted first: a definite negative short-circuits without
// touching the tree.
func (t *BTree) Remove(key uint32) error {
	if !t.bloom.possiblyContains(key) {
		return fmt.Errorf("%w: id %d", ErrNotFound, key)
	}

	leafNum, path, err := t.find(key)
	if err != nil {
		return err
	}
	pins := append(append([]uint32{}, path...), leafNum)
	t.pinAll(pins)
	defer t.unpinAll(pins)

	pg, err := t.pager.GetPage(leafNum)
	if err != nil {
		return err
	}
	leaf := asLeaf(pg)
	if !leaf.remove(key) {
		return fmt.Errorf("%w: id %d", ErrNotFound, key)
	}

	if leaf.p.IsRoot() || !leaf.underflow() {
		return nil
	}
	t.log.Debug("leaf underflow, rebalancing", zap.Uint32("page", leafNum))
	return t.rebalanceLeaf(leafNum, path)
}

// rebalanceLeaf tries to borrow a record from a sibling; failing
// that, merges with a sibling and propagates the resulting parent
// underflow (if any) upward.
func (t *BTree) rebalanceLeaf(leafNum uint32, path []uint32) error {
	parentNum := path[len(path)-1]
	parentPg, err := t.pager.GetPage(parentNum)
	if err != nil {
		return err
	}
	parent := asInternal(parentPg)
	childIdx, ok := parent.findChildIndex(leafNum)
	if !ok {
		return fmt.Errorf("%w: leaf %d not found among parent %d's children", ErrInvariantViolation, leafNum, parentNum)
	}
	leafPg, err := t.pager.GetPage(leafNum)
	if err != nil {
		return err
	}
	leaf := asLeaf(leafPg)

	if childIdx > 0 {
		leftNum := parent.child(childIdx - 1)
		leftPg, err := t.pager.GetPage(leftNum)
		if err != nil {
			return err
		}
		left := asLeaf(leftPg)
		if !left.underflow() && left.numCells() > LeafMinCells {
			lastIdx := left.numCells() - 1
			k := left.key(lastIdx)
			rec := append([]byte(nil), left.record(lastIdx)...)
			left.removeAt(lastIdx)
			if !leaf.canFit(len(rec)) {
				leaf.defragment()
			}
			leaf.insert(k, rec)
			parent.setCellKey(childIdx-1, leaf.key(0))
			return nil
		}
	}

	if childIdx < parent.numKeys() {
		rightNum := parent.child(childIdx + 1)
		rightPg, err := t.pager.GetPage(rightNum)
		if err != nil {
			return err
		}
		right := asLeaf(rightPg)
		if !right.underflow() && right.numCells() > LeafMinCells {
			k := right.key(0)
			rec := append([]byte(nil), right.record(0)...)
			right.removeAt(0)
			if !leaf.canFit(len(rec)) {
				leaf.defragment()
			}
			leaf.insert(k, rec)
			parent.setCellKey(childIdx, right.key(0))
			return nil
		}
	}

	if childIdx > 0 {
		leftNum := parent.child(childIdx - 1)
		return t.mergeLeaves(leftNum, leafNum, parentNum, childIdx-1, path[:len(path)-1])
	}
	rightNum := parent.child(childIdx + 1)
	return t.mergeLeaves(leafNum, rightNum, parentNum, childIdx, path[:len(path)-1])
}

// mergeLeaves folds right's records into left, unlinks right from the
// sibling chain, frees it, and removes the separator from parent,
// recursing into rebalanceInternal (or collapsing the root) if that
// leaves parent underfull.
func (t *BTree) mergeLeaves(leftNum, rightNum, parentNum uint32, sepIdx uint32, ancestorPath []uint32) error {
	leftPg, err := t.pager.GetPage(leftNum)
	if err != nil {
		return err
	}
	rightPg, err := t.pager.GetPage(rightNum)
	if err != nil {
		return err
	}
	left := asLeaf(leftPg)
	right := asLeaf(rightPg)

	for i := uint32(0); i < right.numCells(); i++ {
		k := right.key(i)
		rec := append([]byte(nil), right.record(i)...)
		if !left.canFit(len(rec)) {
			left.defragment()
		}
		left.insert(k, rec)
	}
	left.setNextLeaf(right.nextLeaf())

	if err := t.pager.FreePage(rightNum); err != nil {
		return err
	}

	parentPg, err := t.pager.GetPage(parentNum)
	if err != nil {
		return err
	}
	parent := asInternal(parentPg)
	parent.removeKey(sepIdx)

	if parentPg.IsRoot() && parent.numKeys() == 0 {
		t.log.Debug("root internal emptied by merge, collapsing", zap.Uint32("soleChild", leftNum))
		return t.collapseRoot(leftNum)
	}
	if !parentPg.IsRoot() && parent.numKeys() < InternalMinKeys {
		return t.rebalanceInternal(parentNum, ancestorPath)
	}
	return nil
}

// collapseRoot copies the sole remaining child's contents into page 1
// and frees the source page, used when merges empty out the root
// internal node down to a single child.
func (t *BTree) collapseRoot(soleChildPage uint32) error {
	childPg, err := t.pager.GetPage(soleChildPage)
	if err != nil {
		return err
	}
	rootPg, err := t.pager.GetPage(RootPageNum)
	if err != nil {
		return err
	}
	rootPg.buf = childPg.buf
	rootPg.SetIsRoot(true)
	return t.pager.FreePage(soleChildPage)
}

// rebalanceInternal mirrors rebalanceLeaf for internal nodes: borrow
// rotates one key through the parent; failing that, merge and
// recurse.
func (t *BTree) rebalanceInternal(nodeNum uint32, path []uint32) error {
	parentNum := path[len(path)-1]
	parentPg, err := t.pager.GetPage(parentNum)
	if err != nil {
		return err
	}
	parent := asInternal(parentPg)
	childIdx, ok := parent.findChildIndex(nodeNum)
	if !ok {
		return fmt.Errorf("%w: node %d not found among parent %d's children", ErrInvariantViolation, nodeNum, parentNum)
	}
	nodePg, err := t.pager.GetPage(nodeNum)
	if err != nil {
		return err
	}
	node := asInternal(nodePg)

	if childIdx > 0 {
		leftNum := parent.child(childIdx - 1)
		leftPg, err := t.pager.GetPage(leftNum)
		if err != nil {
			return err
		}
		left := asInternal(leftPg)
		if left.numKeys() > InternalMinKeys {
			borrowedChild := left.rightChild()
			borrowedKey := left.cellKey(left.numKeys() - 1)
			left.setRightChild(left.cellChild(left.numKeys() - 1))
			left.setNumKeys(left.numKeys() - 1)

			cnt := node.numKeys()
			for i := cnt; i > 0; i-- {
				node.setCellChild(i, node.cellChild(i-1))
				node.setCellKey(i, node.cellKey(i-1))
			}
			node.setCellChild(0, borrowedChild)
			node.setCellKey(0, parent.cellKey(childIdx-1))
			node.setNumKeys(cnt + 1)

			parent.setCellKey(childIdx-1, borrowedKey)
			return nil
		}
	}

	if childIdx < parent.numKeys() {
		rightNum := parent.child(childIdx + 1)
		rightPg, err := t.pager.GetPage(rightNum)
		if err != nil {
			return err
		}
		right := asInternal(rightPg)
		if right.numKeys() > InternalMinKeys {
			appendedKey := parent.cellKey(childIdx)
			appendedChild := node.rightChild()
			cnt := node.numKeys()
			node.setCellChild(cnt, appendedChild)
			node.setCellKey(cnt, appendedKey)
			node.setNumKeys(cnt + 1)
			node.setRightChild(right.cellChild(0))

			newParentKey := right.cellKey(0)
			rc := right.numKeys()
			for i := uint32(0); i+1 < rc; i++ {
				right.setCellChild(i, right.cellChild(i+1))
				right.setCellKey(i, right.cellKey(i+1))
			}
			right.setNumKeys(rc - 1)

			parent.setCellKey(childIdx, newParentKey)
			return nil
		}
	}

	if childIdx > 0 {
		leftNum := parent.child(childIdx - 1)
		return t.mergeInternals(leftNum, nodeNum, parentNum, childIdx-1, path[:len(path)-1])
	}
	rightNum := parent.child(childIdx + 1)
	return t.mergeInternals(nodeNum, rightNum, parentNum, childIdx, path[:len(path)-1])
}

// mergeInternals folds right's cells into left (reattaching the
// parent's separator key as the boundary between them), frees right,
// and removes the separator from parent, recursing or collapsing the
// root as needed.
func (t *BTree) mergeInternals(leftNum, rightNum, parentNum uint32, sepIdx uint32, ancestorPath []uint32) error {
	parentPg, err := t.pager.GetPage(parentNum)
	if err != nil {
		return err
	}
	parent := asInternal(parentPg)
	sepKey := parent.cellKey(sepIdx)

	leftPg, err := t.pager.GetPage(leftNum)
	if err != nil {
		return err
	}
	rightPg, err := t.pager.GetPage(rightNum)
	if err != nil {
		return err
	}
	left := asInternal(leftPg)
	right := asInternal(rightPg)

	cnt := left.numKeys()
	left.setCellChild(cnt, left.rightChild())
	left.setCellKey(cnt, sepKey)

	rc := right.numKeys()
	for i := uint32(0); i < rc; i++ {
		left.setCellChild(cnt+1+i, right.cellChild(i))
		left.setCellKey(cnt+1+i, right.cellKey(i))
	}
	left.setNumKeys(cnt + 1 + rc)
	left.setRightChild(right.rightChild())

	if err := t.pager.FreePage(rightNum); err != nil {
		return err
	}
	parent.removeKey(sepIdx)

	if parentPg.IsRoot() && parent.numKeys() == 0 {
		t.log.Debug("root internal emptied by merge, collapsing", zap.Uint32("soleChild", leftNum))
		return t.collapseRoot(leftNum)
	}
	if !parentPg.IsRoot() && parent.numKeys() < InternalMinKeys {
		return t.rebalanceInternal(parentNum, ancestorPath)
	}
	return nil
}

// Find returns the row stored under key, or (Row{}, false, nil) if
// absent (either a Bloom definite negative or a Bloom false positive
// resolved against the tree).
func (t *BTree) Find(key uint32) (Row, bool, error) {
	if !t.bloom.possiblyContains(key) {
		return Row{}, false, nil
	}
	leafNum, _, err := t.find(key)
	if err != nil {
		return Row{}, false, err
	}
	pg, err := t.pager.GetPage(leafNum)
	if err != nil {
		return Row{}, false, err
	}
	leaf := asLeaf(pg)
	idx, found := leaf.findKeyIndex(key)
	if !found {
		return Row{}, false, nil
	}
	row, err := Deserialize(leaf.record(idx))
	if err != nil {
		return Row{}, false, err
	}
	return row, true, nil
}

// All returns every row in ascending key order.
func (t *BTree) All() ([]Row, error) {
	cur, err := t.leftmostLeaf()
	if err != nil {
		return nil, err
	}
	var rows []Row
	for cur != 0 {
		pg, err := t.pager.GetPage(cur)
		if err != nil {
			return nil, err
		}
		leaf := asLeaf(pg)
		for i := uint32(0); i < leaf.numCells(); i++ {
			row, err := Deserialize(leaf.record(i))
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		cur = leaf.nextLeaf()
	}
	return rows, nil
}

// Range returns every row with lo <= id <= hi in ascending key order.
func (t *BTree) Range(lo, hi uint32) ([]Row, error) {
	cur, _, err := t.find(lo)
	if err != nil {
		return nil, err
	}
	var rows []Row
	for cur != 0 {
		pg, err := t.pager.GetPage(cur)
		if err != nil {
			return nil, err
		}
		leaf := asLeaf(pg)
		done := false
		for i := uint32(0); i < leaf.numCells(); i++ {
			k := leaf.key(i)
			if k < lo {
				continue
			}
			if k > hi {
				done = true
				break
			}
			row, err := Deserialize(leaf.record(i))
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		if done {
			break
		}
		cur = leaf.nextLeaf()
	}
	return rows, nil
}

// RebuildBloom clears the bit-array and re-adds every key found by
// walking the leaf chain. Required at open and available on demand
// after heavy deletes to correct accumulated staleness.
func (t *BTree) RebuildBloom() error {
	t.bloom.clear()
	cur, err := t.leftmostLeaf()
	if err != nil {
		return err
	}
	for cur != 0 {
		pg, err := t.pager.GetPage(cur)
		if err != nil {
			return err
		}
		leaf := asLeaf(pg)
		for i := uint32(0); i < leaf.numCells(); i++ {
			t.bloom.add(leaf.key(i))
		}
		cur = leaf.nextLeaf()
	}
	return nil
}

// BloomStats reports the Bloom filter's current fill and estimated
// false-positive rate.
func (t *BTree) BloomStats() BloomStats { return t.bloom.stats() }

// TreeNodeDump is one node's worth of structural information, used by
// both the textual tree printer and the JSON dump.
type TreeNodeDump struct {
	Page     uint32   `json:"page"`
	Type     string   `json:"type"`
	IsRoot   bool     `json:"is_root,omitempty"`
	Keys     []uint32 `json:"keys,omitempty"`
	Children []uint32 `json:"children,omitempty"`
	NextLeaf uint32   `json:"next_leaf,omitempty"`
}

// DumpTree walks the tree depth-first from the root and returns a
// flat slice of every node's structural summary, parents before
// children, for textual or JSON printing.
func (t *BTree) DumpTree() ([]TreeNodeDump, error) {
	var out []TreeNodeDump
	var walk func(num uint32) error
	walk = func(num uint32) error {
		pg, err := t.pager.GetPage(num)
		if err != nil {
			return err
		}
		switch pg.Type() {
		case PageTypeLeaf:
			leaf := asLeaf(pg)
			keys := make([]uint32, leaf.numCells())
			for i := range keys {
				keys[i] = leaf.key(uint32(i))
			}
			out = append(out, TreeNodeDump{Page: num, Type: "leaf", IsRoot: pg.IsRoot(), Keys: keys, NextLeaf: leaf.nextLeaf()})
			return nil
		case PageTypeInternal:
			node := asInternal(pg)
			count := node.numKeys()
			keys := make([]uint32, count)
			children := make([]uint32, count+1)
			for i := uint32(0); i < count; i++ {
				keys[i] = node.cellKey(i)
				children[i] = node.cellChild(i)
			}
			children[count] = node.rightChild()
			out = append(out, TreeNodeDump{Page: num, Type: "internal", IsRoot: pg.IsRoot(), Keys: keys, Children: children})
			for _, c := range children {
				if err := walk(c); err != nil {
					return err
				}
			}
			return nil
		default:
			return fmt.Errorf("%w: page %d has unexpected type %s", ErrInvariantViolation, num, pg.Type())
		}
	}
	if err := walk(RootPageNum); err != nil {
		return nil, err
	}
	return out, nil
}

// ReferencedPages returns every page number reachable from the root
// plus every page on the free list — used by invariant checks to
// confirm this set equals [1, total_pages) with no duplicates.
func (t *BTree) ReferencedPages() (map[uint32]bool, error) {
	refs := map[uint32]bool{}
	var walk func(num uint32) error
	walk = func(num uint32) error {
		if refs[num] {
			return nil
		}
		refs[num] = true
		pg, err := t.pager.GetPage(num)
		if err != nil {
			return err
		}
		if pg.Type() == PageTypeInternal {
			node := asInternal(pg)
			for i := uint32(0); i < node.numKeys(); i++ {
				if err := walk(node.cellChild(i)); err != nil {
					return err
				}
			}
			if err := walk(node.rightChild()); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(RootPageNum); err != nil {
		return nil, err
	}
	freeList, err := t.pager.FreeListPages()
	if err != nil {
		return nil, err
	}
	for _, n := range freeList {
		refs[n] = true
	}
	return refs, nil
}
