package storage

import "testing"

func TestInternalInitialize(t *testing.T) {
	p := newPage(2)
	node := asInternal(p)
	node.initialize()
	if p.Type() != PageTypeInternal {
		t.Errorf("Type() = %v, want internal", p.Type())
	}
	if node.numKeys() != 0 {
		t.Errorf("numKeys() = %d, want 0", node.numKeys())
	}
}

func buildInternal(t *testing.T, keys []uint32, children []uint32) *internalNode {
	t.Helper()
	if len(children) != len(keys)+1 {
		t.Fatalf("buildInternal: need len(children)==len(keys)+1")
	}
	node := asInternal(newPage(2))
	node.initialize()
	for i, k := range keys {
		node.setCellKey(uint32(i), k)
		node.setCellChild(uint32(i), children[i])
	}
	node.setRightChild(children[len(children)-1])
	node.setNumKeys(uint32(len(keys)))
	return node
}

func TestInternalFindChildRoutesEqualityRight(t *testing.T) {
	// keys: 10, 20, 30 -> children: 100,101,102,103
	node := buildInternal(t, []uint32{10, 20, 30}, []uint32{100, 101, 102, 103})

	cases := []struct {
		key  uint32
		want uint32
	}{
		{5, 100},
		{10, 101}, // equality routes right
		{15, 101},
		{20, 102}, // equality routes right
		{25, 102},
		{30, 103}, // equality routes right
		{99, 103},
	}
	for _, c := range cases {
		if got := node.findChild(c.key); got != c.want {
			t.Errorf("findChild(%d) = %d, want %d", c.key, got, c.want)
		}
	}
}

func TestInternalInsertChildMiddle(t *testing.T) {
	// C0,K0=10,C1,K1=20,C2  with children 100,101,102
	node := buildInternal(t, []uint32{10, 20}, []uint32{100, 101, 102})

	// Insert (15, 999) to the right of child at index 1 (C1=101).
	node.insertChild(1, 15, 999)

	if node.numKeys() != 3 {
		t.Fatalf("numKeys() = %d, want 3", node.numKeys())
	}
	wantKeys := []uint32{10, 15, 20}
	wantChildren := []uint32{100, 101, 999, 102}
	for i, wk := range wantKeys {
		if node.cellKey(uint32(i)) != wk {
			t.Errorf("cellKey(%d) = %d, want %d", i, node.cellKey(uint32(i)), wk)
		}
	}
	for i, wc := range wantChildren {
		if node.child(uint32(i)) != wc {
			t.Errorf("child(%d) = %d, want %d", i, node.child(uint32(i)), wc)
		}
	}
}

func TestInternalInsertChildAppend(t *testing.T) {
	node := buildInternal(t, []uint32{10}, []uint32{100, 101})
	node.insertChild(1, 20, 999)

	if node.numKeys() != 2 {
		t.Fatalf("numKeys() = %d, want 2", node.numKeys())
	}
	if node.cellKey(0) != 10 || node.cellKey(1) != 20 {
		t.Errorf("keys = [%d %d], want [10 20]", node.cellKey(0), node.cellKey(1))
	}
	if node.child(0) != 100 || node.child(1) != 101 || node.child(2) != 999 {
		t.Errorf("children = [%d %d %d], want [100 101 999]", node.child(0), node.child(1), node.child(2))
	}
}

func TestInternalRemoveKeyMiddle(t *testing.T) {
	node := buildInternal(t, []uint32{10, 20, 30}, []uint32{100, 101, 102, 103})
	node.removeKey(1) // remove key 20 and child 102 (to its right)

	if node.numKeys() != 2 {
		t.Fatalf("numKeys() = %d, want 2", node.numKeys())
	}
	wantKeys := []uint32{10, 30}
	wantChildren := []uint32{100, 101, 103}
	for i, wk := range wantKeys {
		if node.cellKey(uint32(i)) != wk {
			t.Errorf("cellKey(%d) = %d, want %d", i, node.cellKey(uint32(i)), wk)
		}
	}
	for i, wc := range wantChildren {
		if node.child(uint32(i)) != wc {
			t.Errorf("child(%d) = %d, want %d", i, node.child(uint32(i)), wc)
		}
	}
}

func TestInternalRemoveLastKeyFoldsIntoRightChild(t *testing.T) {
	node := buildInternal(t, []uint32{10, 20}, []uint32{100, 101, 102})
	node.removeKey(1) // remove last key: child 101 becomes new right_child

	if node.numKeys() != 1 {
		t.Fatalf("numKeys() = %d, want 1", node.numKeys())
	}
	if node.cellKey(0) != 10 {
		t.Errorf("cellKey(0) = %d, want 10", node.cellKey(0))
	}
	if node.rightChild() != 101 {
		t.Errorf("rightChild() = %d, want 101", node.rightChild())
	}
}

func TestInternalFindChildIndex(t *testing.T) {
	node := buildInternal(t, []uint32{10, 20}, []uint32{100, 101, 102})
	idx, ok := node.findChildIndex(101)
	if !ok || idx != 1 {
		t.Errorf("findChildIndex(101) = (%d, %v), want (1, true)", idx, ok)
	}
	idx, ok = node.findChildIndex(102)
	if !ok || idx != 2 {
		t.Errorf("findChildIndex(102) = (%d, %v), want (2, true)", idx, ok)
	}
	if _, ok := node.findChildIndex(999); ok {
		t.Error("findChildIndex(999) should not be found")
	}
}
