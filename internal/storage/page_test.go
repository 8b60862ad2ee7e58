package storage

import "testing"

func TestPageCommonHeaderAccessors(t *testing.T) {
	p := newPage(7)
	p.SetType(PageTypeLeaf)
	if p.Type() != PageTypeLeaf {
		t.Errorf("Type() = %v, want leaf", p.Type())
	}
	p.SetIsRoot(true)
	if !p.IsRoot() {
		t.Error("IsRoot() = false after SetIsRoot(true)")
	}
	p.SetIsRoot(false)
	if p.IsRoot() {
		t.Error("IsRoot() = true after SetIsRoot(false)")
	}
}

func TestPageChecksumStampAndVerify(t *testing.T) {
	p := newPage(2)
	p.SetType(PageTypeLeaf)
	asLeaf(p).initialize()
	for i := leafHeaderSize; i < PageSize-100; i++ {
		p.buf[i] = byte(i)
	}

	p.stampChecksum()
	ok, stored, computed := p.verifyChecksum()
	if !ok {
		t.Errorf("verifyChecksum() = false, stored=%x computed=%x", stored, computed)
	}

	p.buf[100] ^= 0xFF
	if ok, _, _ := p.verifyChecksum(); ok {
		t.Error("verifyChecksum() = true after corrupting a byte, want false")
	}
}

func TestPageChecksumZeroIsTriviallyValid(t *testing.T) {
	p := newPage(3)
	ok, _, _ := p.verifyChecksum()
	if !ok {
		t.Error("a freshly allocated page with a zero checksum should verify as valid")
	}
}

func TestFreePageNextPointer(t *testing.T) {
	p := newPage(5)
	p.SetType(PageTypeFree)
	p.setFreeNext(42)
	if got := p.freeNext(); got != 42 {
		t.Errorf("freeNext() = %d, want 42", got)
	}
}

func TestDBHeaderRoundTrip(t *testing.T) {
	h := dbHeader{Magic: DBMagic, PageSize: PageSize, TotalPages: 10, FreePages: 2, FirstFreePage: 9}
	buf := make([]byte, dbHeaderSize)
	writeDBHeader(buf, h)
	got := readDBHeader(buf)
	if got != h {
		t.Errorf("dbHeader round trip: got %+v want %+v", got, h)
	}
}

func TestLayoutConstants(t *testing.T) {
	if LeafUsableSpace != 4078 {
		t.Errorf("LeafUsableSpace = %d, want 4078", LeafUsableSpace)
	}
	if InternalMaxCells != 510 {
		t.Errorf("InternalMaxCells = %d, want 510", InternalMaxCells)
	}
	if InternalMinKeys != 255 {
		t.Errorf("InternalMinKeys = %d, want 255", InternalMinKeys)
	}
	if BloomBits != 32608 {
		t.Errorf("BloomBits = %d, want 32608", BloomBits)
	}
}
