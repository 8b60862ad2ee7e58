package storage

// Package storage - Bloom filter accelerator
//
// EDUCATIONAL NOTES:
// ------------------
// The filter lives inside the header page rather than its own page:
// bytes 20..4095 of page 0 (4076 bytes, 32608 bits). It never
// allocates its own buffer; it is handed a slice view onto the header
// frame's bytes so that pager flush/read of page 0 persists it for
// free. Three independent multiplicative hashes decide which three
// bits to set per key. `remove` never clears bits — see BloomStats
// and BTree.RebuildBloom for the staleness story.

// bloomFilter is a thin view over the Bloom bit-array embedded in the
// header page. It does not own the memory: bits is a slice into the
// pager's in-memory header frame.
type bloomFilter struct {
	bits []byte // len(bits) == BloomSize
}

func newBloomFilter(bits []byte) *bloomFilter {
	if len(bits) != BloomSize {
		panic("storage: bloom filter backing slice has wrong length")
	}
	return &bloomFilter{bits: bits}
}

// bloomHashes returns the three bit indices a key maps to.
func bloomHashes(key uint32) [3]uint32 {
	h1 := key * 2654435761
	h2 := key * 0x85ebca6b
	k := key ^ (key >> 16)
	h3 := k * 0xcc9e2d51
	return [3]uint32{
		h1 % BloomBits,
		h2 % BloomBits,
		h3 % BloomBits,
	}
}

func (b *bloomFilter) setBit(idx uint32) {
	b.bits[idx/8] |= 1 << (idx % 8)
}

func (b *bloomFilter) testBit(idx uint32) bool {
	return b.bits[idx/8]&(1<<(idx%8)) != 0
}

// add sets the three bits a key maps to. Additive only: never cleared
// by Remove.
func (b *bloomFilter) add(key uint32) {
	for _, idx := range bloomHashes(key) {
		b.setBit(idx)
	}
}

// possiblyContains reports whether key might be present. false is a
// definite negative; true requires verification against the tree.
func (b *bloomFilter) possiblyContains(key uint32) bool {
	for _, idx := range bloomHashes(key) {
		if !b.testBit(idx) {
			return false
		}
	}
	return true
}

// clear zeroes the entire bit-array, used as the first step of a
// rebuild.
func (b *bloomFilter) clear() {
	for i := range b.bits {
		b.bits[i] = 0
	}
}

// BloomStats mirrors the original ForgeDB implementation's
// print_stats report: bits set, fill ratio, and an estimated false
// positive rate for a 3-hash filter ((setBits/totalBits)^3).
type BloomStats struct {
	BitsSet    uint64
	TotalBits  uint64
	FillRatio  float64
	EstimateFP float64
}

func (b *bloomFilter) stats() BloomStats {
	var set uint64
	for _, byte := range b.bits {
		for i := 0; i < 8; i++ {
			if byte&(1<<i) != 0 {
				set++
			}
		}
	}
	total := uint64(BloomBits)
	fill := float64(set) / float64(total)
	return BloomStats{
		BitsSet:    set,
		TotalBits:  total,
		FillRatio:  fill,
		EstimateFP: fill * fill * fill,
	}
}
