package storage

// Package storage - Pager component
//
// EDUCATIONAL NOTES:
// ------------------
// The Pager owns the single database file, the decoded header
// (page 0), and a fixed-capacity buffer pool of in-memory page
// frames. It is the only piece of the engine that touches the
// filesystem: the B+Tree and Bloom filter only ever see *page values
// handed to them by GetPage.
//
// The buffer pool here is deliberately the textbook LRU-with-pinning
// design: container/list gives us the same doubly-linked MRU/LRU
// order the reference implementation keeps in a std::list<uint32_t>,
// with a page-number -> *list.Element map for O(1) promotion.
//
// In production databases, the pager would also handle:
// - Write-ahead logging (WAL) for crash recovery
// - Background flushing of dirty pages
// - Concurrent access from multiple writers
// all explicitly out of scope here (single-writer, synchronous).

import (
	"container/list"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Option configures a Pager at construction time.
type Option func(*Pager)

// WithMaxCacheSize overrides the default BufferPoolSize frame count.
func WithMaxCacheSize(n int) Option {
	return func(p *Pager) { p.maxFrames = n }
}

// WithLogger attaches a *zap.Logger the pager uses for CRC-mismatch
// warnings, pool-exhaustion errors, and eviction tracing. Defaults to
// zap.NewNop() so a Pager is usable without any logging setup.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pager) { p.log = l }
}

// PoolStats mirrors the reference pager's print_pool_stats report.
type PoolStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Frames    int
	MaxFrames int
}

// Pager manages the database file: header, free list, and a bounded
// in-memory cache of page frames with LRU eviction and pin counting.
type Pager struct {
	file     *os.File
	filePath string
	log      *zap.Logger

	header dbHeader

	maxFrames int
	frames    map[uint32]*page
	pinCount  map[uint32]int
	order     *list.List // MRU at Front, LRU at Back
	elems     map[uint32]*list.Element

	fileSizePages uint32 // pages known to exist on disk

	hits, misses, evictions uint64
}

// NewPager opens (or creates) the database file at filePath and
// establishes the header page and buffer pool.
func NewPager(filePath string, opts ...Option) (*Pager, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open database file: %w", err)
	}

	p := &Pager{
		file:      file,
		filePath:  filePath,
		log:       zap.NewNop(),
		maxFrames: BufferPoolSize,
		frames:    make(map[uint32]*page),
		pinCount:  make(map[uint32]int),
		order:     list.New(),
		elems:     make(map[uint32]*list.Element),
	}
	for _, opt := range opts {
		opt(p)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("storage: stat database file: %w", err)
	}
	p.fileSizePages = uint32(stat.Size() / PageSize)

	if p.fileSizePages == 0 {
		p.header = dbHeader{Magic: DBMagic, PageSize: PageSize, TotalPages: 1, FreePages: 0, FirstFreePage: 0}
		hdr := newPage(HeaderPageNum)
		writeDBHeader(hdr.buf[:], p.header)
		p.frames[HeaderPageNum] = hdr
		p.pin(HeaderPageNum)
		p.touch(HeaderPageNum)
		if err := p.flush(HeaderPageNum); err != nil {
			file.Close()
			return nil, err
		}
		return p, nil
	}

	hdr := newPage(HeaderPageNum)
	if _, err := file.ReadAt(hdr.buf[:], 0); err != nil {
		file.Close()
		return nil, fmt.Errorf("storage: read header page: %w", err)
	}
	p.header = readDBHeader(hdr.buf[:])
	if p.header.Magic != DBMagic {
		file.Close()
		return nil, fmt.Errorf("%w: got 0x%X want 0x%X (delete the file to start fresh)", ErrMagicMismatch, p.header.Magic, DBMagic)
	}
	p.frames[HeaderPageNum] = hdr
	p.pin(HeaderPageNum)
	p.touch(HeaderPageNum)

	return p, nil
}

// Header returns a copy of the current decoded file header.
func (p *Pager) Header() dbHeader { return p.header }

// BloomBytes returns a mutable view onto the Bloom filter's backing
// bytes within the in-memory header frame.
func (p *Pager) BloomBytes() []byte {
	hdr := p.frames[HeaderPageNum]
	return hdr.buf[BloomOffset : BloomOffset+BloomSize]
}

// writeHeader copies the in-memory header struct into the header
// frame's first dbHeaderSize bytes.
func (p *Pager) writeHeader() {
	hdr := p.frames[HeaderPageNum]
	writeDBHeader(hdr.buf[:], p.header)
}

// touch promotes pageNum to MRU, inserting it into the order list if
// it isn't already tracked.
func (p *Pager) touch(pageNum uint32) {
	if el, ok := p.elems[pageNum]; ok {
		p.order.MoveToFront(el)
		return
	}
	p.elems[pageNum] = p.order.PushFront(pageNum)
}

func (p *Pager) untrack(pageNum uint32) {
	if el, ok := p.elems[pageNum]; ok {
		p.order.Remove(el)
		delete(p.elems, pageNum)
	}
}

// GetPage returns a mutable frame for pageNum, promoting it to MRU.
// On a cache miss it evicts an unpinned LRU frame if the pool is
// full, then loads pageNum from disk (or hands back a zeroed frame
// for a page beyond the known file length), verifying the CRC for
// LEAF/INTERNAL pages.
func (p *Pager) GetPage(pageNum uint32) (*page, error) {
	if pg, ok := p.frames[pageNum]; ok {
		p.hits++
		p.touch(pageNum)
		return pg, nil
	}
	p.misses++

	if len(p.frames) >= p.maxFrames {
		if err := p.evictLRU(); err != nil {
			return nil, err
		}
	}

	pg := newPage(pageNum)
	if pageNum < p.fileSizePages {
		if _, err := p.file.ReadAt(pg.buf[:], int64(pageNum)*PageSize); err != nil {
			return nil, fmt.Errorf("storage: read page %d: %w", pageNum, err)
		}
		if pg.Type() == PageTypeLeaf || pg.Type() == PageTypeInternal {
			if ok, stored, computed := pg.verifyChecksum(); !ok {
				err := &CRCMismatchError{Page: pageNum, Stored: stored, Computed: computed}
				p.log.Warn("crc mismatch on page load", zap.Error(err))
			}
		}
	}

	p.frames[pageNum] = pg
	p.touch(pageNum)
	return pg, nil
}

// flush writes a cached frame to disk, stamping a fresh CRC32 first
// for LEAF/INTERNAL pages. It extends fileSizePages if this write
// grows the tracked file length. A no-op if the page isn't cached.
func (p *Pager) flush(pageNum uint32) error {
	pg, ok := p.frames[pageNum]
	if !ok {
		return nil
	}
	if pg.Type() == PageTypeLeaf || pg.Type() == PageTypeInternal {
		pg.stampChecksum()
	}
	if _, err := p.file.WriteAt(pg.buf[:], int64(pageNum)*PageSize); err != nil {
		return fmt.Errorf("storage: write page %d: %w", pageNum, err)
	}
	if pageNum+1 > p.fileSizePages {
		p.fileSizePages = pageNum + 1
	}
	return nil
}

// Flush exposes flush for callers (engine-level Sync/Close paths).
func (p *Pager) Flush(pageNum uint32) error { return p.flush(pageNum) }

// pin increments pageNum's pin count, preventing its eviction.
func (p *Pager) pin(pageNum uint32) { p.pinCount[pageNum]++ }

// Pin is the exported form used by callers outside this package (the
// B+Tree pins every page it holds across a multi-page operation).
func (p *Pager) Pin(pageNum uint32) { p.pin(pageNum) }

// Unpin decrements pageNum's pin count.
func (p *Pager) Unpin(pageNum uint32) {
	if p.pinCount[pageNum] > 0 {
		p.pinCount[pageNum]--
	}
}

// IsPinned reports whether pageNum currently has a non-zero pin count.
func (p *Pager) IsPinned(pageNum uint32) bool { return p.pinCount[pageNum] > 0 }

// evictLRU walks from the LRU end toward MRU and evicts the first
// unpinned frame (flushing it first). Returns ErrPoolExhausted if
// every frame is pinned.
func (p *Pager) evictLRU() error {
	for el := p.order.Back(); el != nil; el = el.Prev() {
		pageNum := el.Value.(uint32)
		if p.IsPinned(pageNum) {
			continue
		}
		if err := p.flush(pageNum); err != nil {
			return err
		}
		delete(p.frames, pageNum)
		p.order.Remove(el)
		delete(p.elems, pageNum)
		p.evictions++
		p.log.Debug("evicted page", zap.Uint32("page", pageNum))
		return nil
	}
	p.log.Error("buffer pool exhausted: all frames pinned")
	return ErrPoolExhausted
}

// AllocatePage returns a fresh zeroed page number: the free-list head
// if non-empty, else a new page appended past total_pages.
func (p *Pager) AllocatePage() (uint32, error) {
	if p.header.FirstFreePage != 0 {
		freeNum := p.header.FirstFreePage
		freePg, err := p.GetPage(freeNum)
		if err != nil {
			return 0, err
		}
		p.header.FirstFreePage = freePg.freeNext()
		p.header.FreePages--
		for i := range freePg.buf {
			freePg.buf[i] = 0
		}
		p.writeHeader()
		return freeNum, nil
	}

	num := p.header.TotalPages
	p.header.TotalPages++
	p.writeHeader()
	return num, nil
}

// FreePage returns pageNum to the free list. Refuses to free the
// header page or the root page.
func (p *Pager) FreePage(pageNum uint32) error {
	if pageNum <= RootPageNum {
		return ErrFreePageProtected
	}
	pg, err := p.GetPage(pageNum)
	if err != nil {
		return err
	}
	for i := range pg.buf {
		pg.buf[i] = 0
	}
	pg.SetType(PageTypeFree)
	pg.setFreeNext(p.header.FirstFreePage)
	p.header.FirstFreePage = pageNum
	p.header.FreePages++
	p.writeHeader()
	return nil
}

// FreeListPages walks the free list and returns every page number on
// it, head first, for diagnostic printing.
func (p *Pager) FreeListPages() ([]uint32, error) {
	var out []uint32
	cur := p.header.FirstFreePage
	for cur != 0 {
		out = append(out, cur)
		pg, err := p.GetPage(cur)
		if err != nil {
			return nil, err
		}
		cur = pg.freeNext()
	}
	return out, nil
}

// Stats returns hit/miss/eviction counters plus current/max frame
// occupancy.
func (p *Pager) Stats() PoolStats {
	return PoolStats{
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evictions,
		Frames:    len(p.frames),
		MaxFrames: p.maxFrames,
	}
}

// Close persists the header, flushes every cached frame, and closes
// the file.
func (p *Pager) Close() error {
	p.writeHeader()
	if err := p.flush(HeaderPageNum); err != nil {
		return err
	}
	for pageNum := range p.frames {
		if pageNum == HeaderPageNum {
			continue
		}
		if err := p.flush(pageNum); err != nil {
			return err
		}
	}
	return p.file.Close()
}
