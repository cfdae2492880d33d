/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

// SlabPool is the shared engine behind both pointer policies described
// in the design: a fixed-size chunk pool with a per-chunk dead-cell
// freelist and a fallback list for requests too large to fit a chunk.
// The document's object allocator and the string pool both use it
// directly; the stablePointer flag selects the Alt scheme's compact
// PoolPtr handles for the string pool — the Go analogue of
// "two allocator implementations parameterized by a pointer policy"
// (compare the teacher's generic slice helpers in slice_utils.go, which
// use the same one-implementation-many-instantiations shape).
//
// Unlike the C++ original, dead cells are not overlaid onto the freed
// element storage itself (that trick exists there purely to avoid extra
// metadata allocation in a non-GC'd language); here they are ordinary Go
// values kept alongside each chunk, which is both simpler and safe
// without unsafe aliasing.
type SlabPool[T any] struct {
	base          Allocator
	chunkElems    int
	elemSize      int
	chunks        []*poolChunk[T]
	lastUsed      int
	fallback      []fallbackRecord[T]
	fallbackLive  int
	stablePointer bool // true for the string pool's Alt scheme
}

const noDead = -1

type poolChunk[T any] struct {
	data       []T
	firstAvail int
	dead       []deadCell
	firstDead  int // index into dead, or noDead
	totalDead  int
	baseBytes  []byte // kept only so it can be returned to the base allocator on Shrink
}

type deadCell struct {
	offset int
	size   int
	next   int // index into the owning chunk's dead slice, or noDead
}

type fallbackRecord[T any] struct {
	data      []T
	baseBytes []byte
	removed   bool // Alt scheme: placeholder left behind to keep ordinal indices stable
}

// Region is a resolved allocation: either a slice into a chunk's
// backing array, or a fallback record. It is the "nominal" pointer: a
// direct, already-resolved handle that never needs a search to
// dereference or free.
type Region[T any] struct {
	pool    *SlabPool[T]
	chunk   *poolChunk[T]
	fbIndex int
	offset  int
	size    int
	isNull  bool
}

func (r Region[T]) IsNull() bool { return r.isNull }

func (r Region[T]) Slice() []T {
	if r.isNull || r.pool == nil {
		return nil
	}
	if r.chunk != nil {
		return r.chunk.data[r.offset : r.offset+r.size]
	}
	return r.pool.fallback[r.fbIndex].data
}

func (r Region[T]) Len() int { return r.size }

// At returns a pointer to the i'th element of the region, for callers
// that need to mutate an allocated record in place (the string pool's
// chain-link and key-flag updates, in particular).
func (r Region[T]) At(i int) *T {
	if r.chunk != nil {
		return &r.chunk.data[r.offset+i]
	}
	return &r.pool.fallback[r.fbIndex].data[i]
}

// PoolPtr is the Alt scheme's compact pointer: {chunkIndex, offset}.
// chunkIndex 0xFFFF means null; 0xFFFE means "fallback list, offset is
// the ordinal position from the head". Chunk indices are assigned once
// on append and never reassigned, so a PoolPtr stays valid across every
// later growth (and across shrink, which under the Alt scheme is
// all-or-nothing for exactly this reason).
type PoolPtr struct {
	ChunkIndex uint16
	Offset     uint32
}

const (
	poolPtrNullChunk     = 0xFFFF
	poolPtrFallbackChunk = 0xFFFE
)

var NullPoolPtr = PoolPtr{ChunkIndex: poolPtrNullChunk}

func (p PoolPtr) IsNull() bool { return p.ChunkIndex == poolPtrNullChunk }

func newSlabPool[T any](base Allocator, chunkElems int, elemSize int, stablePointer bool) *SlabPool[T] {
	return &SlabPool[T]{
		base:          base,
		chunkElems:    chunkElems,
		elemSize:      elemSize,
		stablePointer: stablePointer,
	}
}

func nullRegion[T any](p *SlabPool[T]) Region[T] {
	return Region[T]{pool: p, isNull: true}
}

// Allocate returns a region of n live elements, zero-valued.
func (p *SlabPool[T]) Allocate(n int) (Region[T], error) {
	if n <= 0 {
		return nullRegion(p), nil
	}
	if p.chunkElems <= 0 || n > p.chunkElems {
		return p.allocateFallback(n)
	}

	if r, ok := p.allocateFromChunk(p.lastUsedChunk(), n, true); ok {
		return r, nil
	}
	if r, ok := p.allocateFromDead(p.lastUsedChunk(), n); ok {
		return r, nil
	}
	for i, c := range p.chunks {
		if i == p.lastUsed {
			continue
		}
		if r, ok := p.allocateFromChunk(c, n, false); ok {
			p.lastUsed = i
			return r, nil
		}
	}
	for i, c := range p.chunks {
		if i == p.lastUsed {
			continue
		}
		if c.totalDead < n {
			continue
		}
		if r, ok := p.allocateFromDead(c, n); ok {
			return r, nil
		}
	}

	return p.growAndAllocate(n)
}

func (p *SlabPool[T]) lastUsedChunk() *poolChunk[T] {
	if p.lastUsed < 0 || p.lastUsed >= len(p.chunks) {
		return nil
	}
	return p.chunks[p.lastUsed]
}

func (p *SlabPool[T]) allocateFromChunk(c *poolChunk[T], n int, isLastUsed bool) (Region[T], bool) {
	if c == nil {
		return Region[T]{}, false
	}
	if c.firstAvail+n > len(c.data) {
		return Region[T]{}, false
	}
	offset := c.firstAvail
	c.firstAvail += n
	_ = isLastUsed
	return Region[T]{pool: p, chunk: c, offset: offset, size: n}, true
}

// allocateFromDead applies the match policy from the design: an exact
// fit unsplices the cell; a cell at least 2x the request splits from
// its tail; otherwise the smallest qualifying cell across the whole
// chain is used (also split from its tail), found by scanning to the
// end before committing.
func (p *SlabPool[T]) allocateFromDead(c *poolChunk[T], n int) (Region[T], bool) {
	if c == nil || c.totalDead < n {
		return Region[T]{}, false
	}

	prev := noDead
	best := noDead
	bestPrev := noDead
	cur := c.firstDead
	for cur != noDead {
		cell := &c.dead[cur]
		switch {
		case cell.size == n:
			offset := cell.offset
			p.unlinkDead(c, prev, cur)
			c.totalDead -= n
			return Region[T]{pool: p, chunk: c, offset: offset, size: n}, true
		case cell.size >= 2*n:
			offset := cell.offset + cell.size - n
			cell.size -= n
			c.totalDead -= n
			return Region[T]{pool: p, chunk: c, offset: offset, size: n}, true
		case cell.size > n && (best == noDead || cell.size < c.dead[best].size):
			best = cur
			bestPrev = prev
		}
		prev = cur
		cur = cell.next
	}

	if best != noDead {
		cell := &c.dead[best]
		offset := cell.offset + cell.size - n
		cell.size -= n
		c.totalDead -= n
		if cell.size == 0 {
			p.unlinkDead(c, bestPrev, best)
		}
		return Region[T]{pool: p, chunk: c, offset: offset, size: n}, true
	}
	return Region[T]{}, false
}

func (p *SlabPool[T]) unlinkDead(c *poolChunk[T], prev, idx int) {
	next := c.dead[idx].next
	if prev == noDead {
		c.firstDead = next
	} else {
		c.dead[prev].next = next
	}
}

func (p *SlabPool[T]) pushDead(c *poolChunk[T], offset, size int) {
	c.dead = append(c.dead, deadCell{offset: offset, size: size, next: c.firstDead})
	c.firstDead = len(c.dead) - 1
	c.totalDead += size
}

func (p *SlabPool[T]) growAndAllocate(n int) (Region[T], error) {
	b, err := p.base.Allocate(p.chunkElems * p.elemSize)
	if err != nil {
		return Region[T]{}, err
	}
	c := &poolChunk[T]{data: make([]T, p.chunkElems), firstDead: noDead, baseBytes: b}
	p.chunks = append(p.chunks, c)
	p.lastUsed = len(p.chunks) - 1
	r, ok := p.allocateFromChunk(c, n, true)
	if !ok {
		return Region[T]{}, NewAllocationError(n*p.elemSize, nil)
	}
	return r, nil
}

func (p *SlabPool[T]) allocateFallback(n int) (Region[T], error) {
	b, err := p.base.Allocate(n * p.elemSize)
	if err != nil {
		return Region[T]{}, err
	}
	p.fallback = append(p.fallback, fallbackRecord[T]{data: make([]T, n), baseBytes: b})
	p.fallbackLive++
	return Region[T]{pool: p, chunk: nil, fbIndex: len(p.fallback) - 1, size: n}, nil
}

// Deallocate returns a region to the pool. If the region sits at its
// chunk's live tail, the chunk shrinks in place (or resets entirely if
// it was the chunk's only live content); otherwise a dead cell is
// pushed onto that chunk's freelist.
func (p *SlabPool[T]) Deallocate(r Region[T]) {
	if r.isNull || r.size == 0 {
		return
	}
	if r.chunk == nil {
		p.deallocateFallback(r)
		return
	}
	c := r.chunk
	clear(c.data[r.offset : r.offset+r.size])

	atTail := r.offset+r.size == c.firstAvail
	if atTail && r.offset == 0 && c.totalDead == 0 {
		c.firstAvail = 0
		c.dead = c.dead[:0]
		c.firstDead = noDead
		if p.lastUsedChunk() != c {
			return
		}
		for i, sib := range p.chunks {
			if sib != c && sib.firstAvail < len(sib.data) {
				p.lastUsed = i
				return
			}
		}
		return
	}
	if atTail {
		c.firstAvail = r.offset
		return
	}
	p.pushDead(c, r.offset, r.size)
}

func (p *SlabPool[T]) deallocateFallback(r Region[T]) {
	rec := &p.fallback[r.fbIndex]
	clear(rec.data)
	p.base.Deallocate(rec.baseBytes)
	if p.stablePointer {
		// Alt scheme: keep the slot so ordinal indices of the other
		// fallback entries stay stable; mark it removed instead of
		// compacting the slice.
		rec.removed = true
		rec.data = nil
		rec.baseBytes = nil
	} else {
		p.fallback[r.fbIndex] = fallbackRecord[T]{}
	}
	p.fallbackLive--
}

// Realloc succeeds only if the region is exactly at the live tail of
// its chunk and the growth fits without crossing the chunk boundary —
// a pure bump-forward, matching the design's in-place realloc contract.
func (p *SlabPool[T]) Realloc(r Region[T], newSize int) (Region[T], bool) {
	if r.isNull || r.chunk == nil {
		return Region[T]{}, false
	}
	c := r.chunk
	if r.offset+r.size != c.firstAvail {
		return Region[T]{}, false
	}
	grow := newSize - r.size
	if grow <= 0 {
		if grow < 0 {
			clear(c.data[r.offset+newSize : r.offset+r.size])
			c.firstAvail = r.offset + newSize
		}
		return Region[T]{pool: p, chunk: c, offset: r.offset, size: newSize}, true
	}
	if c.firstAvail+grow > len(c.data) {
		return Region[T]{}, false
	}
	c.firstAvail += grow
	return Region[T]{pool: p, chunk: c, offset: r.offset, size: newSize}, true
}

func (p *SlabPool[T]) chunkable(n int) bool {
	return p.chunkElems > 0 && n <= p.chunkElems
}

// Shrink frees empty chunks. Under the stable-pointer (Alt) policy this
// is all-or-nothing: chunk indices must stay valid for any PoolPtr
// still referencing them, so shrink only proceeds if every chunk is
// simultaneously empty.
func (p *SlabPool[T]) Shrink() {
	if p.stablePointer {
		for _, c := range p.chunks {
			if c.firstAvail != 0 {
				return
			}
		}
		if len(p.chunks) > 0 {
			for _, c := range p.chunks {
				p.base.Deallocate(c.baseBytes)
			}
			p.chunks = nil
			p.lastUsed = 0
		}
		return
	}

	kept := p.chunks[:0]
	for _, c := range p.chunks {
		if c.firstAvail == 0 {
			p.base.Deallocate(c.baseBytes)
			continue
		}
		kept = append(kept, c)
	}
	p.chunks = kept
	if len(p.chunks) == 0 {
		p.chunks = nil
	}
	p.lastUsed = 0
}

// ToPoolPtr converts a region into its compact pointer form. Only valid
// for pools constructed with stablePointer=true; chunk indices are
// taken directly from the chunk's position, which never changes once
// assigned.
func (p *SlabPool[T]) ToPoolPtr(r Region[T]) PoolPtr {
	if r.isNull {
		return NullPoolPtr
	}
	if r.chunk == nil {
		return PoolPtr{ChunkIndex: poolPtrFallbackChunk, Offset: uint32(r.fbIndex)}
	}
	for i, c := range p.chunks {
		if c == r.chunk {
			return PoolPtr{ChunkIndex: uint16(i), Offset: uint32(r.offset)}
		}
	}
	return NullPoolPtr
}

func (p *SlabPool[T]) Resolve(ptr PoolPtr, size int) Region[T] {
	if ptr.IsNull() {
		return nullRegion(p)
	}
	if ptr.ChunkIndex == poolPtrFallbackChunk {
		return Region[T]{pool: p, fbIndex: int(ptr.Offset), size: size}
	}
	c := p.chunks[ptr.ChunkIndex]
	return Region[T]{pool: p, chunk: c, offset: int(ptr.Offset), size: size}
}
