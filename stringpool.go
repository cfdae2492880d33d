/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import "math"

// StringPool is the intrusive, separate-chaining hash set of interned
// strings described in the design: one SlabPool[stringObject] under the
// Alt (stable-pointer) scheme backs every string object, so a bucket can
// hold a compact PoolPtr to its chain head and every string object's
// own `next` field is a PoolPtr into the same pool. The bucket array
// itself is kept as a plain Go slice rather than a region carved from
// the slab pool: Go's slice already grows/shrinks safely on its own,
// and nothing besides the pool ever addresses a bucket, so there is no
// stable-pointer requirement to satisfy for it the way there is for the
// string objects the buckets point into.
type StringPool struct {
	objects *SlabPool[stringObject]
	buckets []PoolPtr
	items   int

	startingBuckets int
	growthFactor    float64
	maxLoadFactor   float64
	hasher          Hasher
	powerOfTwo      bool
}

// StringPoolOption configures a StringPool at construction time, taking
// the place of the teacher's mutable package-level settings vars so a
// pool's knobs never leak to a sibling document (see DESIGN.md).
type StringPoolOption func(*StringPool)

func WithHasher(h Hasher) StringPoolOption {
	return func(p *StringPool) { p.hasher = h }
}

func WithPowerOfTwoBuckets(enabled bool) StringPoolOption {
	return func(p *StringPool) { p.powerOfTwo = enabled }
}

func WithStartingBucketCount(n int) StringPoolOption {
	return func(p *StringPool) { p.startingBuckets = n }
}

func WithGrowthFactor(f float64) StringPoolOption {
	return func(p *StringPool) { p.growthFactor = f }
}

func WithMaxLoadFactor(f float64) StringPoolOption {
	return func(p *StringPool) { p.maxLoadFactor = f }
}

// NewStringPool builds an empty pool backed by base. base is typically
// also lent to the document's object pool so both report coherent
// instrumentation (§4.H).
func NewStringPool(base Allocator, opts ...StringPoolOption) *StringPool {
	p := &StringPool{
		objects:         newSlabPool[stringObject](base, DefaultStringChunkSize/32, 32, true),
		startingBuckets: DefaultStartingBucketCount,
		growthFactor:    DefaultGrowthFactor,
		maxLoadFactor:   DefaultMaxLoadFactor,
		hasher:          DefaultHasher,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.startingBuckets <= 1 {
		p.startingBuckets = DefaultStartingBucketCount
	}
	return p
}

// StringRef is a resolved reference to one interned string, handed back
// by Provide/Get. It stays valid for the lifetime of the pool (or until
// the referenced string is released by ReleaseValues/Clear/ReleaseAll).
type StringRef struct {
	pool *StringPool
	ptr  PoolPtr
}

func (r StringRef) IsNull() bool { return r.pool == nil || r.ptr.IsNull() }

func (r StringRef) object() *stringObject {
	return r.pool.objects.Resolve(r.ptr, 1).At(0)
}

func (r StringRef) Bytes() []byte { return r.object().Bytes() }
func (r StringRef) Length() int   { return r.object().Length() }
func (r StringRef) IsKey() bool   { return r.object().IsKey() }
func (r StringRef) Owns() bool    { return r.object().Owns() }
func (r StringRef) Ptr() PoolPtr  { return r.ptr }

func (p *StringPool) bucketIndex(h uint32) int {
	return fastMod(h, len(p.buckets), p.powerOfTwo)
}

// Provide interns bytes, returning the existing entry (with keyFlag
// merged in) if already present, or creating a new one. own controls
// whether the pool takes a private copy of bytes or borrows it as-is.
func (p *StringPool) Provide(b []byte, own bool, keyFlag bool) (StringRef, bool, error) {
	if err := p.maybeRehash(); err != nil {
		return StringRef{}, false, err
	}
	if len(p.buckets) == 0 {
		if err := p.rehash(p.startingBuckets); err != nil {
			return StringRef{}, false, err
		}
	}

	h := p.hasher(b)
	idx := p.bucketIndex(h)

	prev := NullPoolPtr
	cur := p.buckets[idx]
	for !cur.IsNull() {
		region := p.objects.Resolve(cur, 1)
		obj := region.At(0)
		switch obj.compare(b) {
		case 0:
			if keyFlag {
				obj.MarkKey()
			}
			return StringRef{pool: p, ptr: cur}, true, nil
		case 1:
			return p.insertBefore(idx, prev, cur, b, own, keyFlag)
		}
		prev = cur
		cur = obj.Next()
	}
	return p.insertBefore(idx, prev, NullPoolPtr, b, own, keyFlag)
}

func (p *StringPool) insertBefore(bucket int, prev, before PoolPtr, b []byte, own, keyFlag bool) (StringRef, bool, error) {
	region, err := p.objects.Allocate(1)
	if err != nil {
		return StringRef{}, false, err
	}
	var obj stringObject
	if own {
		obj = newOwnedString(b)
	} else {
		obj = newBorrowedString(b)
	}
	obj.key = keyFlag
	obj.next = before
	*region.At(0) = obj

	newPtr := p.objects.ToPoolPtr(region)
	if prev.IsNull() {
		p.buckets[bucket] = newPtr
	} else {
		p.objects.Resolve(prev, 1).At(0).SetNext(newPtr)
	}
	p.items++
	return StringRef{pool: p, ptr: newPtr}, false, nil
}

// Get is the read-only counterpart of Provide: no insertion, no key-flag
// update.
func (p *StringPool) Get(b []byte) (StringRef, bool) {
	if len(p.buckets) == 0 {
		return StringRef{}, false
	}
	h := p.hasher(b)
	idx := p.bucketIndex(h)
	cur := p.buckets[idx]
	for !cur.IsNull() {
		obj := p.objects.Resolve(cur, 1).At(0)
		switch obj.compare(b) {
		case 0:
			return StringRef{pool: p, ptr: cur}, true
		case 1:
			return StringRef{}, false
		}
		cur = obj.Next()
	}
	return StringRef{}, false
}

// ReleaseValues walks every chain, unlinking and deallocating strings
// whose key flag is false; key-used strings are retained. Used between
// documents sharing one pool to drop value strings while keeping the
// key vocabulary interned.
func (p *StringPool) ReleaseValues() {
	for i, head := range p.buckets {
		prev := NullPoolPtr
		cur := head
		for !cur.IsNull() {
			region := p.objects.Resolve(cur, 1)
			obj := region.At(0)
			next := obj.Next()
			if obj.IsKey() {
				prev = cur
				cur = next
				continue
			}
			if prev.IsNull() {
				p.buckets[i] = next
			} else {
				p.objects.Resolve(prev, 1).At(0).SetNext(next)
			}
			p.objects.Deallocate(region)
			p.items--
			cur = next
		}
	}
}

// Clear drops every string and the bucket array but keeps the
// underlying allocator chunks for reuse.
func (p *StringPool) Clear() {
	for _, head := range p.buckets {
		cur := head
		for !cur.IsNull() {
			region := p.objects.Resolve(cur, 1)
			next := region.At(0).Next()
			p.objects.Deallocate(region)
			cur = next
		}
	}
	p.buckets = nil
	p.items = 0
}

// ReleaseAll drops every string, the bucket array, and the underlying
// chunks.
func (p *StringPool) ReleaseAll() {
	p.buckets = nil
	p.items = 0
	p.objects = newSlabPool[stringObject](p.objects.base, p.objects.chunkElems, p.objects.elemSize, true)
}

// Shrink frees the pool's chunks once all of them are empty. If
// rehashOpt is set and the bucket array is oversized relative to the
// item count, it is first rehashed down to ceil(items/maxLoadFactor)
// buckets, but never below the starting bucket count.
func (p *StringPool) Shrink(rehashOpt bool) error {
	if rehashOpt && p.items > 0 {
		target := int(math.Ceil(float64(p.items) / p.maxLoadFactor))
		if target < p.startingBuckets {
			target = p.startingBuckets
		}
		if target < len(p.buckets) {
			if err := p.rehash(target); err != nil {
				return err
			}
		}
	}
	p.objects.Shrink()
	return nil
}

func (p *StringPool) maybeRehash() error {
	if len(p.buckets) == 0 {
		return nil
	}
	if float64(p.items+1)/float64(len(p.buckets)) <= p.maxLoadFactor {
		return nil
	}
	next := int(math.Ceil(float64(len(p.buckets)) * p.growthFactor))
	return p.rehash(next)
}

// rehash re-homes every live string into a freshly sized bucket array,
// preserving each chain's (length, lexicographic) order.
func (p *StringPool) rehash(newBucketCount int) error {
	if newBucketCount < 2 {
		newBucketCount = 2
	}
	if p.powerOfTwo {
		newBucketCount = nextPowerOfTwo(newBucketCount)
	}
	oldBuckets := p.buckets
	p.buckets = make([]PoolPtr, newBucketCount)
	for i := range p.buckets {
		p.buckets[i] = NullPoolPtr
	}

	for _, head := range oldBuckets {
		cur := head
		for !cur.IsNull() {
			obj := p.objects.Resolve(cur, 1).At(0)
			next := obj.Next()
			p.rehashInsert(cur, obj)
			cur = next
		}
	}
	return nil
}

func (p *StringPool) rehashInsert(ptr PoolPtr, obj *stringObject) {
	idx := p.bucketIndex(p.hasher(obj.Bytes()))
	prev := NullPoolPtr
	cur := p.buckets[idx]
	for !cur.IsNull() {
		other := p.objects.Resolve(cur, 1).At(0)
		if other.compare(obj.Bytes()) == 1 {
			break
		}
		prev = cur
		cur = other.Next()
	}
	obj.SetNext(cur)
	if prev.IsNull() {
		p.buckets[idx] = ptr
	} else {
		p.objects.Resolve(prev, 1).At(0).SetNext(ptr)
	}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
