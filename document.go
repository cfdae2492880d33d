/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import "errors"

// objectAllocator bundles the five per-element-type slab pools a
// document's containers are carved from. All five borrow the same base
// allocator so a document's byte instrumentation stays coherent across
// every container kind (§4.H).
type objectAllocator struct {
	base    Allocator
	values  *SlabPool[Value]
	members *SlabPool[Member]
	bools   *SlabPool[bool]
	ints    *SlabPool[int64]
	doubles *SlabPool[float64]
}

func newObjectAllocator(base Allocator, chunkElems int) *objectAllocator {
	return &objectAllocator{
		base:    base,
		values:  newSlabPool[Value](base, chunkElems, 16, false),
		members: newSlabPool[Member](base, chunkElems, 24, false),
		bools:   newSlabPool[bool](base, chunkElems, 1, false),
		ints:    newSlabPool[int64](base, chunkElems, 8, false),
		doubles: newSlabPool[float64](base, chunkElems, 8, false),
	}
}

func (o *objectAllocator) shrink() {
	o.values.Shrink()
	o.members.Shrink()
	o.bools.Shrink()
	o.ints.Shrink()
	o.doubles.Shrink()
}

// Document owns a root value cell, an object allocator, and a reference
// to a string pool it may or may not share with sibling documents.
type Document struct {
	root    Value
	strings *StringPool
	objects *objectAllocator
	allowIntToDouble AllowIntToDouble
}

// DocumentOption configures a Document at construction time.
type DocumentOption func(*documentConfig)

type documentConfig struct {
	base             Allocator
	strings          *StringPool
	objectChunkSize  int
	allowIntToDouble AllowIntToDouble
}

func WithBaseAllocator(a Allocator) DocumentOption {
	return func(c *documentConfig) { c.base = a }
}

// WithSharedStringPool attaches a pool built by MakeSharedStringPool so
// several documents dedupe strings against one set.
func WithSharedStringPool(p *StringPool) DocumentOption {
	return func(c *documentConfig) { c.strings = p }
}

func WithObjectChunkSize(n int) DocumentOption {
	return func(c *documentConfig) { c.objectChunkSize = n }
}

func WithAllowIntToDouble(policy AllowIntToDouble) DocumentOption {
	return func(c *documentConfig) { c.allowIntToDouble = policy }
}

// MakeSharedStringPool builds a string pool independent of any one
// document, so several NewDocument calls can be handed the same pool
// and dedupe strings across the whole session (§4.H).
func MakeSharedStringPool(opts ...StringPoolOption) *StringPool {
	return NewStringPool(NewHeapAllocator(), opts...)
}

func NewDocument(opts ...DocumentOption) *Document {
	cfg := documentConfig{
		objectChunkSize:  DefaultObjectChunkSize,
		allowIntToDouble: PromoteIntToDouble,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.strings == nil {
		base := cfg.base
		if base == nil {
			base = NewHeapAllocator()
		}
		cfg.strings = NewStringPool(base)
	}
	// The object allocator borrows the string pool's base allocator so
	// their instrumentation stays coherent, per §4.H.
	base := cfg.strings.objects.base
	return &Document{
		root:             NewNullValue(),
		strings:          cfg.strings,
		objects:          newObjectAllocator(base, cfg.objectChunkSize),
		allowIntToDouble: cfg.allowIntToDouble,
	}
}

func (d *Document) Root() RefValue  { return RefValue{doc: d, target: &d.root} }
func (d *Document) CRoot() RefValue { return RefValue{doc: d, target: &d.root} }

func (d *Document) MakeHandler() *Handler {
	return newHandler(d, d.allowIntToDouble)
}

// Clear deallocates the root's owned structure and resets it to Null.
// The string pool is left untouched — it may be shared with sibling
// documents via MakeSharedStringPool, so a document's own clear must not
// reach into state it does not exclusively own.
func (d *Document) Clear() {
	d.release(d.root)
	d.root = NewNullValue()
}

func (d *Document) ClearObjects() { d.Clear() }

// ClearStrings releases every non-key string from the document's pool.
// Keys remain interned (the sticky key-used flag gates reclamation, per
// §3 invariant 4), so any Object still in the tree keeps valid key
// references.
func (d *Document) ClearStrings() {
	d.strings.ReleaseValues()
}

// Shrink releases every empty chunk of the object allocator, and the
// string pool's chunks once all of them are empty, and optionally rehashes
// the string pool's bucket array down to its current load first. Unlike
// the source, where the "shrink reaches zero bytes iff empty" guarantee
// is only checked under instrumentation (§9 Open Question 3), this
// always holds: SlabPool.Shrink drops its chunk slice to nil whenever it
// finds every chunk empty, unconditionally.
func (d *Document) Shrink(rehashOpt bool) error {
	d.objects.shrink()
	return d.strings.Shrink(rehashOpt)
}

// release recursively frees a value's owned structure using an explicit
// worklist rather than native call-stack recursion, so a pathologically
// deep tree cannot overflow the goroutine stack (§9 design note).
// Primitive and pooled-string tags never appear on the worklist with
// anything to free — only container kinds own allocator-backed storage.
func (d *Document) release(v Value) {
	if v.cont == nil {
		return
	}
	stack := []Value{v}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := cur.cont
		if c == nil {
			continue
		}
		switch c.kind {
		case TagObject:
			for i := 0; i < c.size; i++ {
				stack = append(stack, c.members.At(i).Value)
			}
			d.objects.members.Deallocate(c.members)
		case TagArray:
			for i := 0; i < c.size; i++ {
				stack = append(stack, *c.values.At(i))
			}
			d.objects.values.Deallocate(c.values)
		case TagBArray:
			d.objects.bools.Deallocate(c.bools)
		case TagIArray:
			d.objects.ints.Deallocate(c.ints)
		case TagDArray:
			d.objects.doubles.Deallocate(c.doubles)
		}
	}
}

// RefValue is the editor cursor: a reborrow of one value cell living
// inside a document. It never outlives the document it was obtained
// from and never owns anything itself (§9 design note on the editor
// reference's two back-references).
type RefValue struct {
	doc    *Document
	target *Value
}

func (r RefValue) Tag() Tag     { return r.target.Tag() }
func (r RefValue) Meta() Meta   { return r.target.Meta() }
func (r RefValue) IsNull() bool { return r.target.IsNull() }

func (r RefValue) Bool() (bool, error)       { return r.target.Bool() }
func (r RefValue) Int64() (int64, error)     { return r.target.Int64() }
func (r RefValue) UInt64() (uint64, error)   { return r.target.UInt64() }
func (r RefValue) Double() (float64, error)  { return r.target.Double() }
func (r RefValue) String() (string, error)   { return r.target.String() }
func (r RefValue) Len() (int, error)         { return r.target.Len() }
func (r RefValue) Capacity() (int, error)    { return r.target.Capacity() }
func (r RefValue) IsBig() (bool, error)      { return r.target.IsBig() }

func (r RefValue) SetNull() {
	r.doc.release(*r.target)
	*r.target = NewNullValue()
}

func (r RefValue) SetBool(b bool) {
	r.doc.release(*r.target)
	*r.target = NewBoolValue(b)
}

func (r RefValue) SetInt64(i int64) {
	r.doc.release(*r.target)
	*r.target = NewInt64Value(i)
}

func (r RefValue) SetUInt64(u uint64) {
	r.doc.release(*r.target)
	*r.target = NewUInt64Value(u)
}

func (r RefValue) SetDouble(f float64) {
	r.doc.release(*r.target)
	*r.target = NewDoubleValue(f)
}

// buildStringValue classifies s by length: shorter than
// ShortStringThreshold is written inline, otherwise it is interned
// through the document's string pool as a value (not key) string (§4.E
// "Assignment", step 2). Shared by RefValue.SetString and the streaming
// handler's PushString.
func (d *Document) buildStringValue(s string, own bool) (Value, error) {
	if len(s) > maxStringLength {
		return Value{}, NewMaxStringSizeError(uint64(len(s)))
	}
	if len(s) < ShortStringThreshold {
		return Value{tag: TagShortString, short: s}, nil
	}
	ref, _, err := d.strings.Provide([]byte(s), own, false)
	if err != nil {
		return Value{}, err
	}
	return Value{tag: TagLongString, str: ref}, nil
}

// SetString classifies the incoming string by length: shorter than
// ShortStringThreshold is written inline, otherwise it is interned
// through the document's string pool as a value (not key) string (§4.E
// "Assignment", step 2).
func (r RefValue) SetString(s string) error {
	v, err := r.doc.buildStringValue(s, true)
	if err != nil {
		return err
	}
	r.doc.release(*r.target)
	*r.target = v
	return nil
}

// Key performs the idempotent-upsert access named in §9 Open Question 1:
// on Null, the cell is retagged to Object; on an existing Object, a
// missing key appends a new Null-valued member and an existing key
// returns a cursor to its current value without disturbing it. Calling
// Key on any other tag is a programming error and is reported rather
// than silently retagging, resolving the open question's release-build
// ambiguity in favor of a checked error (see DESIGN.md).
func (r RefValue) Key(key string) (RefValue, error) {
	if r.target.tag == TagNull {
		*r.target = Value{tag: TagObject, cont: &container{kind: TagObject}}
	}
	if r.target.tag != TagObject {
		return RefValue{}, NewWrongTagError(r.target.tag, TagObject)
	}
	c := r.target.cont
	keyRef, _, err := r.doc.strings.Provide([]byte(key), true, true)
	if err != nil {
		return RefValue{}, err
	}
	for i := 0; i < c.size; i++ {
		m := c.members.At(i)
		if m.Key.Ptr() == keyRef.Ptr() {
			return RefValue{doc: r.doc, target: &m.Value}, nil
		}
	}
	region, size, err := pushBack(r.doc.objects.members, c.members, c.size, Member{Key: keyRef, Value: NewNullValue()})
	if err != nil {
		return RefValue{}, err
	}
	c.members = region
	c.size = size
	return RefValue{doc: r.doc, target: &c.members.At(size - 1).Value}, nil
}

// Index accesses element i of an Array, extending with Null elements if
// i is out of range (§4.E "Assignment", point 4). On Null, the cell is
// retagged to Array first.
func (r RefValue) Index(i int) (RefValue, error) {
	if i < 0 {
		return RefValue{}, NewIndexOutOfBoundsError(uint64(i), 0, 0)
	}
	if r.target.tag == TagNull {
		*r.target = Value{tag: TagArray, cont: &container{kind: TagArray}}
	}
	if r.target.tag != TagArray {
		return RefValue{}, NewWrongTagError(r.target.tag, TagArray)
	}
	c := r.target.cont
	for c.size <= i {
		region, size, err := pushBack(r.doc.objects.values, c.values, c.size, NewNullValue())
		if err != nil {
			return RefValue{}, err
		}
		c.values = region
		c.size = size
	}
	return RefValue{doc: r.doc, target: c.values.At(i)}, nil
}

// PushBack appends v to a generic Array, retagging a Null cell to an
// empty Array first.
func (r RefValue) PushBack(v Value) error {
	if r.target.tag == TagNull {
		*r.target = Value{tag: TagArray, cont: &container{kind: TagArray}}
	}
	if r.target.tag != TagArray {
		return NewWrongTagError(r.target.tag, TagArray)
	}
	c := r.target.cont
	region, size, err := pushBack(r.doc.objects.values, c.values, c.size, v)
	if err != nil {
		return err
	}
	c.values = region
	c.size = size
	return nil
}

// BArrayPushBack, IArrayPushBack, and DArrayPushBack append to the
// corresponding specialized array, retagging a Null cell to that kind
// first; pushing into the wrong existing kind is a tag error.
func (r RefValue) BArrayPushBack(b bool) error {
	if r.target.tag == TagNull {
		*r.target = Value{tag: TagBArray, cont: &container{kind: TagBArray}}
	}
	if r.target.tag != TagBArray {
		return NewWrongTagError(r.target.tag, TagBArray)
	}
	c := r.target.cont
	region, size, err := pushBack(r.doc.objects.bools, c.bools, c.size, b)
	if err != nil {
		return err
	}
	c.bools = region
	c.size = size
	return nil
}

func (r RefValue) IArrayPushBack(i int64) error {
	if r.target.tag == TagNull {
		*r.target = Value{tag: TagIArray, cont: &container{kind: TagIArray}}
	}
	if r.target.tag != TagIArray {
		return NewWrongTagError(r.target.tag, TagIArray)
	}
	c := r.target.cont
	region, size, err := pushBack(r.doc.objects.ints, c.ints, c.size, i)
	if err != nil {
		return err
	}
	c.ints = region
	c.size = size
	return nil
}

func (r RefValue) DArrayPushBack(f float64) error {
	if r.target.tag == TagNull {
		*r.target = Value{tag: TagDArray, cont: &container{kind: TagDArray}}
	}
	if r.target.tag != TagDArray {
		return NewWrongTagError(r.target.tag, TagDArray)
	}
	c := r.target.cont
	region, size, err := pushBack(r.doc.objects.doubles, c.doubles, c.size, f)
	if err != nil {
		return err
	}
	c.doubles = region
	c.size = size
	return nil
}

// Erase removes the element/member at index, recursively freeing its
// owned structure first, then shifting the tail left by one (§4.E
// "Erase"). Capacity is left unchanged.
func (r RefValue) Erase(index int) error {
	c := r.target.cont
	if c == nil {
		return NewWrongTagError(r.target.tag, TagArray)
	}
	if index < 0 || index >= c.size {
		return NewIndexOutOfBoundsError(uint64(index), 0, uint64(c.size))
	}
	switch c.kind {
	case TagObject:
		r.doc.release(c.members.At(index).Value)
		c.size = eraseAt(c.members, c.size, index)
	case TagArray:
		r.doc.release(*c.values.At(index))
		c.size = eraseAt(c.values, c.size, index)
	case TagBArray:
		c.size = eraseAt(c.bools, c.size, index)
	case TagIArray:
		c.size = eraseAt(c.ints, c.size, index)
	case TagDArray:
		c.size = eraseAt(c.doubles, c.size, index)
	}
	return nil
}

// PopBack removes the last live element of whichever array/object kind
// this cell currently holds, recursively freeing its owned structure
// first for Array and Object members (§6 "*PopBack", grounded on the
// original's arrayPopBack/barrayPopBack/iarrayPopBack/darrayPopBack/
// objectPopBack). Capacity is left unchanged.
func (r RefValue) PopBack() error {
	c := r.target.cont
	if c == nil {
		return NewWrongTagError(r.target.tag, TagArray)
	}
	if c.size == 0 {
		return NewIndexOutOfBoundsError(0, 0, 0)
	}
	last := c.size - 1
	switch c.kind {
	case TagObject:
		r.doc.release(c.members.At(last).Value)
		*c.members.At(last) = Member{}
	case TagArray:
		r.doc.release(*c.values.At(last))
		*c.values.At(last) = Value{}
	case TagBArray:
		*c.bools.At(last) = false
	case TagIArray:
		*c.ints.At(last) = 0
	case TagDArray:
		*c.doubles.At(last) = 0
	}
	c.size = last
	return nil
}

// Clear resets whichever array/object kind this cell currently holds
// back to zero live elements without touching its allocated capacity,
// recursively freeing owned structure first for Array and Object
// (§6 "*Clear", grounded on the original's arrayClear/objectClear and
// their scalar-specialized siblings barrayClear/iarrayClear/darrayClear,
// which only reset the size since a specialized array never owns
// anything beyond its own backing buffer).
func (r RefValue) Clear() error {
	c := r.target.cont
	if c == nil {
		return NewWrongTagError(r.target.tag, TagArray)
	}
	switch c.kind {
	case TagObject:
		for i := 0; i < c.size; i++ {
			r.doc.release(c.members.At(i).Value)
		}
	case TagArray:
		for i := 0; i < c.size; i++ {
			r.doc.release(*c.values.At(i))
		}
	}
	c.size = 0
	return nil
}

// Reserve grows whichever array/object kind this cell currently holds
// to at least newCapacity without changing its size (§6 "*Reserve",
// grounded on the original's arrayReserve/barrayReserve/iarrayReserve/
// darrayReserve/objectReserve, all of which forward straight to the
// matching helper::*Reserve). This is the same reserve-then-grow
// primitive pushBack already uses internally, exposed directly so a
// caller can pre-size a container before a known run of pushes.
func (r RefValue) Reserve(newCapacity int) error {
	c := r.target.cont
	if c == nil {
		return NewWrongTagError(r.target.tag, TagArray)
	}
	var err error
	switch c.kind {
	case TagObject:
		c.members, err = reserveRegion(r.doc.objects.members, c.members, c.size, newCapacity)
	case TagArray:
		c.values, err = reserveRegion(r.doc.objects.values, c.values, c.size, newCapacity)
	case TagBArray:
		c.bools, err = reserveRegion(r.doc.objects.bools, c.bools, c.size, newCapacity)
	case TagIArray:
		c.ints, err = reserveRegion(r.doc.objects.ints, c.ints, c.size, newCapacity)
	case TagDArray:
		c.doubles, err = reserveRegion(r.doc.objects.doubles, c.doubles, c.size, newCapacity)
	}
	return err
}

// Shrink trims whichever array/object kind this cell currently holds
// down to exactly its live size, reclaiming any over-allocated capacity
// (§6 "*Shrink", grounded on the original's arrayShrink/barrayShrink/
// iarrayShrink/darrayShrink/objectShrink). Unlike Document.Shrink, which
// only reclaims whole empty allocator chunks, this reaches a single
// container's own region directly — the only way to reclaim a
// fallback-backed region's slack capacity, since Document.Shrink's
// chunk-pool sweep never inspects the fallback list (see DESIGN.md).
func (r RefValue) Shrink() error {
	c := r.target.cont
	if c == nil {
		return NewWrongTagError(r.target.tag, TagArray)
	}
	var err error
	switch c.kind {
	case TagObject:
		c.members, err = shrinkRegion(r.doc.objects.members, c.members, c.size)
	case TagArray:
		c.values, err = shrinkRegion(r.doc.objects.values, c.values, c.size)
	case TagBArray:
		c.bools, err = shrinkRegion(r.doc.objects.bools, c.bools, c.size)
	case TagIArray:
		c.ints, err = shrinkRegion(r.doc.objects.ints, c.ints, c.size)
	case TagDArray:
		c.doubles, err = shrinkRegion(r.doc.objects.doubles, c.doubles, c.size)
	}
	return err
}

// IndexAt is the bounds-checked, non-mutating sibling of Index: it never
// extends the array and reports an error instead (§6's safe accessor
// family, grounded on the original's arrayValueAt, which throws
// std::out_of_range rather than growing the array the way operator[]
// does).
func (r RefValue) IndexAt(i int) (RefValue, error) {
	if r.target.tag != TagArray {
		return RefValue{}, NewWrongTagError(r.target.tag, TagArray)
	}
	c := r.target.cont
	if i < 0 || i >= c.size {
		return RefValue{}, NewIndexOutOfBoundsError(uint64(i), 0, uint64(c.size))
	}
	return RefValue{doc: r.doc, target: c.values.At(i)}, nil
}

// BArrayAt, IArrayAt, and DArrayAt are IndexAt's counterparts for the
// specialized arrays, grounded on the original's barrayValueAt/
// iarrayValueAt/darrayValueAt.
func (r RefValue) BArrayAt(i int) (bool, error) {
	if r.target.tag != TagBArray {
		return false, NewWrongTagError(r.target.tag, TagBArray)
	}
	c := r.target.cont
	if i < 0 || i >= c.size {
		return false, NewIndexOutOfBoundsError(uint64(i), 0, uint64(c.size))
	}
	return *c.bools.At(i), nil
}

func (r RefValue) IArrayAt(i int) (int64, error) {
	if r.target.tag != TagIArray {
		return 0, NewWrongTagError(r.target.tag, TagIArray)
	}
	c := r.target.cont
	if i < 0 || i >= c.size {
		return 0, NewIndexOutOfBoundsError(uint64(i), 0, uint64(c.size))
	}
	return *c.ints.At(i), nil
}

func (r RefValue) DArrayAt(i int) (float64, error) {
	if r.target.tag != TagDArray {
		return 0, NewWrongTagError(r.target.tag, TagDArray)
	}
	c := r.target.cont
	if i < 0 || i >= c.size {
		return 0, NewIndexOutOfBoundsError(uint64(i), 0, uint64(c.size))
	}
	return *c.doubles.At(i), nil
}

// ObjectMemberAt is IndexAt's counterpart for Object, grounded on the
// original's objectMemberAt.
func (r RefValue) ObjectMemberAt(i int) (string, RefValue, error) {
	if r.target.tag != TagObject {
		return "", RefValue{}, NewWrongTagError(r.target.tag, TagObject)
	}
	c := r.target.cont
	if i < 0 || i >= c.size {
		return "", RefValue{}, NewIndexOutOfBoundsError(uint64(i), 0, uint64(c.size))
	}
	m := c.members.At(i)
	return string(m.Key.Bytes()), RefValue{doc: r.doc, target: &m.Value}, nil
}

// ResetToArray, ResetToBArray, ResetToIArray, ResetToDArray, and
// ResetToObject unconditionally deallocate whatever this cell currently
// holds and reinitialize it as an empty container of the named kind,
// regardless of its current tag — the force-retag family from the
// original's toArray/toBArray/toIArray/toDArray/toObject (toNull is
// SetNull, which already has exactly this unconditional-deallocate-then-
// retag shape). Unlike Key/Index/*PushBack, which only auto-initialize a
// Null cell and report an error against any other existing tag, these
// never inspect the current tag at all.
func (r RefValue) ResetToArray() {
	r.doc.release(*r.target)
	*r.target = Value{tag: TagArray, cont: &container{kind: TagArray}}
}

func (r RefValue) ResetToBArray() {
	r.doc.release(*r.target)
	*r.target = Value{tag: TagBArray, cont: &container{kind: TagBArray}}
}

func (r RefValue) ResetToIArray() {
	r.doc.release(*r.target)
	*r.target = Value{tag: TagIArray, cont: &container{kind: TagIArray}}
}

func (r RefValue) ResetToDArray() {
	r.doc.release(*r.target)
	*r.target = Value{tag: TagDArray, cont: &container{kind: TagDArray}}
}

func (r RefValue) ResetToObject() {
	r.doc.release(*r.target)
	*r.target = Value{tag: TagObject, cont: &container{kind: TagObject}}
}

// SetBorrowedString interns s through the document's string pool
// without taking a private copy — the pool's stored stringObject
// aliases the bytes the caller passed in. Grounded on the original's
// operator=(const char*) vs. operator=(char*) split (Document.h ~621-
// 659). In StringPool.Provide, own=false is the aliasing mode used here
// and own=true the copying one. SetString above is always the copying (owned) variant,
// since a Go string literal's bytes can't be adopted without a copy in
// the first place; this is the borrowed variant for a caller that
// already holds a []byte it is willing to hand over and never mutate
// again.
func (r RefValue) SetBorrowedString(b []byte) error {
	if len(b) > maxStringLength {
		return NewMaxStringSizeError(uint64(len(b)))
	}
	var v Value
	if len(b) < ShortStringThreshold {
		v = Value{tag: TagShortString, short: string(b)}
	} else {
		ref, _, err := r.doc.strings.Provide(b, false, false)
		if err != nil {
			return err
		}
		v = Value{tag: TagLongString, str: ref}
	}
	r.doc.release(*r.target)
	*r.target = v
	return nil
}

// ToArray promotes a specialized array (BArray/IArray/DArray) to a
// generic Array, element-wise, per §4.E "Array specializations".
// reserveForExtra preallocates extra capacity to absorb follow-up
// pushes without a second growth.
func (r RefValue) ToArray(reserveForExtra int) error {
	c := r.target.cont
	if c == nil {
		return NewWrongTagError(r.target.tag, TagArray)
	}
	switch c.kind {
	case TagArray:
		return nil
	case TagBArray:
		return r.convertTo(TagArray, c.size+reserveForExtra, func(dst Region[Value], i int) {
			*dst.At(i) = NewBoolValue(*c.bools.At(i))
		}, func() { r.doc.objects.bools.Deallocate(c.bools) })
	case TagIArray:
		return r.convertTo(TagArray, c.size+reserveForExtra, func(dst Region[Value], i int) {
			*dst.At(i) = NewInt64Value(*c.ints.At(i))
		}, func() { r.doc.objects.ints.Deallocate(c.ints) })
	case TagDArray:
		return r.convertTo(TagArray, c.size+reserveForExtra, func(dst Region[Value], i int) {
			*dst.At(i) = NewDoubleValue(*c.doubles.At(i))
		}, func() { r.doc.objects.doubles.Deallocate(c.doubles) })
	default:
		return NewWrongTagError(r.target.tag, TagArray)
	}
}

func (r RefValue) convertTo(kind Tag, capacity int, fill func(Region[Value], int), freeOld func()) error {
	c := r.target.cont
	dst, err := r.doc.objects.values.Allocate(capacity)
	if err != nil {
		return err
	}
	for i := 0; i < c.size; i++ {
		fill(dst, i)
	}
	freeOld()
	c.kind = kind
	c.values = dst
	r.target.tag = kind
	return nil
}

// ToDArray promotes an IArray to a DArray. The widened values are
// always written into a freshly allocated double region of capacity
// size+reserveForExtra, after which the integer region is freed; the
// integers are never widened over their own storage, even when Realloc
// first manages to grow the integer region where it is.
func (r RefValue) ToDArray(reserveForExtra int) error {
	c := r.target.cont
	if c == nil || c.kind != TagIArray {
		return NewWrongTagError(r.target.tag, TagIArray)
	}
	targetCap := c.size + reserveForExtra
	if grown, ok := r.doc.objects.ints.Realloc(c.ints, targetCap); ok {
		// The integer region grew where it is; its values are still
		// copied into a separate double region below.
		src := grown.Slice()
		doubles := make([]float64, c.size)
		for i := c.size - 1; i >= 0; i-- {
			doubles[i] = float64(src[i])
		}
		doubleRegion, err := r.doc.objects.doubles.Allocate(targetCap)
		if err != nil {
			return err
		}
		copy(doubleRegion.Slice(), doubles)
		r.doc.objects.ints.Deallocate(grown)
		c.kind = TagDArray
		c.doubles = doubleRegion
		r.target.tag = TagDArray
		return nil
	}
	doubleRegion, err := r.doc.objects.doubles.Allocate(targetCap)
	if err != nil {
		return err
	}
	for i := 0; i < c.size; i++ {
		*doubleRegion.At(i) = float64(*c.ints.At(i))
	}
	r.doc.objects.ints.Deallocate(c.ints)
	c.kind = TagDArray
	c.doubles = doubleRegion
	r.target.tag = TagDArray
	return nil
}

var errSwapWouldDetach = errors.New("swap would detach a subtree: one value is an ancestor of the other")

// Swap exchanges the contents of two value cells within the same
// document. §9 Open Question 2 warns that swapping an ancestor with one
// of its own descendants silently detaches a subtree; this
// implementation resolves that open question by rejecting the swap
// outright whenever either side is reachable from the other.
func (r RefValue) Swap(other RefValue) error {
	if r.doc != other.doc {
		return errors.New("cannot swap values belonging to different documents")
	}
	if r.target == other.target {
		return nil
	}
	if reachableFrom(r.target, other.target) || reachableFrom(other.target, r.target) {
		return errSwapWouldDetach
	}
	*r.target, *other.target = *other.target, *r.target
	return nil
}

// reachableFrom reports whether target is anywhere in from's subtree.
func reachableFrom(from, target *Value) bool {
	if from.cont == nil {
		return false
	}
	c := from.cont
	switch c.kind {
	case TagObject:
		for i := 0; i < c.size; i++ {
			m := c.members.At(i)
			if &m.Value == target || reachableFrom(&m.Value, target) {
				return true
			}
		}
	case TagArray:
		for i := 0; i < c.size; i++ {
			v := c.values.At(i)
			if v == target || reachableFrom(v, target) {
				return true
			}
		}
	}
	return false
}

// ObjectFindMember returns a cursor to the value of the given key, and
// false if the key is absent from this object or was never interned in
// the document's string pool at all (§4.E "Search").
func (r RefValue) ObjectFindMember(key string) (RefValue, bool) {
	if r.target.tag != TagObject {
		return RefValue{}, false
	}
	ref, ok := r.doc.strings.Get([]byte(key))
	if !ok {
		return RefValue{}, false
	}
	c := r.target.cont
	for i := 0; i < c.size; i++ {
		m := c.members.At(i)
		if m.Key.Ptr() == ref.Ptr() {
			return RefValue{doc: r.doc, target: &m.Value}, true
		}
	}
	return RefValue{}, false
}

func (r RefValue) ObjectFindValue(key string) (Value, bool) {
	ref, ok := r.ObjectFindMember(key)
	if !ok {
		return Value{}, false
	}
	return *ref.target, true
}
