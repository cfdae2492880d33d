/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

// ArrayIter, BArrayIter, IArrayIter, DArrayIter, and ObjectIter are the
// const forward iterators over a container's live elements, grounded on
// the teacher's ArrayIterator (array_iterator.go): a small stateful
// cursor advanced by repeated Next() calls rather than a slice handed
// back to the caller wholesale. Unlike the teacher's iterator, which
// distinguishes a mutable walk from a read-only one over a tree that
// may still need loading from storage, these are always read-only and
// always resolve directly into the already-live in-memory region — a
// container reached through RefValue has no partially-loaded state to
// account for. Next reports false once exhausted instead of the
// teacher's nil-Value sentinel, since these iterators are infallible —
// there is no decode step that could fail partway through.
type ArrayIter struct {
	c *container
	i int
}

func (it *ArrayIter) Next() (Value, bool) {
	if it.i >= it.c.size {
		return Value{}, false
	}
	v := *it.c.values.At(it.i)
	it.i++
	return v, true
}

type BArrayIter struct {
	c *container
	i int
}

func (it *BArrayIter) Next() (bool, bool) {
	if it.i >= it.c.size {
		return false, false
	}
	v := *it.c.bools.At(it.i)
	it.i++
	return v, true
}

type IArrayIter struct {
	c *container
	i int
}

func (it *IArrayIter) Next() (int64, bool) {
	if it.i >= it.c.size {
		return 0, false
	}
	v := *it.c.ints.At(it.i)
	it.i++
	return v, true
}

type DArrayIter struct {
	c *container
	i int
}

func (it *DArrayIter) Next() (float64, bool) {
	if it.i >= it.c.size {
		return 0, false
	}
	v := *it.c.doubles.At(it.i)
	it.i++
	return v, true
}

// ObjectIter yields a member's key (decoded from its interned bytes)
// alongside its value on each call, mirroring the original's
// ConstMemberIter dereferencing to a {key, value} pair in one step.
type ObjectIter struct {
	c *container
	i int
}

func (it *ObjectIter) Next() (string, Value, bool) {
	if it.i >= it.c.size {
		return "", Value{}, false
	}
	m := it.c.members.At(it.i)
	it.i++
	return string(m.Key.Bytes()), m.Value, true
}

// Iterator, BArrayIterator, IArrayIterator, DArrayIterator, and
// ObjectIterator construct the corresponding const forward iterator
// over this cell's current container, erroring if the cell does not
// currently hold that kind.
func (r RefValue) Iterator() (*ArrayIter, error) {
	if r.target.tag != TagArray {
		return nil, NewWrongTagError(r.target.tag, TagArray)
	}
	return &ArrayIter{c: r.target.cont}, nil
}

func (r RefValue) BArrayIterator() (*BArrayIter, error) {
	if r.target.tag != TagBArray {
		return nil, NewWrongTagError(r.target.tag, TagBArray)
	}
	return &BArrayIter{c: r.target.cont}, nil
}

func (r RefValue) IArrayIterator() (*IArrayIter, error) {
	if r.target.tag != TagIArray {
		return nil, NewWrongTagError(r.target.tag, TagIArray)
	}
	return &IArrayIter{c: r.target.cont}, nil
}

func (r RefValue) DArrayIterator() (*DArrayIter, error) {
	if r.target.tag != TagDArray {
		return nil, NewWrongTagError(r.target.tag, TagDArray)
	}
	return &DArrayIter{c: r.target.cont}, nil
}

func (r RefValue) ObjectIterator() (*ObjectIter, error) {
	if r.target.tag != TagObject {
		return nil, NewWrongTagError(r.target.tag, TagObject)
	}
	return &ObjectIter{c: r.target.cont}, nil
}
