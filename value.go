/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import "math"

// Tag is the value cell's discriminant. The original packs this into
// one byte of a 16-byte union; here it is a plain Go byte-sized enum,
// since Value below is a discriminated struct rather than a literal
// union (spec §9 names this alternative itself: "a discriminated value
// type... via a sum type", which is exactly what a tagged Go struct is).
type Tag uint8

const (
	TagNull Tag = iota
	TagTrue
	TagFalse
	TagInt64
	TagUInt64
	TagDouble
	TagShortString
	TagLongString
	TagObject
	TagArray
	TagBArray
	TagIArray
	TagDArray
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagTrue:
		return "True"
	case TagFalse:
		return "False"
	case TagInt64:
		return "Int64"
	case TagUInt64:
		return "UInt64"
	case TagDouble:
		return "Double"
	case TagShortString:
		return "ShortString"
	case TagLongString:
		return "LongString"
	case TagObject:
		return "Object"
	case TagArray:
		return "Array"
	case TagBArray:
		return "BArray"
	case TagIArray:
		return "IArray"
	case TagDArray:
		return "DArray"
	default:
		return "Unknown"
	}
}

// Meta folds the thirteen tags into the six families a generic walker
// or serializer actually needs to branch on.
type Meta uint8

const (
	MetaNull Meta = iota
	MetaBool
	MetaNumber
	MetaString
	MetaArray
	MetaObject
)

func (t Tag) Meta() Meta {
	switch t {
	case TagNull:
		return MetaNull
	case TagTrue, TagFalse:
		return MetaBool
	case TagInt64, TagUInt64, TagDouble:
		return MetaNumber
	case TagShortString, TagLongString:
		return MetaString
	case TagArray, TagBArray, TagIArray, TagDArray:
		return MetaArray
	case TagObject:
		return MetaObject
	default:
		return MetaNull
	}
}

// ShortStringThreshold bounds the strings a Value stores inline: only a
// string shorter than it is inline, so the longest inline string is
// ShortStringThreshold-1 bytes. The
// original derives MaxShort from the union's own byte size (size-of-
// value minus two housekeeping bytes) — 14 bytes on a 64-bit build; a Go
// Value is not byte-packed, so this is instead a named policy constant
// serving the same invariant (§3 invariant 2) at the same value the
// source uses on 64-bit targets: strings shorter than this stay inline,
// everything else is interned through the document's string pool.
const ShortStringThreshold = 14

// container backs the four array kinds and Object. Exactly one of the
// five region fields is active, selected by kind; size is the live
// element count and the active region's Len() is the current capacity.
// Crossing the 65535-element sentinel from the original's 16-bit
// capacity field has no analogue here — Go's Region already carries a
// full-width int capacity — so "big" is exposed only as a threshold
// query (Capacity/IsBig) for callers that want to mirror that boundary
// (e.g. a test asserting the promotion behavior in §8's boundary
// scenarios), not as a second descriptor type.
type container struct {
	kind Tag
	size int

	values  Region[Value]
	members Region[Member]
	bools   Region[bool]
	ints    Region[int64]
	doubles Region[float64]
}

func (c *container) Len() int { return c.size }

func (c *container) Capacity() int {
	switch c.kind {
	case TagObject:
		return c.members.Len()
	case TagArray:
		return c.values.Len()
	case TagBArray:
		return c.bools.Len()
	case TagIArray:
		return c.ints.Len()
	case TagDArray:
		return c.doubles.Len()
	default:
		return 0
	}
}

func (c *container) IsBig() bool { return c.Capacity() >= maxInlineCapacity }

// Value is one packed JSON value. Primitive tags use num/short/str
// directly; the four array tags and Object carry a *container.
type Value struct {
	tag   Tag
	num   uint64 // Int64/UInt64 bit pattern, or math.Float64bits(Double)
	short string // inline payload when tag == TagShortString
	str   StringRef
	cont  *container
}

func NewNullValue() Value { return Value{tag: TagNull} }

func NewBoolValue(b bool) Value {
	if b {
		return Value{tag: TagTrue}
	}
	return Value{tag: TagFalse}
}

func NewInt64Value(i int64) Value { return Value{tag: TagInt64, num: uint64(i)} }

func NewUInt64Value(u uint64) Value { return Value{tag: TagUInt64, num: u} }

func NewDoubleValue(d float64) Value { return Value{tag: TagDouble, num: math.Float64bits(d)} }

func (v Value) Tag() Tag   { return v.tag }
func (v Value) Meta() Meta { return v.tag.Meta() }

func (v Value) IsNull() bool { return v.tag == TagNull }

func (v Value) Bool() (bool, error) {
	switch v.tag {
	case TagTrue:
		return true, nil
	case TagFalse:
		return false, nil
	default:
		return false, NewWrongTagError(v.tag, TagTrue)
	}
}

func (v Value) Int64() (int64, error) {
	if v.tag != TagInt64 {
		return 0, NewWrongTagError(v.tag, TagInt64)
	}
	return int64(v.num), nil
}

func (v Value) UInt64() (uint64, error) {
	if v.tag != TagUInt64 {
		return 0, NewWrongTagError(v.tag, TagUInt64)
	}
	return v.num, nil
}

func (v Value) Double() (float64, error) {
	if v.tag != TagDouble {
		return 0, NewWrongTagError(v.tag, TagDouble)
	}
	return math.Float64frombits(v.num), nil
}

// String returns the value's text, whichever of the two string tags it
// carries.
func (v Value) String() (string, error) {
	switch v.tag {
	case TagShortString:
		return v.short, nil
	case TagLongString:
		return string(v.str.Bytes()), nil
	default:
		return "", NewWrongTagError(v.tag, TagShortString)
	}
}

// Len reports the live element/member count of an Object or array-tagged
// value.
func (v Value) Len() (int, error) {
	if v.cont == nil {
		return 0, NewWrongTagError(v.tag, TagArray)
	}
	return v.cont.Len(), nil
}

// Capacity and IsBig surface the container's current capacity and
// whether it has crossed the inline/Big threshold (§3 invariant 5).
func (v Value) Capacity() (int, error) {
	if v.cont == nil {
		return 0, NewWrongTagError(v.tag, TagArray)
	}
	return v.cont.Capacity(), nil
}

func (v Value) IsBig() (bool, error) {
	if v.cont == nil {
		return false, NewWrongTagError(v.tag, TagArray)
	}
	return v.cont.IsBig(), nil
}
