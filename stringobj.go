/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import "bytes"

// stringObject is one interned string: the payload plus the three bits
// of metadata the pool needs (whether it is a key at least once, whether
// it owns a private copy of its bytes, and its forward link within its
// hash bucket's chain). The original packs these into a flags word ahead
// of an inline NUL-terminated buffer; here the payload is a normal Go
// byte slice, either a private copy (owned) or a slice that aliases
// caller-supplied bytes (borrowed) — Go's GC keeps a borrowed slice's
// backing array alive for as long as this stringObject references it, so
// there is no lifetime hazard to recreate from the original's raw
// pointer case.
type stringObject struct {
	data  []byte
	key   bool
	owned bool
	next  PoolPtr
}

func newOwnedString(b []byte) stringObject {
	cp := make([]byte, len(b))
	copy(cp, b)
	return stringObject{data: cp, owned: true, next: NullPoolPtr}
}

func newBorrowedString(b []byte) stringObject {
	return stringObject{data: b, owned: false, next: NullPoolPtr}
}

func (s *stringObject) Length() int   { return len(s.data) }
func (s *stringObject) Bytes() []byte { return s.data }
func (s *stringObject) IsKey() bool   { return s.key }
func (s *stringObject) Owns() bool    { return s.owned }
func (s *stringObject) Next() PoolPtr { return s.next }

func (s *stringObject) SetNext(p PoolPtr) { s.next = p }

// MarkKey sets the key flag; once set it is never cleared — a string
// interned first as a value and later reused as a key (or vice versa)
// must keep answering IsKey true for whichever caller saw it that way.
func (s *stringObject) MarkKey() { s.key = true }

// compare orders this string against an external (bytes) candidate the
// way the pool's chains are kept sorted: shorter strings first, then
// lexicographically within equal lengths. It returns <0, 0, >0 the way
// bytes.Compare does.
func (s *stringObject) compare(b []byte) int {
	if len(s.data) != len(b) {
		if len(s.data) < len(b) {
			return -1
		}
		return 1
	}
	return bytes.Compare(s.data, b)
}
