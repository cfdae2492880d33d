/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import "github.com/cespare/xxhash/v2"

// Hasher computes the 32-bit digest the string pool buckets strings by.
// The default implementation uses the low 32 bits of XXH64 (via
// cespare/xxhash/v2, the closest real dependency in the retrieval pack to
// the spec's "XXH3 low 32 bits when available" contract); FNV1a32 is the
// alternative, selected with WithHasher(FNV1a32). The xxhash module is
// imported either way.
type Hasher func(b []byte) uint32

// DefaultHasher returns the low 32 bits of the 64-bit xxhash digest.
func DefaultHasher(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}

// FNV-1a 32-bit, spelled out with the exact constants the original names
// rather than taken from hash/fnv, since the spec pins this fallback as a
// specific fixed algorithm (a string's bucket depends on the digest,
// so a document built with one FNV implementation must not be read back
// with another).
const (
	fnvOffsetBasis32 uint32 = 2166136261
	fnvPrime32       uint32 = 16777619
)

// FNV1a32 is the fallback hasher for builds without xxhash.
func FNV1a32(b []byte) uint32 {
	h := fnvOffsetBasis32
	for _, c := range b {
		h ^= uint32(c)
		h *= fnvPrime32
	}
	return h
}

// fastMod reduces a hash to a bucket index. bucketsPowerOfTwo selects a
// bitmask instead of a modulo, matching the §6 bucketsPowerOfTwo knob;
// the caller is responsible for only ever requesting power-of-two bucket
// counts when that mode is active.
func fastMod(hash uint32, bucketCount int, powerOfTwo bool) int {
	if bucketCount <= 0 {
		return 0
	}
	if powerOfTwo {
		return int(hash) & (bucketCount - 1)
	}
	return int(hash) % bucketCount
}
