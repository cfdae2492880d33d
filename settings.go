/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

// Defaults for the slab pool allocators and the string pool. Unlike the
// teacher's mutable package-level threshold vars, these are plain
// constants: a document's knobs are carried on the document/pool values
// returned by its constructors (see StringPoolOption, DocumentOption), never as
// process-wide state. Two documents built with different options must
// never observe each other's settings.
const (
	// DefaultObjectChunkSize is the slab size, in elements, of a single
	// chunk in a document's object allocator.
	DefaultObjectChunkSize = 2048

	// DefaultStringChunkSize is the slab size, in bytes, of a single
	// chunk in a string pool's allocator.
	DefaultStringChunkSize = 32768

	// DefaultStartingBucketCount is the bucket count a string pool
	// starts with on its first insertion.
	DefaultStartingBucketCount = 16

	// DefaultGrowthFactor is the factor by which a string pool's bucket
	// count grows on rehash.
	DefaultGrowthFactor = 2.0

	// DefaultMaxLoadFactor is the item-count/bucket-count ratio that
	// triggers a string pool rehash.
	DefaultMaxLoadFactor = 1.5

	// chunkVectorGrowthFactor is the original's 1.5 growth ratio for a
	// slab allocator's chunk vector. SlabPool does not read it: its
	// chunk slice grows through append, one chunk at a time.
	chunkVectorGrowthFactor = 1.5

	// containerGrowthFactor is the factor by which a container's
	// capacity grows on a full push.
	containerGrowthFactor = 1.5

	// maxInlineCapacity is the original's 16-bit capacity sentinel: a
	// container whose capacity reaches this value reports IsBig. There
	// is no separate Big descriptor; the storage is the same either way.
	maxInlineCapacity = 65535

	// maxStringLength is the largest length a string header can record
	// (2^30 - 1, per the 2-bit flags/30-bit length packing).
	maxStringLength = 1<<30 - 1
)

// AllowIntToDouble controls whether a Handler promotes an IArray to a
// DArray in place when a Double is observed after one or more Int64
// pushes, instead of forcing the whole segment to a generic Array.
type AllowIntToDouble bool

const (
	PromoteIntToDouble     AllowIntToDouble = true
	KeepMixedNumbersAsTags AllowIntToDouble = false
)
