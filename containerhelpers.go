/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import "math"

// The five container kinds (Object's members, Array's values, and the
// three specialized buffers) share one reserve/grow/shrink/erase shape.
// The original duplicates this once per C++ template instantiation
// (arrayReserve/barrayReserve/iarrayReserve/darrayReserve/objectReserve,
// and so on); here one generic function serves all five, grounded in
// the teacher's own generic slice helpers (slice_utils.go's split/merge/
// lendToRight, which take the same one-body/many-instantiations shape
// over `~[]E` slices).

// reserveRegion ensures region can hold at least newCapacity elements
// without disturbing the first `size` live elements, growing in place
// via the pool's realloc when possible and falling back to
// allocate-copy-free otherwise.
func reserveRegion[T any](pool *SlabPool[T], region Region[T], size, newCapacity int) (Region[T], error) {
	if newCapacity <= region.Len() {
		return region, nil
	}
	if grown, ok := pool.Realloc(region, newCapacity); ok {
		return grown, nil
	}
	fresh, err := pool.Allocate(newCapacity)
	if err != nil {
		return region, err
	}
	copy(fresh.Slice(), region.Slice()[:size])
	pool.Deallocate(region)
	return fresh, nil
}

// growRegion grows a full container by ceil(capacity*containerGrowthFactor),
// or to 1 element when capacity is currently zero, matching §4.E's
// "Container growth" rule.
func growRegion[T any](pool *SlabPool[T], region Region[T], size int) (Region[T], error) {
	capacity := region.Len()
	var target int
	if capacity == 0 {
		target = 1
	} else {
		target = int(math.Ceil(float64(capacity) * containerGrowthFactor))
	}
	return reserveRegion(pool, region, size, target)
}

// shrinkRegion trims a container's capacity down to exactly size,
// in-place if the region sits at its chunk's live tail, else by
// allocate-copy-free.
func shrinkRegion[T any](pool *SlabPool[T], region Region[T], size int) (Region[T], error) {
	if region.Len() == size {
		return region, nil
	}
	if shrunk, ok := pool.Realloc(region, size); ok {
		return shrunk, nil
	}
	fresh, err := pool.Allocate(size)
	if err != nil {
		return region, err
	}
	copy(fresh.Slice(), region.Slice()[:size])
	pool.Deallocate(region)
	return fresh, nil
}

// pushBack grows the region if it is already at capacity, then appends
// elem as the new live element at index size.
func pushBack[T any](pool *SlabPool[T], region Region[T], size int, elem T) (Region[T], int, error) {
	if size >= region.Len() {
		grown, err := growRegion(pool, region, size)
		if err != nil {
			return region, size, err
		}
		region = grown
	}
	region.Slice()[size] = elem
	return region, size + 1, nil
}

// eraseAt removes the live element at index, shifting the tail left by
// one and decrementing size. Capacity is left unchanged — callers that
// also want to reclaim the freed capacity call shrinkRegion separately.
func eraseAt[T any](region Region[T], size, index int) int {
	s := region.Slice()
	copy(s[index:size-1], s[index+1:size])
	var zero T
	s[size-1] = zero
	return size - 1
}

// overwriteAt is eraseAt's name in the original (arrayOverwrite /
// objectOverwrite): it exists there as a separate primitive only
// because erase must first recursively free the target cell's owned
// structure before the memmove. That recursive free happens one layer
// up, against the Value itself, in document.go; the memmove step is
// exactly eraseAt.
