/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlabPoolDeadCellRecycling(t *testing.T) {
	// Boundary scenario 5: a 64-byte chunk holding 16-byte regions.
	pool := newSlabPool[byte](NewHeapAllocator(), 64, 1, false)

	a, err := pool.Allocate(16)
	require.NoError(t, err)
	b, err := pool.Allocate(16)
	require.NoError(t, err)
	c, err := pool.Allocate(16)
	require.NoError(t, err)
	// Fill the chunk's tail, which Allocate tries before any freelist.
	_, err = pool.Allocate(16)
	require.NoError(t, err)
	require.False(t, a.IsNull())
	require.False(t, c.IsNull())

	pool.Deallocate(b)
	require.Equal(t, 16, pool.chunks[0].totalDead)

	d, err := pool.Allocate(15)
	require.NoError(t, err)
	require.Equal(t, b.chunk, d.chunk)
	require.Equal(t, b.offset+1, d.offset, "a 15-byte request against a 16-byte dead cell splits from the cell's tail")
	require.Equal(t, 1, pool.chunks[0].totalDead)
}

func TestSlabPoolGrowsNewChunkWhenFull(t *testing.T) {
	pool := newSlabPool[int64](NewHeapAllocator(), 4, 8, false)
	for i := 0; i < 4; i++ {
		_, err := pool.Allocate(1)
		require.NoError(t, err)
	}
	require.Len(t, pool.chunks, 1)

	_, err := pool.Allocate(1)
	require.NoError(t, err)
	require.Len(t, pool.chunks, 2)
}

func TestSlabPoolFallbackForOversizedRequest(t *testing.T) {
	pool := newSlabPool[int64](NewHeapAllocator(), 4, 8, false)
	r, err := pool.Allocate(10)
	require.NoError(t, err)
	require.Nil(t, r.chunk)
	require.Len(t, r.Slice(), 10)
}

func TestSlabPoolStablePointerRoundTrip(t *testing.T) {
	pool := newSlabPool[int64](NewHeapAllocator(), 4, 8, true)
	r, err := pool.Allocate(2)
	require.NoError(t, err)
	r.Slice()[0] = 42
	r.Slice()[1] = 43

	ptr := pool.ToPoolPtr(r)
	require.False(t, ptr.IsNull())

	resolved := pool.Resolve(ptr, 2)
	require.Equal(t, []int64{42, 43}, resolved.Slice())
}

func TestSlabPoolShrinkAllOrNothingUnderStablePointer(t *testing.T) {
	pool := newSlabPool[int64](NewHeapAllocator(), 4, 8, true)
	r1, err := pool.Allocate(4)
	require.NoError(t, err)
	_, err = pool.Allocate(4)
	require.NoError(t, err)

	pool.Deallocate(r1)
	pool.Shrink()
	require.Len(t, pool.chunks, 2, "shrink must not touch anything while a later chunk is still live")
}

func TestSlabPoolShrinkReachesZeroWhenEmpty(t *testing.T) {
	pool := newSlabPool[int64](NewHeapAllocator(), 4, 8, false)
	r, err := pool.Allocate(4)
	require.NoError(t, err)
	pool.Deallocate(r)
	pool.Shrink()
	require.Nil(t, pool.chunks)
}
