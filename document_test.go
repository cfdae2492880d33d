/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyUpsertIsIdempotent(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()

	v, err := root.Key("a")
	require.NoError(t, err)
	v.SetInt64(1)

	v2, err := root.Key("a")
	require.NoError(t, err)
	i, err := v2.Int64()
	require.NoError(t, err)
	require.Equal(t, int64(1), i, "re-keying an existing member must not replace it")

	n, err := root.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestKeyOnNonObjectNonNullIsAnError(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()
	root.SetInt64(5)

	_, err := root.Key("x")
	require.Error(t, err)
	var tagErr *WrongTagError
	require.ErrorAs(t, err, &tagErr)
}

func TestIndexAutoExtendsWithNull(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()

	v, err := root.Index(3)
	require.NoError(t, err)
	require.True(t, v.IsNull())

	n, err := root.Len()
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestObjectFindMemberByInternedReference(t *testing.T) {
	// Boundary scenario 7.
	doc := NewDocument()
	root := doc.Root()

	v, err := root.Key("def")
	require.NoError(t, err)
	v.SetInt64(10)

	// Rename the key by erasing and re-inserting under a new name.
	require.NoError(t, root.Erase(0))
	v2, err := root.Key("fed")
	require.NoError(t, err)
	v2.SetInt64(10)

	_, ok := root.ObjectFindMember("def")
	require.False(t, ok)

	found, ok := root.ObjectFindMember("fed")
	require.True(t, ok)
	i, err := found.Int64()
	require.NoError(t, err)
	require.Equal(t, int64(10), i)
}

func TestBigArrayThreshold(t *testing.T) {
	// Boundary scenario 4.
	doc := NewDocument()
	root := doc.Root()

	const n = 70000
	for i := 0; i < n; i++ {
		require.NoError(t, root.IArrayPushBack(int64(i)))
	}
	cap1, err := root.Capacity()
	require.NoError(t, err)
	require.GreaterOrEqual(t, cap1, n)
	big1, err := root.IsBig()
	require.NoError(t, err)
	require.True(t, big1)

	for i := n - 1; i > 0; i-- {
		require.NoError(t, root.Erase(i))
	}
	length, err := root.Len()
	require.NoError(t, err)
	require.Equal(t, 1, length)

	// Document.Shrink only reclaims whole empty allocator chunks; the
	// 70k-element IArray is a fallback allocation, so reclaiming its
	// slack capacity down to the single surviving element requires the
	// per-container Shrink instead.
	require.NoError(t, root.Shrink())
	cap2, err := root.Capacity()
	require.NoError(t, err)
	require.Equal(t, 1, cap2)
	big2, err := root.IsBig()
	require.NoError(t, err)
	require.False(t, big2)
}

func TestArraySpecializationConversions(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()
	require.NoError(t, root.IArrayPushBack(1))
	require.NoError(t, root.IArrayPushBack(2))
	require.NoError(t, root.IArrayPushBack(3))

	require.NoError(t, root.ToDArray(2))
	require.Equal(t, TagDArray, root.Tag())
	cap1, err := root.Capacity()
	require.NoError(t, err)
	require.Equal(t, 5, cap1)

	require.NoError(t, root.ToArray(0))
	require.Equal(t, TagArray, root.Tag())
	n, err := root.Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestSwapRejectsAncestorDescendant(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()
	child, err := root.Index(0)
	require.NoError(t, err)
	child.SetInt64(1)

	err = root.Swap(child)
	require.ErrorIs(t, err, errSwapWouldDetach)
}

func TestSwapExchangesSiblingValues(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()
	a, err := root.Index(0)
	require.NoError(t, err)
	a.SetInt64(1)
	b, err := root.Index(1)
	require.NoError(t, err)
	b.SetInt64(2)

	require.NoError(t, a.Swap(b))
	av, _ := a.Int64()
	bv, _ := b.Int64()
	require.Equal(t, int64(2), av)
	require.Equal(t, int64(1), bv)
}

func TestClearReleasesAllocatedBytes(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()
	for i := 0; i < 100; i++ {
		v, err := root.Index(i)
		require.NoError(t, err)
		v.SetInt64(int64(i))
	}

	doc.Clear()
	require.NoError(t, doc.Shrink(false))
	require.Equal(t, uint64(0), doc.objects.values.base.Stats().Allocated)
}

func TestShrinkIsIdempotent(t *testing.T) {
	doc := NewDocument()
	root := doc.Root()
	for i := 0; i < 10; i++ {
		require.NoError(t, root.IArrayPushBack(int64(i)))
	}
	require.NoError(t, doc.Shrink(true))
	allocatedAfterFirst := doc.objects.ints.base.Stats().Allocated
	require.NoError(t, doc.Shrink(true))
	require.Equal(t, allocatedAfterFirst, doc.objects.ints.base.Stats().Allocated)
}
