/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringPoolProvideDedupsAndMergesKeyFlag(t *testing.T) {
	p := NewStringPool(NewHeapAllocator())

	ref1, found, err := p.Provide([]byte("hello"), true, false)
	require.NoError(t, err)
	require.False(t, found)

	ref2, found, err := p.Provide([]byte("hello"), true, true)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, ref1.Ptr(), ref2.Ptr())
	require.True(t, ref1.IsKey(), "the key flag merge is visible through any earlier reference to the same string")

	require.Equal(t, 1, p.items)
}

func TestStringPoolGetIsReadOnly(t *testing.T) {
	p := NewStringPool(NewHeapAllocator())
	_, err := providedOK(p, "value")
	require.NoError(t, err)

	ref, ok := p.Get([]byte("value"))
	require.True(t, ok)
	require.False(t, ref.IsKey())

	_, ok = p.Get([]byte("missing"))
	require.False(t, ok)
}

func providedOK(p *StringPool, s string) (StringRef, error) {
	ref, _, err := p.Provide([]byte(s), true, false)
	return ref, err
}

func TestStringPoolReleaseValuesKeepsKeys(t *testing.T) {
	p := NewStringPool(NewHeapAllocator())
	_, _, err := p.Provide([]byte("akey"), true, true)
	require.NoError(t, err)
	_, _, err = p.Provide([]byte("avalue"), true, false)
	require.NoError(t, err)

	p.ReleaseValues()

	_, ok := p.Get([]byte("avalue"))
	require.False(t, ok)
	_, ok = p.Get([]byte("akey"))
	require.True(t, ok)
}

func TestStringPoolRehashPreservesLookups(t *testing.T) {
	p := NewStringPool(NewHeapAllocator(), WithStartingBucketCount(2))
	words := []string{"a", "bb", "ccc", "dddd", "eeeee", "ffffff", "ggggggg"}
	for _, w := range words {
		_, _, err := p.Provide([]byte(w), true, false)
		require.NoError(t, err)
	}
	require.Greater(t, len(p.buckets), 2, "enough insertions must have triggered at least one rehash")
	for _, w := range words {
		_, ok := p.Get([]byte(w))
		require.True(t, ok, "word %q must survive rehash", w)
	}
}

func TestStringPoolShrinkIsIdempotent(t *testing.T) {
	p := NewStringPool(NewHeapAllocator())
	_, _, err := p.Provide([]byte("x"), true, false)
	require.NoError(t, err)

	require.NoError(t, p.Shrink(true))
	before := p.objects.chunks
	require.NoError(t, p.Shrink(true))
	require.Equal(t, before, p.objects.chunks)
}

func TestStringPoolDedupAcrossSharedDocuments(t *testing.T) {
	// Boundary scenario 6.
	shared := MakeSharedStringPool()
	strs := []string{"hi", "hello", "world!", "this is a long string for test", "this is another long string for test"}

	doc1 := NewDocument(WithSharedStringPool(shared))
	for i, s := range strs {
		v, err := doc1.Root().Index(i)
		require.NoError(t, err)
		require.NoError(t, v.SetString(s))
	}
	itemsAfterDoc1 := shared.items

	doc2 := NewDocument(WithSharedStringPool(shared))
	for i, s := range strs {
		v, err := doc2.Root().Index(i)
		require.NoError(t, err)
		require.NoError(t, v.SetString(s))
	}
	require.Equal(t, itemsAfterDoc1, shared.items, "reinserting the same strings from a second document must not grow the shared pool")
}
