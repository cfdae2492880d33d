/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildRoundTripFixture(t *testing.T, doc *Document) {
	root := doc.Root()
	root.SetNull()

	member, err := root.Key("note")
	require.NoError(t, err)
	require.NoError(t, member.SetString("short"))

	long := make([]byte, ShortStringThreshold+50)
	for i := range long {
		long[i] = byte('a' + i%26)
	}
	tail, err := root.Key("tail")
	require.NoError(t, err)
	require.NoError(t, tail.SetString(string(long)))

	mixed, err := root.Key("mixed")
	require.NoError(t, err)
	require.NoError(t, mixed.PushBack(NewBoolValue(true)))
	require.NoError(t, mixed.PushBack(NewInt64Value(7)))

	bools, err := root.Key("flags")
	require.NoError(t, err)
	require.NoError(t, bools.BArrayPushBack(true))
	require.NoError(t, bools.BArrayPushBack(false))
}

func TestWalkRoundTripsThroughHandler(t *testing.T) {
	srcDoc := NewDocument()
	buildRoundTripFixture(t, srcDoc)

	dstDoc := NewDocument()
	h := dstDoc.MakeHandler()
	require.NoError(t, Walk(srcDoc.Root(), HandlerSink{H: h}))
	require.NoError(t, h.Finalize(false, false))

	require.Equal(t, TagObject, dstDoc.Root().Tag())

	note, ok := dstDoc.Root().ObjectFindMember("note")
	require.True(t, ok)
	s, err := note.String()
	require.NoError(t, err)
	require.Equal(t, "short", s)
	require.Equal(t, TagShortString, note.Tag())

	tail, ok := dstDoc.Root().ObjectFindMember("tail")
	require.True(t, ok)
	require.Equal(t, TagLongString, tail.Tag())

	flags, ok := dstDoc.Root().ObjectFindMember("flags")
	require.True(t, ok)
	require.Equal(t, TagBArray, flags.Tag())
	n, err := flags.Len()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	mixed, ok := dstDoc.Root().ObjectFindMember("mixed")
	require.True(t, ok)
	require.Equal(t, TagArray, mixed.Tag())
	first, err := mixed.Index(0)
	require.NoError(t, err)
	require.Equal(t, TagTrue, first.Tag())
}

func TestWalkRoundTripsBigContainer(t *testing.T) {
	srcDoc := NewDocument()
	root := srcDoc.Root()
	const n = 70000
	for i := 0; i < n; i++ {
		require.NoError(t, root.IArrayPushBack(int64(i)))
	}
	big, err := root.IsBig()
	require.NoError(t, err)
	require.True(t, big)

	dstDoc := NewDocument()
	h := dstDoc.MakeHandler()
	require.NoError(t, Walk(srcDoc.Root(), HandlerSink{H: h}))
	require.NoError(t, h.Finalize(false, false))

	require.Equal(t, TagIArray, dstDoc.Root().Tag())
	count, err := dstDoc.Root().Len()
	require.NoError(t, err)
	require.Equal(t, n, count)

	require.NoError(t, dstDoc.Root().ToArray(0))
	last, err := dstDoc.Root().Index(n - 1)
	require.NoError(t, err)
	li, err := last.Int64()
	require.NoError(t, err)
	require.Equal(t, int64(n-1), li)
}
