/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerArraySpecializationWithIntToDoublePromotion(t *testing.T) {
	// Boundary scenario 2, allowIntToDouble = true.
	doc := NewDocument(WithAllowIntToDouble(PromoteIntToDouble))
	h := doc.MakeHandler()

	require.NoError(t, h.StartArray())
	require.NoError(t, h.PushInt64(1))
	require.NoError(t, h.PushInt64(2))
	require.NoError(t, h.PushDouble(3.5))
	require.NoError(t, h.EndArray(3))
	require.NoError(t, h.Finalize(false, false))

	require.Equal(t, TagDArray, doc.Root().Tag())
	n, err := doc.Root().Len()
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestHandlerArraySpecializationWithoutPromotion(t *testing.T) {
	// Boundary scenario 2, allowIntToDouble = false.
	doc := NewDocument(WithAllowIntToDouble(KeepMixedNumbersAsTags))
	h := doc.MakeHandler()

	require.NoError(t, h.StartArray())
	require.NoError(t, h.PushInt64(1))
	require.NoError(t, h.PushInt64(2))
	require.NoError(t, h.PushDouble(3.5))
	require.NoError(t, h.EndArray(3))
	require.NoError(t, h.Finalize(false, false))

	require.Equal(t, TagArray, doc.Root().Tag())
	first, err := doc.Root().Index(0)
	require.NoError(t, err)
	require.Equal(t, TagInt64, first.Tag())
	third, err := doc.Root().Index(2)
	require.NoError(t, err)
	require.Equal(t, TagDouble, third.Tag())
}

func TestHandlerHeterogeneousMixForcesGenericArray(t *testing.T) {
	// Boundary scenario 3.
	doc := NewDocument()
	h := doc.MakeHandler()

	require.NoError(t, h.StartArray())
	require.NoError(t, h.PushBool(true))
	require.NoError(t, h.PushInt64(1))
	require.NoError(t, h.EndArray(2))
	require.NoError(t, h.Finalize(false, false))

	require.Equal(t, TagArray, doc.Root().Tag())
	first, err := doc.Root().Index(0)
	require.NoError(t, err)
	require.Equal(t, TagTrue, first.Tag())
	second, err := doc.Root().Index(1)
	require.NoError(t, err)
	require.Equal(t, TagInt64, second.Tag())
}

func TestHandlerBuildsNestedObject(t *testing.T) {
	doc := NewDocument()
	h := doc.MakeHandler()

	require.NoError(t, h.StartObject())
	require.NoError(t, h.PushKey("name", true))
	require.NoError(t, h.PushString("ferris", true))
	require.NoError(t, h.PushKey("tags", true))
	require.NoError(t, h.StartArray())
	require.NoError(t, h.PushString("a", true))
	require.NoError(t, h.PushString("b", true))
	require.NoError(t, h.EndArray(2))
	require.NoError(t, h.EndObject(2))
	require.NoError(t, h.Finalize(false, false))

	require.Equal(t, TagObject, doc.Root().Tag())
	name, ok := doc.Root().ObjectFindMember("name")
	require.True(t, ok)
	s, err := name.String()
	require.NoError(t, err)
	require.Equal(t, "ferris", s)
}

func TestHandlerRejectsMismatchedEndCount(t *testing.T) {
	doc := NewDocument()
	h := doc.MakeHandler()
	require.NoError(t, h.StartArray())
	require.NoError(t, h.PushInt64(1))
	err := h.EndArray(2)
	require.Error(t, err)
}

func TestHandlerFinalizeRejectsUnbalancedContainers(t *testing.T) {
	doc := NewDocument()
	h := doc.MakeHandler()
	require.NoError(t, h.StartObject())
	err := h.Finalize(false, false)
	require.Error(t, err)
}
