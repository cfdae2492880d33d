/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

// WalkSink receives one call per node during a depth-first walk of a
// document, using the same event grammar the streaming Handler accepts
// (see SPEC_FULL.md's 4.J supplement). Driving a Walk into a fresh
// Handler is the round-trip path exercised by the tests in §8.
type WalkSink interface {
	StartObject() error
	EndObject(memberCount int) error
	StartArray() error
	EndArray(elementCount int) error
	Key(key string, own bool) error
	Null() error
	Bool(b bool) error
	Int64(i int64) error
	UInt64(u uint64) error
	Double(d float64) error
	String(s string, own bool) error
}

// Walk drives sink depth-first over cursor's subtree. Unlike Document's
// deallocation walk, this recurses on the native call stack: a walker
// only reads, never frees, so there is no lifetime hazard forcing an
// explicit worklist (§9's design note singles out deallocation, not
// traversal, for that treatment).
func Walk(cursor RefValue, sink WalkSink) error {
	return walkValue(*cursor.target, sink)
}

func walkValue(v Value, sink WalkSink) error {
	switch v.tag {
	case TagNull:
		return sink.Null()
	case TagTrue:
		return sink.Bool(true)
	case TagFalse:
		return sink.Bool(false)
	case TagInt64:
		i, _ := v.Int64()
		return sink.Int64(i)
	case TagUInt64:
		u, _ := v.UInt64()
		return sink.UInt64(u)
	case TagDouble:
		d, _ := v.Double()
		return sink.Double(d)
	case TagShortString:
		return sink.String(v.short, false)
	case TagLongString:
		return sink.String(string(v.str.Bytes()), false)
	case TagObject:
		return walkObject(v.cont, sink)
	case TagArray:
		return walkArray(v.cont, sink)
	case TagBArray:
		return walkBArray(v.cont, sink)
	case TagIArray:
		return walkIArray(v.cont, sink)
	case TagDArray:
		return walkDArray(v.cont, sink)
	default:
		return NewHandlerProtocolError("walk encountered an unknown value tag")
	}
}

func walkObject(c *container, sink WalkSink) error {
	if err := sink.StartObject(); err != nil {
		return err
	}
	for i := 0; i < c.size; i++ {
		m := c.members.At(i)
		if err := sink.Key(string(m.Key.Bytes()), false); err != nil {
			return err
		}
		if err := walkValue(m.Value, sink); err != nil {
			return err
		}
	}
	return sink.EndObject(c.size)
}

func walkArray(c *container, sink WalkSink) error {
	if err := sink.StartArray(); err != nil {
		return err
	}
	for i := 0; i < c.size; i++ {
		if err := walkValue(*c.values.At(i), sink); err != nil {
			return err
		}
	}
	return sink.EndArray(c.size)
}

func walkBArray(c *container, sink WalkSink) error {
	if err := sink.StartArray(); err != nil {
		return err
	}
	for i := 0; i < c.size; i++ {
		if err := sink.Bool(*c.bools.At(i)); err != nil {
			return err
		}
	}
	return sink.EndArray(c.size)
}

func walkIArray(c *container, sink WalkSink) error {
	if err := sink.StartArray(); err != nil {
		return err
	}
	for i := 0; i < c.size; i++ {
		if err := sink.Int64(*c.ints.At(i)); err != nil {
			return err
		}
	}
	return sink.EndArray(c.size)
}

func walkDArray(c *container, sink WalkSink) error {
	if err := sink.StartArray(); err != nil {
		return err
	}
	for i := 0; i < c.size; i++ {
		if err := sink.Double(*c.doubles.At(i)); err != nil {
			return err
		}
	}
	return sink.EndArray(c.size)
}
