/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

// Handler is the streaming build API: a JSON producer (lexer/parser,
// test fixture, or the Walk function below) drives it one token event
// at a time and it materializes a Document.
//
// The original manages its own growable byte-stack of interleaved
// heterogeneous records while a container is open. This port instead
// accumulates an open container's elements in ordinary Go slices on its
// frame stack and only copies the finished run into the document's
// pool-backed storage once, in EndObject/EndArray — the same "bulk copy
// of N packed records at close time" the original's memPushBig
// performs, just built on append() while open instead of a hand-managed
// byte buffer. It also does not special-case the root container to
// avoid a stack push (§4.I protocol step 1): every Start event pushes a
// frame and every End event pops one, and delivering a finished
// container into an empty stack is exactly what assigns the document
// root. There is no meaningful cost to the uniform treatment once the
// stack holds lightweight Go values instead of raw bytes.
type Handler struct {
	doc              *Document
	allowIntToDouble AllowIntToDouble
	stack            []*handlerFrame
}

type handlerFrame struct {
	isObject bool

	objMembers []Member

	arraySpecialized bool
	arrayKind        Tag // TagBArray/TagIArray/TagDArray/TagArray once specialized

	boolVals    []bool
	intVals     []int64
	doubleVals  []float64
	genericVals []Value
}

func (f *handlerFrame) count() int {
	switch {
	case !f.arraySpecialized:
		return 0
	case f.arrayKind == TagBArray:
		return len(f.boolVals)
	case f.arrayKind == TagIArray:
		return len(f.intVals)
	case f.arrayKind == TagDArray:
		return len(f.doubleVals)
	default:
		return len(f.genericVals)
	}
}

// demote flattens whatever specialized buffer is active into genericVals
// and marks the frame as a generic Array, used whenever an element of a
// kind the current specialization can't hold arrives (§4.E "Array
// specializations").
func (f *handlerFrame) demote() {
	switch f.arrayKind {
	case TagBArray:
		for _, b := range f.boolVals {
			f.genericVals = append(f.genericVals, NewBoolValue(b))
		}
		f.boolVals = nil
	case TagIArray:
		for _, i := range f.intVals {
			f.genericVals = append(f.genericVals, NewInt64Value(i))
		}
		f.intVals = nil
	case TagDArray:
		for _, d := range f.doubleVals {
			f.genericVals = append(f.genericVals, NewDoubleValue(d))
		}
		f.doubleVals = nil
	}
	f.arrayKind = TagArray
}

// promoteIntToDouble widens an in-progress IArray to a DArray in place,
// mirroring the original's backwards-widening in-place conversion (here
// simplified to a fresh slice since the frame's buffer isn't pool-backed
// until close; the pool-backed IArray→DArray conversion after close
// lives in RefValue.ToDArray).
func (f *handlerFrame) promoteIntToDouble() {
	f.doubleVals = make([]float64, len(f.intVals))
	for i, v := range f.intVals {
		f.doubleVals[i] = float64(v)
	}
	f.intVals = nil
	f.arrayKind = TagDArray
}

func newHandler(doc *Document, allowIntToDouble AllowIntToDouble) *Handler {
	return &Handler{doc: doc, allowIntToDouble: allowIntToDouble}
}

func (h *Handler) top() *handlerFrame { return h.stack[len(h.stack)-1] }

func (h *Handler) StartObject() error {
	h.stack = append(h.stack, &handlerFrame{isObject: true})
	return nil
}

func (h *Handler) StartArray() error {
	h.stack = append(h.stack, &handlerFrame{})
	return nil
}

func (h *Handler) EndObject(memberCount int) error {
	if len(h.stack) == 0 || !h.top().isObject {
		return NewHandlerProtocolError("endObject without a matching startObject")
	}
	f := h.top()
	if len(f.objMembers) != memberCount {
		return NewHandlerProtocolError("endObject member count does not match the open object")
	}
	h.stack = h.stack[:len(h.stack)-1]

	region, err := h.doc.objects.members.Allocate(len(f.objMembers))
	if err != nil {
		return err
	}
	copy(region.Slice(), f.objMembers)
	return h.deliver(Value{tag: TagObject, cont: &container{kind: TagObject, size: len(f.objMembers), members: region}})
}

func (h *Handler) EndArray(elementCount int) error {
	if len(h.stack) == 0 || h.top().isObject {
		return NewHandlerProtocolError("endArray without a matching startArray")
	}
	f := h.top()
	if f.count() != elementCount {
		return NewHandlerProtocolError("endArray element count does not match the open array")
	}
	h.stack = h.stack[:len(h.stack)-1]

	switch {
	case f.arraySpecialized && f.arrayKind == TagBArray:
		region, err := h.doc.objects.bools.Allocate(len(f.boolVals))
		if err != nil {
			return err
		}
		copy(region.Slice(), f.boolVals)
		return h.deliver(Value{tag: TagBArray, cont: &container{kind: TagBArray, size: len(f.boolVals), bools: region}})
	case f.arraySpecialized && f.arrayKind == TagIArray:
		region, err := h.doc.objects.ints.Allocate(len(f.intVals))
		if err != nil {
			return err
		}
		copy(region.Slice(), f.intVals)
		return h.deliver(Value{tag: TagIArray, cont: &container{kind: TagIArray, size: len(f.intVals), ints: region}})
	case f.arraySpecialized && f.arrayKind == TagDArray:
		region, err := h.doc.objects.doubles.Allocate(len(f.doubleVals))
		if err != nil {
			return err
		}
		copy(region.Slice(), f.doubleVals)
		return h.deliver(Value{tag: TagDArray, cont: &container{kind: TagDArray, size: len(f.doubleVals), doubles: region}})
	default:
		region, err := h.doc.objects.values.Allocate(len(f.genericVals))
		if err != nil {
			return err
		}
		copy(region.Slice(), f.genericVals)
		return h.deliver(Value{tag: TagArray, cont: &container{kind: TagArray, size: len(f.genericVals), values: region}})
	}
}

// deliver writes a finished value into whatever the current context
// wants: the document root if the stack is now empty, the pending
// member slot of an enclosing object, or as the next element of an
// enclosing array (always forcing that array to its generic
// specialization, since a container element is never scalar-packable).
func (h *Handler) deliver(v Value) error {
	if len(h.stack) == 0 {
		h.doc.root = v
		return nil
	}
	f := h.top()
	if f.isObject {
		return h.fillPendingMember(v)
	}
	if !f.arraySpecialized {
		f.arraySpecialized = true
		f.arrayKind = TagArray
	} else if f.arrayKind != TagArray {
		f.demote()
	}
	f.genericVals = append(f.genericVals, v)
	return nil
}

func (h *Handler) fillPendingMember(v Value) error {
	f := h.top()
	if len(f.objMembers) == 0 {
		return NewHandlerProtocolError("value pushed with no pending key")
	}
	f.objMembers[len(f.objMembers)-1].Value = v
	return nil
}

// PushKey pre-creates a member with a Null value; the following scalar
// or container event fills that value slot (§4.I protocol point 3). A
// key is always interned through the string pool with the key flag set
// — unlike a string value, a key is never stored as an inline short
// string, since Member.Key is a StringRef by construction.
func (h *Handler) PushKey(key string, own bool) error {
	if len(h.stack) == 0 || !h.top().isObject {
		return NewHandlerProtocolError("pushKey outside an open object")
	}
	ref, _, err := h.doc.strings.Provide([]byte(key), own, true)
	if err != nil {
		return err
	}
	f := h.top()
	f.objMembers = append(f.objMembers, Member{Key: ref, Value: NewNullValue()})
	return nil
}

func (h *Handler) pushToArray(kind Tag, appendFast func(*handlerFrame), fallback Value) error {
	f := h.top()
	if !f.arraySpecialized {
		f.arraySpecialized = true
		f.arrayKind = kind
	}
	if f.arrayKind == kind {
		appendFast(f)
		return nil
	}
	if f.arrayKind == TagIArray && kind == TagDArray && h.allowIntToDouble == PromoteIntToDouble {
		f.promoteIntToDouble()
		d, _ := fallback.Double()
		f.doubleVals = append(f.doubleVals, d)
		return nil
	}
	if f.arrayKind == TagDArray && kind == TagIArray && h.allowIntToDouble == PromoteIntToDouble {
		i, _ := fallback.Int64()
		f.doubleVals = append(f.doubleVals, float64(i))
		return nil
	}
	f.demote()
	f.genericVals = append(f.genericVals, fallback)
	return nil
}

// dispatch routes one scalar event to the root, an object's pending
// member slot, or the current array's specialization logic.
func (h *Handler) dispatch(kind Tag, appendFast func(*handlerFrame), generic Value) error {
	if len(h.stack) == 0 {
		h.doc.root = generic
		return nil
	}
	if h.top().isObject {
		return h.fillPendingMember(generic)
	}
	if kind == TagArray {
		f := h.top()
		if !f.arraySpecialized {
			f.arraySpecialized = true
			f.arrayKind = TagArray
		} else if f.arrayKind != TagArray {
			f.demote()
		}
		f.genericVals = append(f.genericVals, generic)
		return nil
	}
	return h.pushToArray(kind, appendFast, generic)
}

func (h *Handler) PushNull() error {
	return h.dispatch(TagArray, nil, NewNullValue())
}

func (h *Handler) PushBool(b bool) error {
	return h.dispatch(TagBArray, func(f *handlerFrame) { f.boolVals = append(f.boolVals, b) }, NewBoolValue(b))
}

func (h *Handler) PushInt(i int32) error { return h.PushInt64(int64(i)) }

func (h *Handler) PushInt64(i int64) error {
	return h.dispatch(TagIArray, func(f *handlerFrame) { f.intVals = append(f.intVals, i) }, NewInt64Value(i))
}

// PushUInt and PushUInt64 always force the generic Array specialization:
// UInt64 is a distinct tag from Int64 in this port's Value (§3), so a
// homogeneous IArray buffer cannot silently absorb an unsigned push the
// way the original's shared integer buffer type can.
func (h *Handler) PushUInt(u uint32) error { return h.PushUInt64(uint64(u)) }

func (h *Handler) PushUInt64(u uint64) error {
	return h.dispatch(TagArray, nil, NewUInt64Value(u))
}

func (h *Handler) PushDouble(d float64) error {
	return h.dispatch(TagDArray, func(f *handlerFrame) { f.doubleVals = append(f.doubleVals, d) }, NewDoubleValue(d))
}

func (h *Handler) PushString(s string, own bool) error {
	v, err := h.doc.buildStringValue(s, own)
	if err != nil {
		return err
	}
	return h.dispatch(TagArray, nil, v)
}

// HandlerSink adapts a Handler to the WalkSink interface so that Walk
// can drive it directly, which is how the round-trip property in the
// copy/reparent sense is exercised: walk a tree built through the
// RefValue editor and feed the same events back through a streaming
// Handler building a second Document.
type HandlerSink struct {
	H *Handler
}

func (s HandlerSink) StartObject() error               { return s.H.StartObject() }
func (s HandlerSink) EndObject(memberCount int) error  { return s.H.EndObject(memberCount) }
func (s HandlerSink) StartArray() error                { return s.H.StartArray() }
func (s HandlerSink) EndArray(elementCount int) error  { return s.H.EndArray(elementCount) }
func (s HandlerSink) Key(key string, own bool) error   { return s.H.PushKey(key, own) }
func (s HandlerSink) Null() error                      { return s.H.PushNull() }
func (s HandlerSink) Bool(b bool) error                { return s.H.PushBool(b) }
func (s HandlerSink) Int64(i int64) error               { return s.H.PushInt64(i) }
func (s HandlerSink) UInt64(u uint64) error             { return s.H.PushUInt64(u) }
func (s HandlerSink) Double(d float64) error            { return s.H.PushDouble(d) }
func (s HandlerSink) String(str string, own bool) error { return s.H.PushString(str, own) }

// Finalize asserts every container was closed, then optionally shrinks
// the document (§4.I protocol point 5).
func (h *Handler) Finalize(shrinkOpt, rehashOpt bool) error {
	if len(h.stack) != 0 {
		return NewHandlerProtocolError("finalize called with unbalanced containers still open")
	}
	if shrinkOpt {
		return h.doc.Shrink(rehashOpt)
	}
	return nil
}
