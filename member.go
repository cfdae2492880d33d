/*
 * Copyright 2021 Dapper Labs, Inc.  All rights reserved.
 */

package packedjson

// Member is one object entry: a key reference into the document's
// string pool, paired with the value cell it maps to. Key references
// always come through the pool (§4.E "Search"), which is what lets
// objectFindMember compare by reference identity rather than by bytes.
type Member struct {
	Key   StringRef
	Value Value
}
