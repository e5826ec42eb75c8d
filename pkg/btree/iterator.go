// ABOUTME: Ascending range iterator over leaf sibling links
// ABOUTME: Lazy, finite, and not restartable once exhausted

package btree

import "github.com/nainya/sqlengine/pkg/heap"

// Pair is one (key, RowId) emitted by an Iterator. A key with N matching
// RowIds produces N consecutive pairs sharing that key.
type Pair struct {
	Key   Key
	RowId heap.RowId
}

// Iterator walks keys in [lo, hi] in ascending order, following leaf
// sibling links. It holds no lock on the tree; mutating the tree while
// iterating is undefined.
type Iterator struct {
	hi     Key
	leaf   *node
	keyIdx int
	valIdx int
	done   bool
}

// RangeScan returns an iterator over all (key, RowId) pairs with
// lo <= key <= hi. Either bound may be built from MinInt64/MaxInt64
// components by the caller for an open end.
func (t *Tree) RangeScan(lo, hi Key) *Iterator {
	leaf := t.root
	for !leaf.leaf {
		idx := leaf.childIndex(lo)
		leaf = leaf.children[idx]
	}

	idx, _ := leaf.leafSearch(lo)
	it := &Iterator{hi: hi, leaf: leaf, keyIdx: idx, valIdx: 0}
	it.skipPastEnd()
	return it
}

func (it *Iterator) skipPastEnd() {
	for !it.done && it.keyIdx >= len(it.leaf.keys) {
		if it.leaf.next == nil {
			it.done = true
			return
		}
		it.leaf = it.leaf.next
		it.keyIdx = 0
		it.valIdx = 0
	}
	if !it.done && it.leaf.keys[it.keyIdx].Compare(it.hi) > 0 {
		it.done = true
	}
}

// Next returns the next pair in ascending order, or (Pair{}, false) once
// the iterator is exhausted.
func (it *Iterator) Next() (Pair, bool) {
	if it.done {
		return Pair{}, false
	}

	key := it.leaf.keys[it.keyIdx]
	id := it.leaf.rowIDs[it.keyIdx][it.valIdx]
	out := Pair{Key: key, RowId: id}

	it.valIdx++
	if it.valIdx >= len(it.leaf.rowIDs[it.keyIdx]) {
		it.valIdx = 0
		it.keyIdx++
		it.skipPastEnd()
	}

	return out, true
}
