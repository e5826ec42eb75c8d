// ABOUTME: Order-4 in-memory B+Tree keyed by composite integer tuples, multimap-valued
// ABOUTME: Insert/Search/Delete descend recursively, propagating splits up and merges down

package btree

import (
	"fmt"

	"github.com/nainya/sqlengine/pkg/heap"
)

// Tree is an order-4 B+Tree over fixed-arity composite keys, with each
// key mapping to a (possibly multi-element) list of RowIds. All keys
// inserted into one Tree must share Arity.
type Tree struct {
	root  *node
	arity int
}

// New creates an empty tree whose keys all have the given arity (the
// number of indexed columns).
func New(arity int) *Tree {
	return &Tree{root: newLeaf(), arity: arity}
}

// Arity returns the fixed key arity for this tree.
func (t *Tree) Arity() int { return t.arity }

func (t *Tree) checkArity(key Key) error {
	if len(key) != t.arity {
		return fmt.Errorf("btree: key arity %d does not match tree arity %d", len(key), t.arity)
	}
	return nil
}

// Insert adds (key, id) to the tree. If key already exists, id is appended
// to its RowId list (a no-op if id is already present for that key).
func (t *Tree) Insert(key Key, id heap.RowId) error {
	if err := t.checkArity(key); err != nil {
		return err
	}

	promoted, right, split := t.insert(t.root, key, id)
	if split {
		newRoot := newInternal()
		newRoot.keys = []Key{promoted}
		newRoot.children = []*node{t.root, right}
		t.root = newRoot
	}
	return nil
}

func (t *Tree) insert(n *node, key Key, id heap.RowId) (Key, *node, bool) {
	if n.leaf {
		idx, found := n.leafSearch(key)
		if found {
			if !containsRowID(n.rowIDs[idx], id) {
				n.rowIDs[idx] = append(n.rowIDs[idx], id)
			}
			return nil, nil, false
		}
		n.insertLeafAt(idx, key, id)
		if len(n.keys) > maxKeys {
			promoted, right := n.splitLeaf()
			return promoted, right, true
		}
		return nil, nil, false
	}

	idx := n.childIndex(key)
	childPromoted, childRight, childSplit := t.insert(n.children[idx], key, id)
	if !childSplit {
		return nil, nil, false
	}
	n.insertInternalAt(idx, childPromoted, childRight)
	if len(n.keys) > maxKeys {
		promoted, right := n.splitInternal()
		return promoted, right, true
	}
	return nil, nil, false
}

// Search returns the RowId list for key, or (nil, false) if key is absent.
func (t *Tree) Search(key Key) ([]heap.RowId, bool) {
	n := t.root
	for !n.leaf {
		idx := n.childIndex(key)
		n = n.children[idx]
	}
	idx, found := n.leafSearch(key)
	if !found {
		return nil, false
	}
	out := make([]heap.RowId, len(n.rowIDs[idx]))
	copy(out, n.rowIDs[idx])
	return out, true
}

// Delete removes the specific (key, id) pair. If id was the last RowId
// for key, the key itself is removed from its leaf, participating in
// ordinary underflow handling. Reports whether the pair was present.
func (t *Tree) Delete(key Key, id heap.RowId) bool {
	deleted, _ := t.delete(t.root, key, id, true)
	if !t.root.leaf && len(t.root.keys) == 0 {
		t.root = t.root.children[0]
	}
	return deleted
}

func (t *Tree) delete(n *node, key Key, id heap.RowId, isRoot bool) (deleted, underflow bool) {
	if n.leaf {
		idx, found := n.leafSearch(key)
		if !found || !containsRowID(n.rowIDs[idx], id) {
			return false, false
		}
		n.rowIDs[idx] = removeRowID(n.rowIDs[idx], id)
		if len(n.rowIDs[idx]) == 0 {
			n.removeLeafAt(idx)
		}
		return true, !isRoot && len(n.keys) < minKeys
	}

	idx := n.childIndex(key)
	deleted, childUnderflow := t.delete(n.children[idx], key, id, false)
	if !deleted {
		return false, false
	}
	if childUnderflow {
		fixUnderflow(n, idx)
	}
	return true, !isRoot && len(n.keys) < minKeys
}

// fixUnderflow repairs an underflowing child at n.children[idx] by
// borrowing a key from a sibling that can spare one, or merging with a
// sibling otherwise.
func fixUnderflow(n *node, idx int) {
	if idx > 0 && len(n.children[idx-1].keys) > minKeys {
		borrowFromLeft(n, idx)
		return
	}
	if idx < len(n.children)-1 && len(n.children[idx+1].keys) > minKeys {
		borrowFromRight(n, idx)
		return
	}
	if idx > 0 {
		mergeChildren(n, idx-1)
	} else {
		mergeChildren(n, idx)
	}
}

func borrowFromLeft(parent *node, idx int) {
	left, right := parent.children[idx-1], parent.children[idx]

	if right.leaf {
		last := len(left.keys) - 1
		k, v := left.keys[last], left.rowIDs[last]
		left.keys = left.keys[:last]
		left.rowIDs = left.rowIDs[:last]

		right.keys = append(append([]Key{k}), right.keys...)
		right.rowIDs = append(append([][]heap.RowId{v}), right.rowIDs...)
		parent.keys[idx-1] = right.keys[0]
		return
	}

	sep := parent.keys[idx-1]
	lastKeyIdx := len(left.keys) - 1
	promotedKey := left.keys[lastKeyIdx]
	movedChild := left.children[len(left.children)-1]
	left.keys = left.keys[:lastKeyIdx]
	left.children = left.children[:len(left.children)-1]

	right.keys = append(append([]Key{sep}), right.keys...)
	right.children = append(append([]*node{movedChild}), right.children...)
	parent.keys[idx-1] = promotedKey
}

func borrowFromRight(parent *node, idx int) {
	left, right := parent.children[idx], parent.children[idx+1]

	if left.leaf {
		k, v := right.keys[0], right.rowIDs[0]
		right.keys = right.keys[1:]
		right.rowIDs = right.rowIDs[1:]

		left.keys = append(left.keys, k)
		left.rowIDs = append(left.rowIDs, v)
		parent.keys[idx] = right.keys[0]
		return
	}

	sep := parent.keys[idx]
	promotedKey := right.keys[0]
	movedChild := right.children[0]
	right.keys = right.keys[1:]
	right.children = right.children[1:]

	left.keys = append(left.keys, sep)
	left.children = append(left.children, movedChild)
	parent.keys[idx] = promotedKey
}

func mergeChildren(parent *node, leftIdx int) {
	left, right := parent.children[leftIdx], parent.children[leftIdx+1]
	if left.leaf {
		left.mergeLeafInto(right)
	} else {
		left.mergeInternalInto(parent.keys[leftIdx], right)
	}
	parent.removeInternalAt(leftIdx)
}

func containsRowID(list []heap.RowId, id heap.RowId) bool {
	for _, existing := range list {
		if existing == id {
			return true
		}
	}
	return false
}

func removeRowID(list []heap.RowId, id heap.RowId) []heap.RowId {
	for i, existing := range list {
		if existing == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
