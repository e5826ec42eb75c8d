// ABOUTME: Order-4 B+Tree node shapes: leaf (keys+RowId lists, sibling link) and internal (keys+children)
// ABOUTME: Max 3 keys per node; non-root nodes keep at least minKeys = ceil(order/2)-1 = 1

package btree

import (
	"sort"

	"github.com/nainya/sqlengine/pkg/heap"
)

const (
	order   = 4
	maxKeys = order - 1 // 3
	minKeys = 1         // ceil(order/2) - 1, for order 4
)

// node is either a leaf or an internal node. Leaves hold composite keys and
// a multimap of RowIds per key (duplicate composite keys are common since
// many rows can share the same indexed-column values); internal nodes hold
// routing keys and len(keys)+1 children.
type node struct {
	leaf bool

	keys []Key

	// leaf-only
	rowIDs [][]heap.RowId // len(rowIDs) == len(keys)
	next   *node          // forward sibling link; nil for the last leaf

	// internal-only
	children []*node // len(children) == len(keys)+1
}

func newLeaf() *node {
	return &node{leaf: true}
}

func newInternal() *node {
	return &node{leaf: false}
}

// leafSearch locates the index of the first key >= target in a leaf, or
// the index of the first key that would come after target if absent.
func (n *node) leafSearch(target Key) (idx int, found bool) {
	idx = sort.Search(len(n.keys), func(i int) bool {
		return n.keys[i].Compare(target) >= 0
	})
	found = idx < len(n.keys) && n.keys[idx].Equal(target)
	return idx, found
}

// childIndex returns the child to descend into for target: the first i
// such that target < keys[i]. A target equal to keys[i] routes right, into
// children[i+1], which is where a leaf split places its promoted key.
func (n *node) childIndex(target Key) int {
	return sort.Search(len(n.keys), func(i int) bool {
		return target.Compare(n.keys[i]) < 0
	})
}

// insertLeafAt inserts a fresh key with a single RowId at position idx.
func (n *node) insertLeafAt(idx int, key Key, id heap.RowId) {
	n.keys = append(n.keys, Key{})
	copy(n.keys[idx+1:], n.keys[idx:])
	n.keys[idx] = key

	n.rowIDs = append(n.rowIDs, nil)
	copy(n.rowIDs[idx+1:], n.rowIDs[idx:])
	n.rowIDs[idx] = []heap.RowId{id}
}

// splitLeaf splits an overflowing leaf (maxKeys+1 keys) into itself
// (keeping the first half) and a new right sibling (the second half),
// wiring the sibling link and returning the promoted separator key,
// which equals the right sibling's first key.
func (n *node) splitLeaf() (promoted Key, right *node) {
	mid := len(n.keys) / 2 // 4 keys -> left keeps 2, right takes 2

	right = newLeaf()
	right.keys = append(right.keys, n.keys[mid:]...)
	right.rowIDs = append(right.rowIDs, n.rowIDs[mid:]...)
	right.next = n.next

	n.keys = n.keys[:mid]
	n.rowIDs = n.rowIDs[:mid]
	n.next = right

	return right.keys[0], right
}

// insertInternalAt inserts a promoted key and its right child at position
// idx (the child to its left is children[idx], already present).
func (n *node) insertInternalAt(idx int, key Key, rightChild *node) {
	n.keys = append(n.keys, Key{})
	copy(n.keys[idx+1:], n.keys[idx:])
	n.keys[idx] = key

	n.children = append(n.children, nil)
	copy(n.children[idx+2:], n.children[idx+1:])
	n.children[idx+1] = rightChild
}

// splitInternal splits an overflowing internal node (maxKeys+1 keys, i.e.
// 4 keys / 5 children) into itself and a new right sibling, promoting the
// middle key up to the parent (it is not duplicated in either child).
func (n *node) splitInternal() (promoted Key, right *node) {
	mid := len(n.keys) / 2 // 4 keys -> promote index 2, left 2 keys, right 1 key

	promoted = n.keys[mid]

	right = newInternal()
	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	return promoted, right
}

// removeLeafAt removes the key (and its RowId list) at idx.
func (n *node) removeLeafAt(idx int) {
	n.keys = append(n.keys[:idx], n.keys[idx+1:]...)
	n.rowIDs = append(n.rowIDs[:idx], n.rowIDs[idx+1:]...)
}

// removeInternalAt removes the key at idx and the child to its right
// (children[idx+1]), used after a merge folds the right child into the left.
func (n *node) removeInternalAt(idx int) {
	n.keys = append(n.keys[:idx], n.keys[idx+1:]...)
	n.children = append(n.children[:idx+1], n.children[idx+2:]...)
}

// mergeLeafInto appends right's entries onto n (n is the left sibling) and
// relinks the sibling chain around right.
func (n *node) mergeLeafInto(right *node) {
	n.keys = append(n.keys, right.keys...)
	n.rowIDs = append(n.rowIDs, right.rowIDs...)
	n.next = right.next
}

// mergeInternalInto appends separator (pulled down from the parent) and
// right's keys/children onto n (n is the left sibling).
func (n *node) mergeInternalInto(separator Key, right *node) {
	n.keys = append(n.keys, separator)
	n.keys = append(n.keys, right.keys...)
	n.children = append(n.children, right.children...)
}
