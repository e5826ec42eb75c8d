// ABOUTME: Unit tests for leaf/internal node split, merge, and search helpers

package btree

import (
	"testing"

	"github.com/nainya/sqlengine/pkg/heap"
)

func TestLeafSearch(t *testing.T) {
	n := newLeaf()
	n.keys = []Key{{1}, {3}, {5}}
	n.rowIDs = [][]heap.RowId{{rid(1, 0)}, {rid(1, 1)}, {rid(1, 2)}}

	if idx, found := n.leafSearch(Key{3}); !found || idx != 1 {
		t.Fatalf("expected found at idx 1, got idx=%d found=%v", idx, found)
	}
	if idx, found := n.leafSearch(Key{4}); found || idx != 2 {
		t.Fatalf("expected insertion point 2 for absent key, got idx=%d found=%v", idx, found)
	}
	if idx, found := n.leafSearch(Key{0}); found || idx != 0 {
		t.Fatalf("expected insertion point 0, got idx=%d found=%v", idx, found)
	}
}

func TestChildIndex(t *testing.T) {
	n := newInternal()
	n.keys = []Key{{10}, {20}}

	cases := []struct {
		key  Key
		want int
	}{
		{Key{5}, 0},
		{Key{10}, 1},
		{Key{15}, 1},
		{Key{20}, 2},
		{Key{25}, 2},
	}
	for _, c := range cases {
		if got := n.childIndex(c.key); got != c.want {
			t.Errorf("childIndex(%v) = %d, want %d", c.key, got, c.want)
		}
	}
}

func TestSplitLeafKeepsSortedHalvesAndLink(t *testing.T) {
	n := newLeaf()
	for i := int64(0); i < 4; i++ {
		n.insertLeafAt(int(i), Key{i}, rid(1, uint16(i)))
	}

	promoted, right := n.splitLeaf()

	if len(n.keys) != 2 || len(right.keys) != 2 {
		t.Fatalf("expected 2/2 split, got %d/%d", len(n.keys), len(right.keys))
	}
	if !promoted.Equal(right.keys[0]) {
		t.Fatalf("promoted key %v should equal right's first key %v", promoted, right.keys[0])
	}
	if n.next != right {
		t.Fatal("left leaf should link to new right sibling")
	}
}

func TestSplitInternalPromotesWithoutDuplication(t *testing.T) {
	n := newInternal()
	n.keys = []Key{{1}, {2}, {3}, {4}}
	n.children = []*node{newLeaf(), newLeaf(), newLeaf(), newLeaf(), newLeaf()}

	promoted, right := n.splitInternal()

	if !promoted.Equal(Key{3}) {
		t.Fatalf("expected promoted key 3, got %v", promoted)
	}
	for _, k := range n.keys {
		if k.Equal(promoted) {
			t.Fatal("promoted key must not remain in left node")
		}
	}
	for _, k := range right.keys {
		if k.Equal(promoted) {
			t.Fatal("promoted key must not be duplicated in right node")
		}
	}
	if len(n.children) != len(n.keys)+1 || len(right.children) != len(right.keys)+1 {
		t.Fatal("children count must be keys+1 on both sides")
	}
}

func TestMergeLeafInto(t *testing.T) {
	left := newLeaf()
	left.keys = []Key{{1}, {2}}
	left.rowIDs = [][]heap.RowId{{rid(1, 0)}, {rid(1, 1)}}

	right := newLeaf()
	right.keys = []Key{{3}, {4}}
	right.rowIDs = [][]heap.RowId{{rid(1, 2)}, {rid(1, 3)}}
	far := newLeaf()
	right.next = far

	left.mergeLeafInto(right)

	if len(left.keys) != 4 {
		t.Fatalf("expected 4 keys after merge, got %d", len(left.keys))
	}
	if left.next != far {
		t.Fatal("merged leaf should adopt right's sibling link")
	}
}

func TestMergeInternalIntoPullsDownSeparator(t *testing.T) {
	left := newInternal()
	left.keys = []Key{{1}}
	left.children = []*node{newLeaf(), newLeaf()}

	right := newInternal()
	right.keys = []Key{{3}}
	right.children = []*node{newLeaf(), newLeaf()}

	left.mergeInternalInto(Key{2}, right)

	if len(left.keys) != 3 {
		t.Fatalf("expected 3 keys after merge, got %d", len(left.keys))
	}
	if !left.keys[1].Equal(Key{2}) {
		t.Fatalf("expected pulled-down separator at index 1, got %v", left.keys[1])
	}
	if len(left.children) != 4 {
		t.Fatalf("expected 4 children after merge, got %d", len(left.children))
	}
}
