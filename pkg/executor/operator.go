// ABOUTME: Volcano-style pull operators, one per planner.Node variant
// ABOUTME: Each Next() pulls exactly one row (or none) per call; no batching

package executor

import (
	"fmt"

	"github.com/nainya/sqlengine/pkg/btree"
	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/heap"
	"github.com/nainya/sqlengine/pkg/planner"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// Operator is one node of the running plan tree.
type Operator interface {
	Next() (Row, bool, error)
}

func build(cat *catalog.Catalog, node planner.Node) (Operator, error) {
	switch n := node.(type) {
	case planner.SeqScan:
		return newSeqScanOp(cat, n)
	case planner.IndexScan:
		return newIndexScanOp(cat, n)
	case planner.UnionScan:
		return newUnionScanOp(cat, n)
	case planner.NLJoin:
		return newNLJoinOp(cat, n)
	case planner.MergeJoin:
		return newMergeJoinOp(cat, n)
	case planner.Filter:
		return newFilterOp(cat, n)
	case planner.Project:
		return newProjectOp(cat, n)
	default:
		return nil, fmt.Errorf("executor: unknown plan node %T", node)
	}
}

// seqScanOp pulls every live row of a table, applying its residual filter.
type seqScanOp struct {
	scan     *heap.Scan
	schema   sqlvalue.Schema
	residual []planner.Predicate
}

func newSeqScanOp(cat *catalog.Catalog, n planner.SeqScan) (*seqScanOp, error) {
	tbl, err := cat.Table(n.Table)
	if err != nil {
		return nil, err
	}
	return &seqScanOp{scan: heap.NewScan(tbl), schema: tbl.Schema(), residual: n.Residual}, nil
}

func (op *seqScanOp) Next() (Row, bool, error) {
	for {
		_, row, ok, err := op.scan.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		pass, err := evalPredicates(op.schema, Row(row), op.residual)
		if err != nil {
			return nil, false, err
		}
		if pass {
			return Row(row), true, nil
		}
	}
}

// indexScanOp pulls rows in ascending key order from Lo to Hi, applying the
// residual filter (columns not covered by the matched index prefix).
type indexScanOp struct {
	tbl      *heap.Table
	it       *btree.Iterator
	schema   sqlvalue.Schema
	residual []planner.Predicate
}

func newIndexScanOp(cat *catalog.Catalog, n planner.IndexScan) (*indexScanOp, error) {
	tbl, err := cat.Table(n.Table)
	if err != nil {
		return nil, err
	}
	idx, err := cat.Index(n.Index)
	if err != nil {
		return nil, err
	}
	return &indexScanOp{
		tbl:      tbl,
		it:       idx.Tree.RangeScan(n.Lo, n.Hi),
		schema:   tbl.Schema(),
		residual: n.Residual,
	}, nil
}

func (op *indexScanOp) Next() (Row, bool, error) {
	for {
		pair, ok := op.it.Next()
		if !ok {
			return nil, false, nil
		}
		row, err := op.tbl.Get(pair.RowId)
		if err == heap.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		pass, err := evalPredicates(op.schema, Row(row), op.residual)
		if err != nil {
			return nil, false, err
		}
		if pass {
			return Row(row), true, nil
		}
	}
}

// unionScanOp concatenates two disjoint, individually-ascending IndexScans
// (the "!=" case): since every Left key precedes every Right key, simple
// concatenation preserves global ascending order.
type unionScanOp struct {
	left, right Operator
	onLeft      bool
}

func newUnionScanOp(cat *catalog.Catalog, n planner.UnionScan) (*unionScanOp, error) {
	left, err := newIndexScanOp(cat, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := newIndexScanOp(cat, n.Right)
	if err != nil {
		return nil, err
	}
	return &unionScanOp{left: left, right: right, onLeft: true}, nil
}

func (op *unionScanOp) Next() (Row, bool, error) {
	if op.onLeft {
		row, ok, err := op.left.Next()
		if err != nil {
			return nil, false, err
		}
		if ok {
			return row, true, nil
		}
		op.onLeft = false
	}
	return op.right.Next()
}

// nlJoinOp restarts (or re-ranges) Inner for every Outer row. When InnerIndex
// is set, Inner is re-keyed by overwriting the first bound position with the
// current outer value; otherwise Inner is rebuilt from scratch (a fresh
// sequential scan) and matched explicitly on InnerCol.
type nlJoinOp struct {
	cat                *catalog.Catalog
	outer              Operator
	outerSchema        sqlvalue.Schema
	outerPos           int
	innerTemplate      planner.Node
	innerSchema        sqlvalue.Schema
	innerPos           int
	innerIndexed       bool
	outerRow           Row
	inner              Operator
}

func newNLJoinOp(cat *catalog.Catalog, n planner.NLJoin) (*nlJoinOp, error) {
	outer, err := build(cat, n.Outer)
	if err != nil {
		return nil, err
	}
	outerSchema, err := nodeSchema(cat, n.Outer)
	if err != nil {
		return nil, err
	}
	innerSchema, err := nodeSchema(cat, n.Inner)
	if err != nil {
		return nil, err
	}
	return &nlJoinOp{
		cat:           cat,
		outer:         outer,
		outerSchema:   outerSchema,
		outerPos:      outerSchema.IndexOf(n.OuterCol),
		innerTemplate: n.Inner,
		innerSchema:   innerSchema,
		innerPos:      innerSchema.IndexOf(n.InnerCol),
		innerIndexed:  n.InnerIndex != "",
	}, nil
}

func (op *nlJoinOp) Next() (Row, bool, error) {
	for {
		if op.inner == nil {
			row, ok, err := op.outer.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			op.outerRow = row

			var innerNode planner.Node
			if op.innerIndexed {
				outerVal := row[op.outerPos]
				if outerVal.Kind != sqlvalue.Integer {
					return nil, false, ErrNonIntegerJoinKey
				}
				scan := op.innerTemplate.(planner.IndexScan)
				scan.Lo = rekeyed(scan.Lo, outerVal.I)
				scan.Hi = rekeyed(scan.Hi, outerVal.I)
				innerNode = scan
			} else {
				innerNode = op.innerTemplate
			}

			inner, err := build(op.cat, innerNode)
			if err != nil {
				return nil, false, err
			}
			op.inner = inner
		}

		innerRow, ok, err := op.inner.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			op.inner = nil
			continue
		}
		if !op.innerIndexed {
			if !innerRow[op.innerPos].Equal(op.outerRow[op.outerPos]) {
				continue
			}
		}
		return combine(op.outerRow, innerRow), true, nil
	}
}

func rekeyed(k btree.Key, v int64) btree.Key {
	out := make(btree.Key, len(k))
	copy(out, k)
	out[0] = v
	return out
}

// mergeJoinOp walks both sides in ascending index-key order, grouping
// consecutive rows sharing a key on each side and emitting their full
// cross product before advancing past that key.
type mergeJoinOp struct {
	left, right         Operator
	leftPos, rightPos   int
	leftPeek, rightPeek *Row
	leftDone, rightDone bool
	group               [][2]Row
	groupIdx            int
}

func newMergeJoinOp(cat *catalog.Catalog, n planner.MergeJoin) (*mergeJoinOp, error) {
	left, err := build(cat, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := build(cat, n.Right)
	if err != nil {
		return nil, err
	}
	leftSchema, err := nodeSchema(cat, n.Left)
	if err != nil {
		return nil, err
	}
	rightSchema, err := nodeSchema(cat, n.Right)
	if err != nil {
		return nil, err
	}
	return &mergeJoinOp{
		left:      left,
		right:     right,
		leftPos:   leftSchema.IndexOf(n.LeftCol),
		rightPos:  rightSchema.IndexOf(n.RightCol),
	}, nil
}

func (op *mergeJoinOp) Next() (Row, bool, error) {
	for {
		if op.groupIdx < len(op.group) {
			pair := op.group[op.groupIdx]
			op.groupIdx++
			return combine(pair[0], pair[1]), true, nil
		}
		if op.leftDone || op.rightDone {
			return nil, false, nil
		}
		if op.leftPeek == nil {
			row, ok, err := op.left.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				op.leftDone = true
				return nil, false, nil
			}
			op.leftPeek = &row
		}
		if op.rightPeek == nil {
			row, ok, err := op.right.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				op.rightDone = true
				return nil, false, nil
			}
			op.rightPeek = &row
		}

		cmp, err := (*op.leftPeek)[op.leftPos].Compare((*op.rightPeek)[op.rightPos])
		if err != nil {
			return nil, false, err
		}
		switch {
		case cmp < 0:
			op.leftPeek = nil
		case cmp > 0:
			op.rightPeek = nil
		default:
			key := (*op.leftPeek)[op.leftPos]
			leftGroup := []Row{*op.leftPeek}
			op.leftPeek = nil
			for {
				row, ok, err := op.left.Next()
				if err != nil {
					return nil, false, err
				}
				if !ok {
					op.leftDone = true
					break
				}
				eq, err := row[op.leftPos].Compare(key)
				if err != nil {
					return nil, false, err
				}
				if eq != 0 {
					op.leftPeek = &row
					break
				}
				leftGroup = append(leftGroup, row)
			}

			rightGroup := []Row{*op.rightPeek}
			op.rightPeek = nil
			for {
				row, ok, err := op.right.Next()
				if err != nil {
					return nil, false, err
				}
				if !ok {
					op.rightDone = true
					break
				}
				eq, err := row[op.rightPos].Compare(key)
				if err != nil {
					return nil, false, err
				}
				if eq != 0 {
					op.rightPeek = &row
					break
				}
				rightGroup = append(rightGroup, row)
			}

			op.group = op.group[:0]
			for _, l := range leftGroup {
				for _, r := range rightGroup {
					op.group = append(op.group, [2]Row{l, r})
				}
			}
			op.groupIdx = 0
		}
	}
}

// filterOp applies cross-table residual predicates post-join. The planner
// never emits Filter today (ExtractPredicates rejects column-column
// comparisons outside JOIN ON, so no residual can span both sides) but the
// operator exists to match the plan node and so the seam is exercised the
// day a cross-table residual becomes expressible.
type filterOp struct {
	input      Operator
	schema     sqlvalue.Schema
	predicates []planner.Predicate
}

func newFilterOp(cat *catalog.Catalog, n planner.Filter) (*filterOp, error) {
	input, err := build(cat, n.Input)
	if err != nil {
		return nil, err
	}
	schema, err := nodeSchema(cat, n.Input)
	if err != nil {
		return nil, err
	}
	return &filterOp{input: input, schema: schema, predicates: n.Predicates}, nil
}

func (op *filterOp) Next() (Row, bool, error) {
	for {
		row, ok, err := op.input.Next()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		pass, err := evalPredicates(op.schema, row, op.predicates)
		if err != nil {
			return nil, false, err
		}
		if pass {
			return row, true, nil
		}
	}
}

// projectOp resolves Columns to positions in Input's schema once, at
// construction, then projects every row pulled through it.
type projectOp struct {
	input    Operator
	positions []int // nil means pass every column through unchanged
}

func newProjectOp(cat *catalog.Catalog, n planner.Project) (*projectOp, error) {
	input, err := build(cat, n.Input)
	if err != nil {
		return nil, err
	}
	if n.Columns == nil {
		return &projectOp{input: input}, nil
	}
	inputSchema, err := nodeSchema(cat, n.Input)
	if err != nil {
		return nil, err
	}
	positions := make([]int, len(n.Columns))
	for i, name := range n.Columns {
		pos := inputSchema.IndexOf(name)
		if pos == -1 {
			return nil, errColumnNotFound(name)
		}
		positions[i] = pos
	}
	return &projectOp{input: input, positions: positions}, nil
}

func (op *projectOp) Next() (Row, bool, error) {
	row, ok, err := op.input.Next()
	if err != nil || !ok {
		return nil, ok, err
	}
	if op.positions == nil {
		return row, true, nil
	}
	out := make(Row, len(op.positions))
	for i, pos := range op.positions {
		out[i] = row[pos]
	}
	return out, true, nil
}
