// ABOUTME: Tagged-variant plan nodes produced by the planner and walked by the executor
// ABOUTME: Plan.String() renders the human-readable text surfaced in Select.Plan

package planner

import (
	"fmt"
	"strings"

	"github.com/nainya/sqlengine/pkg/btree"
)

// Node is one node of a plan tree. The executor type-switches on the
// concrete type to build the matching volcano operator.
type Node interface {
	fmt.Stringer
	isNode()
}

// SeqScan scans every live row of Table, applying Residual per row.
type SeqScan struct {
	Table    string
	Residual []Predicate
}

// IndexScan consumes range_scan(Lo, Hi) on Index, fetching each row and
// applying Residual.
type IndexScan struct {
	Table    string
	Index    string
	Lo, Hi   btree.Key
	Residual []Predicate
}

// UnionScan implements a "!=" match as two disjoint IndexScans, in key order.
type UnionScan struct {
	Table string
	Index string
	Left  IndexScan
	Right IndexScan
}

// NLJoin restarts Inner (or re-keys its IndexScan) for every Outer row.
// InnerIndex is empty for a plain nested-loop join with no usable index.
type NLJoin struct {
	Outer, Inner       Node
	OuterCol, InnerCol string
	InnerIndex         string
}

// MergeJoin walks both sides in index order, merging on equal join keys.
type MergeJoin struct {
	Left, Right        Node
	LeftCol, RightCol  string
	LeftIndex, RightIndex string
}

// Filter wraps Input with predicates that reference columns from more than
// one side of a join (cross-table residuals), evaluated post-join.
type Filter struct {
	Input      Node
	Predicates []Predicate
}

// Project resolves Columns to positions in Input's combined schema. nil
// Columns means "*": every input column passes through unchanged.
type Project struct {
	Input   Node
	Columns []string
}

func (SeqScan) isNode()   {}
func (IndexScan) isNode() {}
func (UnionScan) isNode() {}
func (NLJoin) isNode()    {}
func (MergeJoin) isNode() {}
func (Filter) isNode()    {}
func (Project) isNode()   {}

func (n SeqScan) String() string {
	return fmt.Sprintf("SeqScan(%s, residual=%s)", n.Table, predicatesString(n.Residual))
}

func (n IndexScan) String() string {
	return fmt.Sprintf("IndexScan(%s, %s, %s) -> Filter(%s)",
		n.Table, n.Index, boundsString(n.Lo, n.Hi), predicatesString(n.Residual))
}

func (n UnionScan) String() string {
	return fmt.Sprintf("UnionScan(%s, %s)", n.Left, n.Right)
}

func (n NLJoin) String() string {
	return fmt.Sprintf("NLJoin(outer=%s, inner=%s on %s=%s)", n.Outer, n.Inner, n.OuterCol, n.InnerCol)
}

func (n MergeJoin) String() string {
	return fmt.Sprintf("MergeJoin(%s, %s on %s=%s)", n.Left, n.Right, n.LeftCol, n.RightCol)
}

func (n Filter) String() string {
	return fmt.Sprintf("%s -> Filter(%s)", n.Input, predicatesString(n.Predicates))
}

func (n Project) String() string {
	cols := "*"
	if n.Columns != nil {
		cols = strings.Join(n.Columns, ", ")
	}
	return fmt.Sprintf("Project(%s) <- %s", cols, n.Input)
}

func predicatesString(preds []Predicate) string {
	if len(preds) == 0 {
		return "true"
	}
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = fmt.Sprintf("%s%s%s%s", p.Column.Qualifier+qualDot(p.Column.Qualifier), p.Column.Name, p.Op, p.Lit.String())
	}
	return strings.Join(parts, " AND ")
}

func qualDot(qualifier string) string {
	if qualifier == "" {
		return ""
	}
	return "."
}

func boundsString(lo, hi btree.Key) string {
	return fmt.Sprintf("[%s, %s]", keyString(lo), keyString(hi))
}

func keyString(k btree.Key) string {
	parts := make([]string, len(k))
	for i, v := range k {
		switch v {
		case btree.MinInt64:
			parts[i] = "-inf"
		case btree.MaxInt64:
			parts[i] = "+inf"
		default:
			parts[i] = fmt.Sprintf("%d", v)
		}
	}
	return strings.Join(parts, ",")
}
