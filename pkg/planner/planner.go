// ABOUTME: Top-level SELECT planning: single-table scan choice, two-table join
// ABOUTME: strategy, WHERE partitioning across join sides, and projection resolution

package planner

import (
	"errors"
	"fmt"

	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/btree"
	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// ErrAmbiguousColumn is returned when an unqualified projection or ON column
// name exists in more than one side of a join.
var ErrAmbiguousColumn = errors.New("planner: ambiguous column")

// ErrColumnNotFound is returned when a projection, WHERE, or ON column does
// not exist in the relevant table's schema.
var ErrColumnNotFound = errors.New("planner: column not found")

// ErrNonEquiJoin is returned when both operands of a JOIN ON resolve to the
// same table, so the condition does not relate the two sides.
var ErrNonEquiJoin = errors.New("planner: join ON must be a single equi-comparison")

// PlanSelect builds a plan tree and output schema for sel.
func PlanSelect(cat *catalog.Catalog, sel ast.Select) (Node, sqlvalue.Schema, error) {
	tblA, err := cat.Table(sel.From)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}
	schemaA := tblA.Schema()

	if sel.Join == nil {
		return planSingleTableSelect(cat, sel, schemaA)
	}
	return planJoinSelect(cat, sel, schemaA)
}

func planSingleTableSelect(cat *catalog.Catalog, sel ast.Select, schemaA sqlvalue.Schema) (Node, sqlvalue.Schema, error) {
	preds, err := ExtractPredicates(sel.Where)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}
	if err := validateColumnsAgainst(preds, sel.From, schemaA); err != nil {
		return nil, sqlvalue.Schema{}, err
	}

	node := planSingleTable(sel.From, cat.IndexesOn(sel.From), preds)

	cols, outSchema, err := resolveProjectionSingle(sel.Projection, schemaA)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}
	return Project{Input: node, Columns: cols}, outSchema, nil
}

// planSingleTable picks the longest-prefix-matching index across indexes
// (ties by discovery order) or falls back to SeqScan.
func planSingleTable(table string, indexes []*catalog.Index, preds []Predicate) Node {
	var best *catalog.Index
	var bestMatch MatchResult

	for _, idx := range indexes {
		m := matchIndexPrefix(idx.Columns, preds)
		if m.Length == 0 {
			continue
		}
		if best == nil || m.Length > bestMatch.Length {
			best = idx
			bestMatch = m
		}
	}

	if best == nil {
		return SeqScan{Table: table, Residual: preds}
	}

	res := residual(preds, bestMatch.Matched)
	if bestMatch.IsNeq {
		return unionScanForNeq(table, best.Name, bestMatch.NeqValue, len(best.Columns), res)
	}
	return IndexScan{Table: table, Index: best.Name, Lo: bestMatch.Lo, Hi: bestMatch.Hi, Residual: res}
}

// unionScanForNeq expands a single != match into the two disjoint ranges
// [MinInt64, v-1] and [v+1, MaxInt64], resolving Open Question 3.
func unionScanForNeq(table, index string, v int64, arity int, residual []Predicate) Node {
	lo1, hi1 := openKey(arity), closeKey(arity)
	hi1[0] = v - 1
	lo2, hi2 := openKey(arity), closeKey(arity)
	lo2[0] = v + 1

	return UnionScan{
		Table: table,
		Index: index,
		Left:  IndexScan{Table: table, Index: index, Lo: lo1, Hi: hi1, Residual: residual},
		Right: IndexScan{Table: table, Index: index, Lo: lo2, Hi: hi2, Residual: residual},
	}
}

func openKey(arity int) btree.Key {
	k := make(btree.Key, arity)
	for i := range k {
		k[i] = btree.MinInt64
	}
	return k
}

func closeKey(arity int) btree.Key {
	k := make(btree.Key, arity)
	for i := range k {
		k[i] = btree.MaxInt64
	}
	return k
}

func validateColumnsAgainst(preds []Predicate, table string, schema sqlvalue.Schema) error {
	for _, p := range preds {
		if p.Column.Qualifier != "" && p.Column.Qualifier != table {
			return fmt.Errorf("%w: %s.%s", ErrColumnNotFound, p.Column.Qualifier, p.Column.Name)
		}
		if schema.IndexOf(p.Column.Name) == -1 {
			return fmt.Errorf("%w: %s", ErrColumnNotFound, p.Column.Name)
		}
	}
	return nil
}

func resolveProjectionSingle(proj []ast.ColRef, schema sqlvalue.Schema) ([]string, sqlvalue.Schema, error) {
	if proj == nil {
		return nil, schema, nil
	}
	cols := make([]string, len(proj))
	columns := make([]sqlvalue.Column, len(proj))
	for i, c := range proj {
		pos := schema.IndexOf(c.Name)
		if pos == -1 {
			return nil, sqlvalue.Schema{}, fmt.Errorf("%w: %s", ErrColumnNotFound, c.Name)
		}
		cols[i] = c.Name
		columns[i] = schema.Columns[pos]
	}
	outSchema, err := sqlvalue.NewSchema(columns)
	return cols, outSchema, err
}
