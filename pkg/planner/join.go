// ABOUTME: Two-table join planning: ON resolution, WHERE partitioning, strategy selection
// ABOUTME: merge join when both sides indexed, NL join with inner index otherwise

package planner

import (
	"fmt"

	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/btree"
	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

func planJoinSelect(cat *catalog.Catalog, sel ast.Select, schemaA sqlvalue.Schema) (Node, sqlvalue.Schema, error) {
	tableA := sel.From
	tableB := sel.Join.Table

	tblB, err := cat.Table(tableB)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}
	schemaB := tblB.Schema()

	leftCol, rightCol, err := resolveJoinCond(tableA, tableB, schemaA, schemaB, sel.Join.On)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}

	preds, err := ExtractPredicates(sel.Where)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}
	predsA, predsB, err := partitionPredicates(preds, tableA, tableB, schemaA, schemaB)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}

	idxA := firstIndexOnColumn(cat.IndexesOn(tableA), leftCol)
	idxB := firstIndexOnColumn(cat.IndexesOn(tableB), rightCol)

	node := buildJoinNode(tableA, tableB, leftCol, rightCol, predsA, predsB, idxA, idxB)

	cols, outSchema, err := resolveProjectionJoin(sel.Projection, tableA, tableB, schemaA, schemaB)
	if err != nil {
		return nil, sqlvalue.Schema{}, err
	}
	return Project{Input: node, Columns: cols}, outSchema, nil
}

func buildJoinNode(tableA, tableB, leftCol, rightCol string, predsA, predsB []Predicate, idxA, idxB *catalog.Index) Node {
	switch {
	case idxA != nil && idxB != nil:
		return MergeJoin{
			Left:      fullRangeIndexScan(tableA, idxA, leftCol, predsA),
			Right:     fullRangeIndexScan(tableB, idxB, rightCol, predsB),
			LeftCol:   leftCol,
			RightCol:  rightCol,
			LeftIndex: idxA.Name,
			RightIndex: idxB.Name,
		}
	case idxB != nil:
		return NLJoin{
			Outer:      SeqScan{Table: tableA, Residual: predsA},
			Inner:      fullRangeIndexScan(tableB, idxB, rightCol, predsB),
			OuterCol:   leftCol,
			InnerCol:   rightCol,
			InnerIndex: idxB.Name,
		}
	case idxA != nil:
		return NLJoin{
			Outer:      SeqScan{Table: tableB, Residual: predsB},
			Inner:      fullRangeIndexScan(tableA, idxA, leftCol, predsA),
			OuterCol:   rightCol,
			InnerCol:   leftCol,
			InnerIndex: idxA.Name,
		}
	default:
		return NLJoin{
			Outer:    SeqScan{Table: tableA, Residual: predsA},
			Inner:    SeqScan{Table: tableB, Residual: predsB},
			OuterCol: leftCol,
			InnerCol: rightCol,
		}
	}
}

// fullRangeIndexScan scans idx end to end (its own full key range), applying
// residual as a post-fetch filter. Used for the ordered side of a merge
// join, and as the static placeholder for an NLJoin inner side that the
// executor re-ranges per outer row.
func fullRangeIndexScan(table string, idx *catalog.Index, col string, residual []Predicate) IndexScan {
	arity := len(idx.Columns)
	lo := make(btree.Key, arity)
	hi := make(btree.Key, arity)
	for i := range lo {
		lo[i] = btree.MinInt64
		hi[i] = btree.MaxInt64
	}
	return IndexScan{Table: table, Index: idx.Name, Lo: lo, Hi: hi, Residual: residual}
}

func firstIndexOnColumn(indexes []*catalog.Index, col string) *catalog.Index {
	for _, idx := range indexes {
		if len(idx.Columns) > 0 && idx.Columns[0] == col {
			return idx
		}
	}
	return nil
}

// resolveJoinCond requires a single equi-comparison between qualified (or
// unambiguously resolvable) column references, one per side.
func resolveJoinCond(tableA, tableB string, schemaA, schemaB sqlvalue.Schema, on ast.JoinCond) (leftCol, rightCol string, err error) {
	lCol, lTable, err := resolveSide(on.Left, tableA, tableB, schemaA, schemaB)
	if err != nil {
		return "", "", err
	}
	rCol, rTable, err := resolveSide(on.Right, tableA, tableB, schemaA, schemaB)
	if err != nil {
		return "", "", err
	}
	if lTable == rTable {
		return "", "", fmt.Errorf("%w: both operands resolve to %s", ErrNonEquiJoin, lTable)
	}
	if lTable == tableA {
		return lCol, rCol, nil
	}
	return rCol, lCol, nil
}

func resolveSide(ref ast.ColRef, tableA, tableB string, schemaA, schemaB sqlvalue.Schema) (col, table string, err error) {
	if ref.Qualifier != "" {
		switch ref.Qualifier {
		case tableA:
			if schemaA.IndexOf(ref.Name) == -1 {
				return "", "", fmt.Errorf("%w: %s.%s", ErrColumnNotFound, tableA, ref.Name)
			}
			return ref.Name, tableA, nil
		case tableB:
			if schemaB.IndexOf(ref.Name) == -1 {
				return "", "", fmt.Errorf("%w: %s.%s", ErrColumnNotFound, tableB, ref.Name)
			}
			return ref.Name, tableB, nil
		default:
			return "", "", fmt.Errorf("%w: unknown table %s", ErrColumnNotFound, ref.Qualifier)
		}
	}

	inA := schemaA.IndexOf(ref.Name) != -1
	inB := schemaB.IndexOf(ref.Name) != -1
	switch {
	case inA && inB:
		return "", "", fmt.Errorf("%w: %s", ErrAmbiguousColumn, ref.Name)
	case inA:
		return ref.Name, tableA, nil
	case inB:
		return ref.Name, tableB, nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrColumnNotFound, ref.Name)
	}
}

// partitionPredicates assigns each WHERE predicate to the table its column
// belongs to (resolving unqualified names the same way resolveSide does).
func partitionPredicates(preds []Predicate, tableA, tableB string, schemaA, schemaB sqlvalue.Schema) (predsA, predsB []Predicate, err error) {
	for _, p := range preds {
		_, table, err := resolveSide(p.Column, tableA, tableB, schemaA, schemaB)
		if err != nil {
			return nil, nil, err
		}
		if table == tableA {
			predsA = append(predsA, p)
		} else {
			predsB = append(predsB, p)
		}
	}
	return predsA, predsB, nil
}

func resolveProjectionJoin(proj []ast.ColRef, tableA, tableB string, schemaA, schemaB sqlvalue.Schema) ([]string, sqlvalue.Schema, error) {
	if proj == nil {
		// Name every column explicitly, A first: a swapped NLJoin produces
		// B's columns before A's, so passing rows through would not match
		// the combined schema.
		cols := make([]string, 0, schemaA.Arity()+schemaB.Arity())
		for _, c := range schemaA.Columns {
			cols = append(cols, tableA+"."+c.Name)
		}
		for _, c := range schemaB.Columns {
			cols = append(cols, tableB+"."+c.Name)
		}
		return cols, schemaA.Concat(schemaB), nil
	}

	cols := make([]string, len(proj))
	columns := make([]sqlvalue.Column, len(proj))
	for i, c := range proj {
		_, table, err := resolveSide(c, tableA, tableB, schemaA, schemaB)
		if err != nil {
			return nil, sqlvalue.Schema{}, err
		}
		cols[i] = table + "." + c.Name
		var src sqlvalue.Column
		if table == tableA {
			src = schemaA.Columns[schemaA.IndexOf(c.Name)]
		} else {
			src = schemaB.Columns[schemaB.IndexOf(c.Name)]
		}
		// Qualify the output name so two tables projecting the same
		// unqualified column (e.g. both have "id") don't collide.
		columns[i] = sqlvalue.Column{Name: cols[i], Type: src.Type}
	}
	outSchema, err := sqlvalue.NewSchema(columns)
	return cols, outSchema, err
}
