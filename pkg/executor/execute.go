// ABOUTME: Execute dispatches one ast.Statement against a Catalog
// ABOUTME: INSERT/DELETE drive index maintenance; SELECT plans then pulls every row

package executor

import (
	"fmt"

	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/btree"
	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/heap"
	"github.com/nainya/sqlengine/pkg/planner"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// Execute runs stmt against cat and returns its result.
func Execute(cat *catalog.Catalog, stmt ast.Statement) (Result, error) {
	switch s := stmt.(type) {
	case ast.CreateTable:
		return execCreateTable(cat, s)
	case ast.DropTable:
		return execDropTable(cat, s)
	case ast.Insert:
		return execInsert(cat, s)
	case ast.Delete:
		return execDelete(cat, s)
	case ast.CreateIndex:
		return execCreateIndex(cat, s)
	case ast.DropIndex:
		return execDropIndex(cat, s)
	case ast.Select:
		return execSelect(cat, s)
	default:
		return Result{}, fmt.Errorf("executor: unknown statement %T", stmt)
	}
}

func execCreateTable(cat *catalog.Catalog, s ast.CreateTable) (Result, error) {
	schema, err := sqlvalue.NewSchema(s.Columns)
	if err != nil {
		return Result{}, err
	}
	if err := cat.CreateTable(s.Name, schema); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("table %s created", s.Name)}, nil
}

func execDropTable(cat *catalog.Catalog, s ast.DropTable) (Result, error) {
	if err := cat.DropTable(s.Name); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("table %s dropped", s.Name)}, nil
}

func execInsert(cat *catalog.Catalog, s ast.Insert) (Result, error) {
	tbl, err := cat.Table(s.Table)
	if err != nil {
		return Result{}, err
	}
	indexes := cat.IndexesOn(s.Table)

	schema := tbl.Schema()
	for _, row := range s.Rows {
		if err := schema.ValidateRow(row); err != nil {
			return Result{}, err
		}
	}

	for _, row := range s.Rows {
		id, err := tbl.Insert(row)
		if err != nil {
			return Result{}, err
		}
		for _, idx := range indexes {
			key, err := indexKey(tbl.Schema(), idx.Columns, row)
			if err != nil {
				return Result{}, err
			}
			if err := idx.Tree.Insert(key, id); err != nil {
				return Result{}, err
			}
		}
	}
	return Result{RowsAffected: len(s.Rows)}, nil
}

func execDelete(cat *catalog.Catalog, s ast.Delete) (Result, error) {
	tbl, err := cat.Table(s.Table)
	if err != nil {
		return Result{}, err
	}
	indexes := cat.IndexesOn(s.Table)

	preds, err := planner.ExtractPredicates(s.Where)
	if err != nil {
		return Result{}, err
	}
	schema := tbl.Schema()

	var toDelete []heap.RowId
	var toDeleteRows []Row

	scan := heap.NewScan(tbl)
	for {
		id, row, ok, err := scan.Next()
		if err != nil {
			scan.Close()
			return Result{}, err
		}
		if !ok {
			break
		}
		pass, err := evalPredicates(schema, Row(row), preds)
		if err != nil {
			scan.Close()
			return Result{}, err
		}
		if pass {
			toDelete = append(toDelete, id)
			toDeleteRows = append(toDeleteRows, Row(row))
		}
	}
	scan.Close()

	for i, id := range toDelete {
		row := toDeleteRows[i]
		for _, idx := range indexes {
			key, err := indexKey(schema, idx.Columns, row)
			if err != nil {
				return Result{}, err
			}
			idx.Tree.Delete(key, id)
		}
		if err := tbl.Delete(id); err != nil {
			return Result{}, err
		}
	}
	return Result{RowsAffected: len(toDelete)}, nil
}

func execCreateIndex(cat *catalog.Catalog, s ast.CreateIndex) (Result, error) {
	if err := cat.CreateIndex(s.Name, s.Table, s.Columns); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("index %s created on %s", s.Name, s.Table)}, nil
}

func execDropIndex(cat *catalog.Catalog, s ast.DropIndex) (Result, error) {
	if err := cat.DropIndex(s.Name); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("index %s dropped", s.Name)}, nil
}

func execSelect(cat *catalog.Catalog, s ast.Select) (Result, error) {
	node, schema, err := planner.PlanSelect(cat, s)
	if err != nil {
		return Result{}, err
	}
	op, err := build(cat, node)
	if err != nil {
		return Result{}, err
	}

	var rows []Row
	for {
		row, ok, err := op.Next()
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}

	return Result{Select: &SelectResult{Schema: schema, Rows: rows, Plan: node.String()}}, nil
}

// indexKey builds idx's composite key from row, which must already be
// ordered per schema. Indexed columns must be INTEGER, matching the
// catalog's own rebuild-time constraint.
func indexKey(schema sqlvalue.Schema, columns []string, row []sqlvalue.Value) (btree.Key, error) {
	key := make(btree.Key, len(columns))
	for i, col := range columns {
		pos := schema.IndexOf(col)
		if pos == -1 {
			return nil, errColumnNotFound(col)
		}
		v := row[pos]
		if v.Kind != sqlvalue.Integer {
			return nil, fmt.Errorf("executor: indexed column %s must be INTEGER, got %s", col, v.Kind)
		}
		key[i] = v.I
	}
	return key, nil
}
