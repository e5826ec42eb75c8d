// ABOUTME: Residual predicate evaluation against a materialized row
// ABOUTME: Same-case comparison only; cross-case is a runtime type error

package executor

import (
	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/planner"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

func evalPredicates(schema sqlvalue.Schema, row Row, preds []planner.Predicate) (bool, error) {
	for _, p := range preds {
		pos := schema.IndexOf(p.Column.Name)
		if pos == -1 {
			return false, errColumnNotFound(p.Column.Name)
		}
		cmp, err := row[pos].Compare(p.Lit)
		if err != nil {
			return false, err
		}
		if !satisfies(p.Op, cmp) {
			return false, nil
		}
	}
	return true, nil
}

func satisfies(op ast.Op, cmp int) bool {
	switch op {
	case ast.Eq:
		return cmp == 0
	case ast.Neq:
		return cmp != 0
	case ast.Lt:
		return cmp < 0
	case ast.Lte:
		return cmp <= 0
	case ast.Gt:
		return cmp > 0
	case ast.Gte:
		return cmp >= 0
	default:
		return false
	}
}
