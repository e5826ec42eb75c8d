// ABOUTME: WHERE/ON expression extraction and normalization into flat predicates
// ABOUTME: Rejects anything the AST itself cannot express (disjunction, negation, functions)

package planner

import (
	"errors"
	"fmt"

	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

// ErrUnsupportedPredicate is returned for a WHERE/ON shape the planner
// cannot extract: a column-column comparison outside JOIN ON, or a
// comparison missing a literal operand entirely.
var ErrUnsupportedPredicate = errors.New("planner: unsupported predicate shape")

// Predicate is one normalized (column op literal) comparison; column is
// always the left operand after normalization.
type Predicate struct {
	Column ast.ColRef
	Op     ast.Op
	Lit    sqlvalue.Value
}

// ExtractPredicates splits e on top-level AND and normalizes each leaf
// comparison into column-op-literal form, swapping and inverting the
// operator when the literal appears on the left (5 < age -> age > 5).
// A nil expression yields no predicates.
func ExtractPredicates(e ast.Expr) ([]Predicate, error) {
	if e == nil {
		return nil, nil
	}
	var out []Predicate
	if err := extractInto(e, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func extractInto(e ast.Expr, out *[]Predicate) error {
	bin, ok := e.(ast.BinaryOp)
	if !ok {
		return fmt.Errorf("%w: expected a comparison or AND, got %T", ErrUnsupportedPredicate, e)
	}

	if bin.Op == ast.And {
		if err := extractInto(bin.LHS, out); err != nil {
			return err
		}
		return extractInto(bin.RHS, out)
	}

	pred, err := normalizeComparison(bin)
	if err != nil {
		return err
	}
	*out = append(*out, pred)
	return nil
}

// normalizeComparison accepts exactly one ColRef and one Literal operand,
// in either order, and returns column-op-literal.
func normalizeComparison(bin ast.BinaryOp) (Predicate, error) {
	lCol, lIsCol := bin.LHS.(ast.ColRef)
	rCol, rIsCol := bin.RHS.(ast.ColRef)
	lLit, lIsLit := bin.LHS.(ast.Literal)
	rLit, rIsLit := bin.RHS.(ast.Literal)

	switch {
	case lIsCol && rIsLit:
		return Predicate{Column: lCol, Op: bin.Op, Lit: rLit.Value}, nil
	case rIsCol && lIsLit:
		return Predicate{Column: rCol, Op: bin.Op.Invert(), Lit: lLit.Value}, nil
	default:
		return Predicate{}, fmt.Errorf("%w: %v %v %v", ErrUnsupportedPredicate, bin.LHS, bin.Op, bin.RHS)
	}
}
