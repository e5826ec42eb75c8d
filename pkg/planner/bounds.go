// ABOUTME: Longest-prefix index match and composite-key bound computation
// ABOUTME: First k-1 columns must be equality; the k-th may be equality or a range

package planner

import (
	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/btree"
)

// MatchResult is the outcome of matching one index's column list against a
// predicate set. Length is the number of leading columns the match covers
// (not the key arity — Lo/Hi are full arity, open beyond Length; an IsNeq
// match leaves them nil).
type MatchResult struct {
	Length  int
	Lo, Hi  btree.Key
	Matched []Predicate

	// IsNeq is set when the match is a single-column "!=" predicate, which
	// the executor must run as two disjoint range scans rather than one.
	IsNeq    bool
	NeqValue int64
}

// matchIndexPrefix finds the longest leading run of idxCols covered by
// preds: equality on each column until one column is covered only by a
// range (or none), which ends the match.
func matchIndexPrefix(idxCols []string, preds []Predicate) MatchResult {
	used := make([]bool, len(preds))
	lo := make(btree.Key, len(idxCols))
	hi := make(btree.Key, len(idxCols))
	for i := range lo {
		lo[i] = btree.MinInt64
		hi[i] = btree.MaxInt64
	}

	var matched []Predicate
	length := 0

	for colIdx, col := range idxCols {
		eqIdx := findUnused(preds, used, col, ast.Eq)
		if eqIdx != -1 {
			used[eqIdx] = true
			lo[colIdx] = preds[eqIdx].Lit.I
			hi[colIdx] = preds[eqIdx].Lit.I
			matched = append(matched, preds[eqIdx])
			length = colIdx + 1
			continue
		}

		if neqIdx := findUnused(preds, used, col, ast.Neq); neqIdx != -1 && colIdx == 0 {
			used[neqIdx] = true
			return MatchResult{
				Length:   1,
				Matched:  append(matched, preds[neqIdx]),
				IsNeq:    true,
				NeqValue: preds[neqIdx].Lit.I,
			}
		}

		rangeIdxs := findAllUnused(preds, used, col, ast.Lt, ast.Lte, ast.Gt, ast.Gte)
		if len(rangeIdxs) == 0 {
			break
		}
		for _, ri := range rangeIdxs {
			used[ri] = true
			matched = append(matched, preds[ri])
			applyRangeBound(preds[ri], &lo[colIdx], &hi[colIdx])
		}
		length = colIdx + 1
		break
	}

	return MatchResult{Length: length, Lo: lo, Hi: hi, Matched: matched}
}

func applyRangeBound(p Predicate, lo, hi *int64) {
	switch p.Op {
	case ast.Gte:
		*lo = p.Lit.I
	case ast.Gt:
		*lo = p.Lit.I + 1
	case ast.Lte:
		*hi = p.Lit.I
	case ast.Lt:
		*hi = p.Lit.I - 1
	}
}

func findUnused(preds []Predicate, used []bool, col string, op ast.Op) int {
	for i, p := range preds {
		if !used[i] && p.Column.Name == col && p.Op == op {
			return i
		}
	}
	return -1
}

func findAllUnused(preds []Predicate, used []bool, col string, ops ...ast.Op) []int {
	var out []int
	for i, p := range preds {
		if used[i] || p.Column.Name != col {
			continue
		}
		for _, op := range ops {
			if p.Op == op {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// residual returns the predicates in preds not present in matched, by
// identity of (Column, Op, Lit).
func residual(preds, matched []Predicate) []Predicate {
	var out []Predicate
	for _, p := range preds {
		if !containsPredicate(matched, p) {
			out = append(out, p)
		}
	}
	return out
}

func containsPredicate(list []Predicate, p Predicate) bool {
	for _, m := range list {
		if m == p {
			return true
		}
	}
	return false
}
