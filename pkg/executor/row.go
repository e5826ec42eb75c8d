// ABOUTME: Row is the executor's in-flight tuple; Result is the shape every
// ABOUTME: statement kind returns: ack, rows-affected count, or a Select result

package executor

import "github.com/nainya/sqlengine/pkg/sqlvalue"

// Row is one tuple flowing through the volcano operator tree.
type Row []sqlvalue.Value

func (r Row) clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

func combine(left, right Row) Row {
	out := make(Row, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// Result is what Execute returns for any statement kind. Exactly one of
// Message, RowsAffected (meaningfully nonzero for Insert/Delete), or Select
// is the statement's real payload; callers switch on the statement kind
// they sent, not on which Result field is populated.
type Result struct {
	Message      string
	RowsAffected int
	Select       *SelectResult
}

// SelectResult is the payload of a SELECT: its output schema, materialized
// rows, and the plan text the planner produced for it.
type SelectResult struct {
	Schema sqlvalue.Schema
	Rows   []Row
	Plan   string
}
