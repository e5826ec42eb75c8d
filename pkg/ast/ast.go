// ABOUTME: AST surface the (out-of-scope) parser is expected to produce
// ABOUTME: Statement is a closed tagged union dispatched by the executor

package ast

import "github.com/nainya/sqlengine/pkg/sqlvalue"

// Statement is any top-level command the executor can run.
type Statement interface {
	isStatement()
}

// CreateTable defines a new table with the given columns, in order.
type CreateTable struct {
	Name    string
	Columns []sqlvalue.Column
}

// DropTable removes a table and every index defined on it.
type DropTable struct {
	Name string
}

// Insert appends each row in Rows to Table, validated against its schema.
type Insert struct {
	Table string
	Rows  [][]sqlvalue.Value
}

// Delete removes every row of Table matching Where (all rows if Where is nil).
type Delete struct {
	Table string
	Where Expr
}

// CreateIndex builds an index named Name over Table's Columns, in order.
type CreateIndex struct {
	Name    string
	Table   string
	Columns []string
}

// DropIndex removes a previously created index. Not part of the original
// surface; added per the engine's own resolution of dropping indexes.
type DropIndex struct {
	Name string
}

// Select runs a query over one table, or a two-table Join, filtered by
// Where and projected to Projection (nil means "*").
type Select struct {
	Projection []ColRef
	From       string
	Join       *Join
	Where      Expr
}

// Join names the second table of a two-table FROM and its ON condition.
type Join struct {
	Table string
	On    JoinCond
}

// JoinCond is the single equi-join condition Left = Right, one operand per
// table. An unqualified operand is accepted when its name exists in only
// one of the two tables.
type JoinCond struct {
	Left  ColRef
	Right ColRef
}

func (CreateTable) isStatement() {}
func (DropTable) isStatement()   {}
func (Insert) isStatement()      {}
func (Delete) isStatement()      {}
func (CreateIndex) isStatement() {}
func (DropIndex) isStatement()   {}
func (Select) isStatement()      {}

// Op is a comparison or logical connective in an Expr tree.
type Op uint8

const (
	Eq Op = iota + 1
	Neq
	Lt
	Lte
	Gt
	Gte
	And
)

func (op Op) String() string {
	switch op {
	case Eq:
		return "="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Lte:
		return "<="
	case Gt:
		return ">"
	case Gte:
		return ">="
	case And:
		return "AND"
	default:
		return "?"
	}
}

// Invert returns the operator with its operands logically swapped, used to
// normalize "literal op column" into "column op literal"
// (5 < age -> age > 5, 5 <= age -> age >= 5; Eq/Neq are symmetric).
func (op Op) Invert() Op {
	switch op {
	case Lt:
		return Gt
	case Lte:
		return Gte
	case Gt:
		return Lt
	case Gte:
		return Lte
	default:
		return op
	}
}

// Expr is a WHERE/ON expression: a BinaryOp tree over ColRef and Literal leaves.
type Expr interface {
	isExpr()
}

// BinaryOp is a comparison or AND node.
type BinaryOp struct {
	Op  Op
	LHS Expr
	RHS Expr
}

// ColRef is a (possibly table-qualified) column reference.
type ColRef struct {
	Qualifier string // table name or alias; empty if unqualified
	Name      string
}

// Literal wraps a constant value operand.
type Literal struct {
	Value sqlvalue.Value
}

func (BinaryOp) isExpr() {}
func (ColRef) isExpr()   {}
func (Literal) isExpr()  {}
