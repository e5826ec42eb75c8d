// ABOUTME: Planner tests: single-table index selection, composite prefixes,
// ABOUTME: join strategy selection, != union scans, and error cases

package planner

import (
	"errors"
	"testing"

	"github.com/nainya/sqlengine/pkg/ast"
	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

func openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	return c
}

func schemaOf(t *testing.T, cols ...sqlvalue.Column) sqlvalue.Schema {
	t.Helper()
	s, err := sqlvalue.NewSchema(cols)
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return s
}

func col(name string) ast.ColRef { return ast.ColRef{Name: name} }
func qcol(table, name string) ast.ColRef { return ast.ColRef{Qualifier: table, Name: name} }
func lit(i int64) ast.Literal    { return ast.Literal{Value: sqlvalue.NewInteger(i)} }
func litS(s string) ast.Literal  { return ast.Literal{Value: sqlvalue.NewVarchar(s)} }

func cmp(c ast.ColRef, op ast.Op, v ast.Literal) ast.Expr {
	return ast.BinaryOp{Op: op, LHS: c, RHS: v}
}

func and(exprs ...ast.Expr) ast.Expr {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = ast.BinaryOp{Op: ast.And, LHS: out, RHS: e}
	}
	return out
}

// TestSingleTableIndexSelectionWithResidual covers age>=30 AND name='x' over
// an index on (age): IndexScan bounds [30, +inf), residual name='x'.
func TestSingleTableIndexSelectionWithResidual(t *testing.T) {
	c := openCatalog(t)
	schema := schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "age", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "name", Type: sqlvalue.Varchar},
	)
	if err := c.CreateTable("users", schema); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := c.CreateIndex("idx_age", "users", []string{"age"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	sel := ast.Select{
		From:  "users",
		Where: and(cmp(col("age"), ast.Gte, lit(30)), cmp(col("name"), ast.Eq, litS("x"))),
	}

	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	proj, ok := node.(Project)
	if !ok {
		t.Fatalf("expected Project at root, got %T", node)
	}
	scan, ok := proj.Input.(IndexScan)
	if !ok {
		t.Fatalf("expected IndexScan under Project, got %T", proj.Input)
	}
	if scan.Index != "idx_age" {
		t.Fatalf("expected idx_age, got %s", scan.Index)
	}
	if scan.Lo[0] != 30 {
		t.Fatalf("expected lo bound 30, got %d", scan.Lo[0])
	}
	if len(scan.Residual) != 1 || scan.Residual[0].Column.Name != "name" {
		t.Fatalf("expected residual [name='x'], got %v", scan.Residual)
	}
}

// TestCompositePrefixMatch covers a=1 AND b<15 over idx_ab on (a,b):
// bounds [(1, MinInt64), (1, 14)].
func TestCompositePrefixMatch(t *testing.T) {
	c := openCatalog(t)
	schema := schemaOf(t,
		sqlvalue.Column{Name: "a", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "b", Type: sqlvalue.Integer},
	)
	c.CreateTable("t", schema)
	if err := c.CreateIndex("idx_ab", "t", []string{"a", "b"}); err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}

	sel := ast.Select{
		From:  "t",
		Where: and(cmp(col("a"), ast.Eq, lit(1)), cmp(col("b"), ast.Lt, lit(15))),
	}
	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	scan := node.(Project).Input.(IndexScan)
	wantLo := []int64{1, -9223372036854775808}
	wantHi := []int64{1, 14}
	for i := range wantLo {
		if int64(scan.Lo[i]) != wantLo[i] {
			t.Fatalf("lo[%d]: want %d, got %d", i, wantLo[i], scan.Lo[i])
		}
		if int64(scan.Hi[i]) != wantHi[i] {
			t.Fatalf("hi[%d]: want %d, got %d", i, wantHi[i], scan.Hi[i])
		}
	}
}

// TestNotEqualProducesUnionScan covers age != 40 as two disjoint ranges.
func TestNotEqualProducesUnionScan(t *testing.T) {
	c := openCatalog(t)
	schema := schemaOf(t, sqlvalue.Column{Name: "age", Type: sqlvalue.Integer})
	c.CreateTable("t", schema)
	c.CreateIndex("idx_age", "t", []string{"age"})

	sel := ast.Select{From: "t", Where: cmp(col("age"), ast.Neq, lit(40))}
	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	union, ok := node.(Project).Input.(UnionScan)
	if !ok {
		t.Fatalf("expected UnionScan, got %T", node.(Project).Input)
	}
	if union.Left.Hi[0] != 39 {
		t.Fatalf("expected left hi 39, got %d", union.Left.Hi[0])
	}
	if union.Right.Lo[0] != 41 {
		t.Fatalf("expected right lo 41, got %d", union.Right.Lo[0])
	}
}

// TestNoMatchingIndexFallsBackToSeqScan: a predicate on an unindexed column
// leaves the whole WHERE as residual over a SeqScan.
func TestNoMatchingIndexFallsBackToSeqScan(t *testing.T) {
	c := openCatalog(t)
	schema := schemaOf(t, sqlvalue.Column{Name: "name", Type: sqlvalue.Varchar})
	c.CreateTable("t", schema)

	sel := ast.Select{From: "t", Where: cmp(col("name"), ast.Eq, litS("x"))}
	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	scan, ok := node.(Project).Input.(SeqScan)
	if !ok {
		t.Fatalf("expected SeqScan, got %T", node.(Project).Input)
	}
	if len(scan.Residual) != 1 {
		t.Fatalf("expected 1 residual predicate, got %v", scan.Residual)
	}
}

// TestJoinPrefersMergeJoinWhenBothSidesIndexed.
func TestJoinPrefersMergeJoinWhenBothSidesIndexed(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("orders", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "user_id", Type: sqlvalue.Integer},
	))
	c.CreateTable("users", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
	))
	c.CreateIndex("idx_o_uid", "orders", []string{"user_id"})
	c.CreateIndex("idx_u_id", "users", []string{"id"})

	sel := ast.Select{
		From: "orders",
		Join: &ast.Join{
			Table: "users",
			On:    ast.JoinCond{Left: qcol("orders", "user_id"), Right: qcol("users", "id")},
		},
	}
	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	mj, ok := node.(Project).Input.(MergeJoin)
	if !ok {
		t.Fatalf("expected MergeJoin, got %T", node.(Project).Input)
	}
	if mj.LeftIndex != "idx_o_uid" || mj.RightIndex != "idx_u_id" {
		t.Fatalf("unexpected indexes: %s / %s", mj.LeftIndex, mj.RightIndex)
	}
}

// TestJoinUsesNLJoinWithIndexedInnerRegardlessOfWriteOrder: only the users
// side is indexed; the planner must make users the inner side of an NLJoin
// even though it's written second.
func TestJoinUsesNLJoinWithIndexedInnerRegardlessOfWriteOrder(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("orders", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "user_id", Type: sqlvalue.Integer},
	))
	c.CreateTable("users", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
	))
	c.CreateIndex("idx_u_id", "users", []string{"id"})

	sel := ast.Select{
		From: "orders",
		Join: &ast.Join{
			Table: "users",
			On:    ast.JoinCond{Left: qcol("orders", "user_id"), Right: qcol("users", "id")},
		},
	}
	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	nl, ok := node.(Project).Input.(NLJoin)
	if !ok {
		t.Fatalf("expected NLJoin, got %T", node.(Project).Input)
	}
	inner, ok := nl.Inner.(IndexScan)
	if !ok {
		t.Fatalf("expected indexed inner, got %T", nl.Inner)
	}
	if inner.Table != "users" || nl.InnerIndex != "idx_u_id" {
		t.Fatalf("expected users as inner via idx_u_id, got table=%s index=%s", inner.Table, nl.InnerIndex)
	}
	outer, ok := nl.Outer.(SeqScan)
	if !ok || outer.Table != "orders" {
		t.Fatalf("expected orders as outer SeqScan, got %T (%v)", nl.Outer, nl.Outer)
	}
}

// TestJoinPlainNLJoinWhenNeitherSideIndexed.
func TestJoinPlainNLJoinWhenNeitherSideIndexed(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("a", schemaOf(t, sqlvalue.Column{Name: "x", Type: sqlvalue.Integer}))
	c.CreateTable("b", schemaOf(t, sqlvalue.Column{Name: "y", Type: sqlvalue.Integer}))

	sel := ast.Select{
		From: "a",
		Join: &ast.Join{Table: "b", On: ast.JoinCond{Left: qcol("a", "x"), Right: qcol("b", "y")}},
	}
	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	nl, ok := node.(Project).Input.(NLJoin)
	if !ok {
		t.Fatalf("expected NLJoin, got %T", node.(Project).Input)
	}
	if _, ok := nl.Outer.(SeqScan); !ok {
		t.Fatalf("expected SeqScan outer, got %T", nl.Outer)
	}
	if _, ok := nl.Inner.(SeqScan); !ok {
		t.Fatalf("expected SeqScan inner, got %T", nl.Inner)
	}
}

// TestJoinWherePartitionedAcrossSides checks that a WHERE predicate on each
// side lands in that side's scan as a residual, not on the other.
func TestJoinWherePartitionedAcrossSides(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("orders", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "user_id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "total", Type: sqlvalue.Integer},
	))
	c.CreateTable("users", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "active", Type: sqlvalue.Boolean},
	))

	sel := ast.Select{
		From: "orders",
		Join: &ast.Join{Table: "users", On: ast.JoinCond{Left: qcol("orders", "user_id"), Right: qcol("users", "id")}},
		Where: and(
			cmp(col("total"), ast.Gt, lit(100)),
			ast.BinaryOp{Op: ast.Eq, LHS: col("active"), RHS: ast.Literal{Value: sqlvalue.NewBoolean(true)}},
		),
	}
	node, _, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	nl := node.(Project).Input.(NLJoin)
	outer := nl.Outer.(SeqScan)
	inner := nl.Inner.(SeqScan)
	if outer.Table != "orders" || len(outer.Residual) != 1 || outer.Residual[0].Column.Name != "total" {
		t.Fatalf("expected orders residual [total], got %v", outer.Residual)
	}
	if inner.Table != "users" || len(inner.Residual) != 1 || inner.Residual[0].Column.Name != "active" {
		t.Fatalf("expected users residual [active], got %v", inner.Residual)
	}
}

func TestJoinAmbiguousColumnInOnFails(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("a", schemaOf(t, sqlvalue.Column{Name: "id", Type: sqlvalue.Integer}))
	c.CreateTable("b", schemaOf(t, sqlvalue.Column{Name: "id", Type: sqlvalue.Integer}))

	sel := ast.Select{
		From: "a",
		Join: &ast.Join{Table: "b", On: ast.JoinCond{Left: col("id"), Right: qcol("b", "id")}},
	}
	_, _, err := PlanSelect(c, sel)
	if !errors.Is(err, ErrAmbiguousColumn) {
		t.Fatalf("expected ErrAmbiguousColumn, got %v", err)
	}
}

func TestJoinNonEquiSameSideFails(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("a", schemaOf(t,
		sqlvalue.Column{Name: "x", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "y", Type: sqlvalue.Integer},
	))
	c.CreateTable("b", schemaOf(t, sqlvalue.Column{Name: "z", Type: sqlvalue.Integer}))

	sel := ast.Select{
		From: "a",
		Join: &ast.Join{Table: "b", On: ast.JoinCond{Left: qcol("a", "x"), Right: qcol("a", "y")}},
	}
	_, _, err := PlanSelect(c, sel)
	if !errors.Is(err, ErrNonEquiJoin) {
		t.Fatalf("expected ErrNonEquiJoin, got %v", err)
	}
}

func TestProjectionResolvesQualifiedJoinColumns(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("orders", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "user_id", Type: sqlvalue.Integer},
	))
	c.CreateTable("users", schemaOf(t,
		sqlvalue.Column{Name: "id", Type: sqlvalue.Integer},
		sqlvalue.Column{Name: "name", Type: sqlvalue.Varchar},
	))

	sel := ast.Select{
		From:       "orders",
		Join:       &ast.Join{Table: "users", On: ast.JoinCond{Left: qcol("orders", "user_id"), Right: qcol("users", "id")}},
		Projection: []ast.ColRef{qcol("orders", "id"), qcol("users", "name")},
	}
	node, outSchema, err := PlanSelect(c, sel)
	if err != nil {
		t.Fatalf("PlanSelect: %v", err)
	}
	proj := node.(Project)
	wantCols := []string{"orders.id", "users.name"}
	for i, want := range wantCols {
		if proj.Columns[i] != want {
			t.Fatalf("column[%d]: want %s, got %s", i, want, proj.Columns[i])
		}
	}
	if outSchema.Arity() != 2 {
		t.Fatalf("expected output arity 2, got %d", outSchema.Arity())
	}
}

func TestProjectionUnqualifiedAmbiguousAcrossJoinFails(t *testing.T) {
	c := openCatalog(t)
	c.CreateTable("a", schemaOf(t, sqlvalue.Column{Name: "id", Type: sqlvalue.Integer}))
	c.CreateTable("b", schemaOf(t, sqlvalue.Column{Name: "id", Type: sqlvalue.Integer}))

	sel := ast.Select{
		From:       "a",
		Join:       &ast.Join{Table: "b", On: ast.JoinCond{Left: qcol("a", "id"), Right: qcol("b", "id")}},
		Projection: []ast.ColRef{col("id")},
	}
	_, _, err := PlanSelect(c, sel)
	if !errors.Is(err, ErrAmbiguousColumn) {
		t.Fatalf("expected ErrAmbiguousColumn, got %v", err)
	}
}
