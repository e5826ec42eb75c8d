// ABOUTME: Resolves the row schema a plan node produces, without executing it
// ABOUTME: Join sides are qualified "table.column" the same way the planner names projections

package executor

import (
	"fmt"

	"github.com/nainya/sqlengine/pkg/catalog"
	"github.com/nainya/sqlengine/pkg/planner"
	"github.com/nainya/sqlengine/pkg/sqlvalue"
)

func nodeSchema(cat *catalog.Catalog, node planner.Node) (sqlvalue.Schema, error) {
	switch n := node.(type) {
	case planner.SeqScan:
		tbl, err := cat.Table(n.Table)
		if err != nil {
			return sqlvalue.Schema{}, err
		}
		return tbl.Schema(), nil

	case planner.IndexScan:
		tbl, err := cat.Table(n.Table)
		if err != nil {
			return sqlvalue.Schema{}, err
		}
		return tbl.Schema(), nil

	case planner.UnionScan:
		return nodeSchema(cat, n.Left)

	case planner.NLJoin:
		return joinSchema(cat, n.Outer, n.Inner)

	case planner.MergeJoin:
		return joinSchema(cat, n.Left, n.Right)

	case planner.Filter:
		return nodeSchema(cat, n.Input)

	case planner.Project:
		if n.Columns == nil {
			return nodeSchema(cat, n.Input)
		}
		inputSchema, err := nodeSchema(cat, n.Input)
		if err != nil {
			return sqlvalue.Schema{}, err
		}
		columns := make([]sqlvalue.Column, len(n.Columns))
		for i, name := range n.Columns {
			pos := inputSchema.IndexOf(name)
			if pos == -1 {
				return sqlvalue.Schema{}, errColumnNotFound(name)
			}
			columns[i] = sqlvalue.Column{Name: name, Type: inputSchema.Columns[pos].Type}
		}
		return sqlvalue.NewSchema(columns)

	default:
		return sqlvalue.Schema{}, fmt.Errorf("executor: unknown plan node %T", node)
	}
}

func joinSchema(cat *catalog.Catalog, left, right planner.Node) (sqlvalue.Schema, error) {
	leftSchema, err := nodeSchema(cat, left)
	if err != nil {
		return sqlvalue.Schema{}, err
	}
	rightSchema, err := nodeSchema(cat, right)
	if err != nil {
		return sqlvalue.Schema{}, err
	}
	return qualify(tableNameOf(left), leftSchema).Concat(qualify(tableNameOf(right), rightSchema)), nil
}

func qualify(table string, schema sqlvalue.Schema) sqlvalue.Schema {
	columns := make([]sqlvalue.Column, len(schema.Columns))
	for i, c := range schema.Columns {
		columns[i] = sqlvalue.Column{Name: table + "." + c.Name, Type: c.Type}
	}
	return sqlvalue.Schema{Columns: columns}
}

// tableNameOf returns the single source table of a scan node. Join operands
// are always a scan variant (SeqScan/IndexScan/UnionScan): this engine plans
// only two-table joins, never joins of joins.
func tableNameOf(node planner.Node) string {
	switch n := node.(type) {
	case planner.SeqScan:
		return n.Table
	case planner.IndexScan:
		return n.Table
	case planner.UnionScan:
		return n.Left.Table
	default:
		return ""
	}
}
