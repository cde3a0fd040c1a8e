// Package rewrite implements the three AST-to-AST transform families: the
// Zero-Table-Dependency (ZTD) rewriter that turns CRUD into fixture-backed
// SELECTs, the hierarchical JSON projection builder, and the dynamic query
// builder (filter/sort/page/prune). All three walk and rebuild the node
// types in package ast the way the teacher's own dialect converter walks
// and rebuilds statements in dialect.go, except the output here is a new
// AST rather than text.
package rewrite

import (
	"strings"

	"github.com/oarkflow/sqlparser/ast"
	"github.com/oarkflow/sqlparser/fixture"
)

// ColumnDef is one column of a resolved table definition: its declared SQL
// type, used to CAST fixture literals and to expand RETURNING/SELECT *.
type ColumnDef struct {
	Name     string
	Type     string
	NotNull  bool
	Default  ast.Expr
}

// TableDef is the resolved shape of a base table, supplied by the caller of
// RewriteForFixtures (typically from a schema-discovery JSON file) or
// inferred from the fixture rows themselves when absent.
type TableDef struct {
	Columns []ColumnDef
}

// resolveTableDef returns the column list to shadow tableName with: the
// caller-supplied definition when present, else one inferred from the
// fixture's own rows (column set sorted lexicographically, type guessed
// from the first non-nil value seen for that column).
func resolveTableDef(tableName string, defs map[string]TableDef, tbl *fixture.Table) TableDef {
	if defs != nil {
		if d, ok := defs[strings.ToLower(tableName)]; ok {
			return d
		}
	}
	cols := tbl.Columns()
	out := TableDef{Columns: make([]ColumnDef, len(cols))}
	for i, c := range cols {
		out.Columns[i] = ColumnDef{Name: c, Type: inferColumnType(tbl, c)}
	}
	return out
}

func inferColumnType(tbl *fixture.Table, col string) string {
	for _, row := range tbl.Rows {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		switch v.(type) {
		case bool:
			return "boolean"
		case string:
			return "text"
		default:
			return "numeric"
		}
	}
	return "text"
}

// buildShadowCTE synthesizes the fixture-backed CTE that shadows tableName:
// a UNION ALL of one SELECT per fixture row, each column CAST to its
// declared type on the first row only (subsequent rows inherit the type
// through the UNION), or a single all-NULL row guarded by WHERE false when
// the fixture has no rows, so the CTE still advertises the right column
// names and types.
func buildShadowCTE(tableName string, def TableDef, tbl *fixture.Table) ast.CTE {
	var body *ast.SelectStmt
	if len(tbl.Rows) == 0 {
		body = emptyGuardSelect(def)
	} else {
		var chain *ast.SelectStmt
		for i, row := range tbl.Rows {
			sel := rowSelect(def, row, i == 0)
			if chain == nil {
				chain = sel
				body = chain
				continue
			}
			chain.SetOp = &ast.SetOperation{Op: ast.Union, All: true, Right: sel}
			chain = sel
		}
	}
	return ast.CTE{
		Name: &ast.Ident{Unquoted: tableName},
		Subq: body,
	}
}

func rowSelect(def TableDef, row fixture.Row, cast bool) *ast.SelectStmt {
	cols := make([]ast.SelectColumn, len(def.Columns))
	for i, cd := range def.Columns {
		expr := literalExprForValue(row[cd.Name])
		if cast {
			expr = &ast.CastExpr{Expr: expr, Type: &ast.DataType{Name: []byte(cd.Type)}}
		}
		cols[i] = ast.SelectColumn{Expr: expr, Alias: &ast.Ident{Unquoted: cd.Name}}
	}
	return &ast.SelectStmt{Columns: cols}
}

// emptyGuardSelect produces the zero-row shape for a fixture with no rows:
// every column CAST(NULL AS type), filtered out by a constant-false WHERE.
func emptyGuardSelect(def TableDef) *ast.SelectStmt {
	cols := make([]ast.SelectColumn, len(def.Columns))
	for i, cd := range def.Columns {
		cols[i] = ast.SelectColumn{
			Expr:  &ast.CastExpr{Expr: &ast.NullLit{}, Type: &ast.DataType{Name: []byte(cd.Type)}},
			Alias: &ast.Ident{Unquoted: cd.Name},
		}
	}
	return &ast.SelectStmt{
		Columns: cols,
		Where:   &ast.Literal{Raw: []byte("false")},
	}
}

func literalExprForValue(v any) ast.Expr {
	switch t := v.(type) {
	case nil:
		return &ast.NullLit{}
	case bool:
		if t {
			return &ast.Literal{Raw: []byte("true")}
		}
		return &ast.Literal{Raw: []byte("false")}
	default:
		return &ast.Literal{Raw: []byte(fixture.RenderLiteral(v))}
	}
}

func duplicateCTEName(existing *ast.WithClause, name string) bool {
	if existing == nil {
		return false
	}
	for _, c := range existing.CTEs {
		if strings.EqualFold(c.Name.Unquoted, name) {
			return true
		}
	}
	return false
}
