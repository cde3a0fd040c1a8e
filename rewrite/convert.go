package rewrite

import (
	"strconv"

	"github.com/oarkflow/sqlparser/ast"
	sqlerrors "github.com/oarkflow/sqlparser/errors"
)

// InsertQueryOptions parameterizes BuildInsertQuery.
type InsertQueryOptions struct {
	Table     string
	Columns   []string
	Returning []ast.SelectColumn
}

// BuildInsertQuery wraps source as the SELECT body of an INSERT INTO
// options.Table (options.Columns) SELECT ... statement, the inverse of
// ConvertInsertSelectToValues.
func BuildInsertQuery(source *ast.SelectStmt, opts InsertQueryOptions) (*ast.InsertStmt, error) {
	if opts.Table == "" {
		return nil, &sqlerrors.ValidationError{Msg: "insert target table is required", Component: "rewrite.BuildInsertQuery", FieldNames: []string{"table"}}
	}
	return &ast.InsertStmt{
		Table:     &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: opts.Table}}},
		Columns:   idents(opts.Columns),
		Select:    source,
		Returning: opts.Returning,
	}, nil
}

// UpdateQueryOptions parameterizes BuildUpdateQuery.
type UpdateQueryOptions struct {
	Table     string
	Set       []ast.Assignment
	Where     ast.Expr
	Returning []ast.SelectColumn
}

// BuildUpdateQuery constructs a single-table UPDATE statement.
func BuildUpdateQuery(opts UpdateQueryOptions) (*ast.UpdateStmt, error) {
	if opts.Table == "" || len(opts.Set) == 0 {
		return nil, &sqlerrors.ValidationError{Msg: "update requires a table and at least one assignment", Component: "rewrite.BuildUpdateQuery"}
	}
	return &ast.UpdateStmt{
		Tables:    []ast.TableRef{&ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: opts.Table}}}}},
		Set:       opts.Set,
		Where:     opts.Where,
		Returning: opts.Returning,
	}, nil
}

// DeleteQueryOptions parameterizes BuildDeleteQuery.
type DeleteQueryOptions struct {
	Table     string
	Where     ast.Expr
	Returning []ast.SelectColumn
}

// BuildDeleteQuery constructs a single-table DELETE statement.
func BuildDeleteQuery(opts DeleteQueryOptions) (*ast.DeleteStmt, error) {
	if opts.Table == "" {
		return nil, &sqlerrors.ValidationError{Msg: "delete target table is required", Component: "rewrite.BuildDeleteQuery", FieldNames: []string{"table"}}
	}
	ref := &ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: opts.Table}}}}
	return &ast.DeleteStmt{
		Tables:    []*ast.QualifiedIdent{ref.Name},
		From:      []ast.TableRef{ref},
		Where:     opts.Where,
		Returning: opts.Returning,
	}, nil
}

// MergeQueryOptions parameterizes BuildMergeQuery.
type MergeQueryOptions struct {
	Target      string
	TargetAlias string
	Source      ast.TableRef
	On          ast.Expr
	Clauses     []ast.MergeClause
}

// BuildMergeQuery constructs a MERGE statement from its target/source/on
// clauses, the same shape rewriteMerge consumes.
func BuildMergeQuery(opts MergeQueryOptions) (*ast.MergeStmt, error) {
	if opts.Target == "" || opts.Source == nil || opts.On == nil {
		return nil, &sqlerrors.ValidationError{Msg: "merge requires target, source, and an ON predicate", Component: "rewrite.BuildMergeQuery"}
	}
	m := &ast.MergeStmt{
		Target:  &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: opts.Target}}},
		Source:  opts.Source,
		On:      opts.On,
		Clauses: opts.Clauses,
	}
	if opts.TargetAlias != "" {
		m.TargetAlias = &ast.Ident{Unquoted: opts.TargetAlias}
	}
	return m, nil
}

// CreateTableQueryOptions parameterizes BuildCreateTableQuery.
type CreateTableQueryOptions struct {
	Table       string
	Columns     []*ast.ColumnDef
	IfNotExists bool
}

// BuildCreateTableQuery constructs a CREATE TABLE statement from a resolved
// column list, the shape a schema-discovery tool or a ZTD TableDef produces.
func BuildCreateTableQuery(opts CreateTableQueryOptions) (*ast.CreateTableStmt, error) {
	if opts.Table == "" || len(opts.Columns) == 0 {
		return nil, &sqlerrors.ValidationError{Msg: "create table requires a name and at least one column", Component: "rewrite.BuildCreateTableQuery"}
	}
	return &ast.CreateTableStmt{
		Table:       &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: opts.Table}}},
		Columns:     opts.Columns,
		IfNotExists: opts.IfNotExists,
	}, nil
}

// ConvertInsertValuesToSelect turns a VALUES-form INSERT's row list into a
// UNION ALL chain of literal SELECTs, the same row-per-SELECT shape
// buildShadowCTE uses for fixture rows, so a VALUES insert and a
// SELECT-sourced insert can share one downstream code path.
func ConvertInsertValuesToSelect(ins *ast.InsertStmt) (*ast.SelectStmt, error) {
	if ins.Select != nil {
		return ins.Select, nil
	}
	if len(ins.Values) == 0 {
		return nil, &sqlerrors.ValidationError{Msg: "insert has no VALUES rows to convert", Component: "rewrite.ConvertInsertValuesToSelect"}
	}
	names := columnNames(ins)
	var chain, first *ast.SelectStmt
	for _, row := range ins.Values {
		if len(row) != len(names) {
			return nil, &sqlerrors.ValidationError{Msg: "VALUES row arity does not match column list", Component: "rewrite.ConvertInsertValuesToSelect"}
		}
		cols := make([]ast.SelectColumn, len(row))
		for i, v := range row {
			cols[i] = ast.SelectColumn{Expr: v, Alias: &ast.Ident{Unquoted: names[i]}}
		}
		sel := &ast.SelectStmt{Columns: cols}
		if chain == nil {
			chain, first = sel, sel
			continue
		}
		chain.SetOp = &ast.SetOperation{Op: ast.Union, All: true, Right: sel}
		chain = sel
	}
	return first, nil
}

// ConvertInsertSelectToValues is the inverse: it collapses a SELECT-sourced
// INSERT back into a VALUES list, provided every row in the UNION ALL chain
// is a constant row (every column a Literal, NullLit, or Param) rather than
// a computed expression or a real subquery over base tables.
func ConvertInsertSelectToValues(ins *ast.InsertStmt) (*ast.InsertStmt, error) {
	if ins.Select == nil {
		return ins, nil
	}
	rows, err := literalRows(ins.Select)
	if err != nil {
		return nil, err
	}
	out := *ins
	out.Select = nil
	out.Values = rows
	return &out, nil
}

func literalRows(sel *ast.SelectStmt) ([][]ast.Expr, error) {
	var rows [][]ast.Expr
	cur := sel
	for cur != nil {
		row := make([]ast.Expr, len(cur.Columns))
		for i, c := range cur.Columns {
			if !isConstExpr(c.Expr) {
				return nil, &sqlerrors.ValidationError{Msg: "SELECT source is not a constant row, cannot convert to VALUES", Component: "rewrite.ConvertInsertSelectToValues"}
			}
			row[i] = c.Expr
		}
		rows = append(rows, row)
		if cur.SetOp == nil {
			break
		}
		if cur.SetOp.Op != ast.Union || !cur.SetOp.All {
			return nil, &sqlerrors.ValidationError{Msg: "SELECT source uses a non-UNION-ALL set operation, cannot convert to VALUES", Component: "rewrite.ConvertInsertSelectToValues"}
		}
		cur = cur.SetOp.Right
	}
	return rows, nil
}

func isConstExpr(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Literal, *ast.NullLit, *ast.Param:
		return true
	case *ast.CastExpr:
		return isConstExpr(n.Expr)
	default:
		return false
	}
}

func idents(names []string) []*ast.Ident {
	out := make([]*ast.Ident, len(names))
	for i, n := range names {
		out[i] = &ast.Ident{Unquoted: n}
	}
	return out
}

func columnNames(ins *ast.InsertStmt) []string {
	if len(ins.Columns) > 0 {
		out := make([]string, len(ins.Columns))
		for i, c := range ins.Columns {
			out[i] = c.Unquoted
		}
		return out
	}
	if len(ins.Values) > 0 {
		out := make([]string, len(ins.Values[0]))
		for i := range out {
			out[i] = "col" + strconv.Itoa(i+1)
		}
		return out
	}
	return nil
}
