// Package analyzer implements the read-only collectors that walk a parsed
// AST to answer questions a rewriter or an editor needs before it can act:
// what columns does this SELECT expose, what base tables does it touch,
// what parameters does it take, and what names are visible at a cursor.
// None of these mutate the tree; they mirror the teacher's type-switch
// traversal style (see the former lint visitor) but collect instead of judge.
package analyzer

import (
	"strings"

	"github.com/oarkflow/sqlparser/ast"
)

// ColumnMode selects how SelectableColumnCollector deduplicates and names
// its output columns.
type ColumnMode uint8

const (
	// ColumnNameOnly deduplicates by the bare output name.
	ColumnNameOnly ColumnMode = iota
	// ColumnFullName keeps qualifier.name uniqueness, so "a.id" and "b.id"
	// are distinct entries.
	ColumnFullName
	// ColumnWithWildcards additionally expands `*`/`alias.*` whose source is
	// a CTE declared in the statement's own WITH clause; a star over any
	// other source (a base table or a FROM subquery) contributes no columns.
	ColumnWithWildcards
)

// Column is one output column exposed by a SELECT statement.
type Column struct {
	Name      string // output name: alias, or the expression's natural name
	Qualifier string // table/CTE qualifier, when known ("" if not derivable)
	Expr      ast.Expr
}

// SelectableColumnCollector computes the ordered, deduplicated list of
// output columns visible at the root of stmt. With upstream=true it also
// walks into the bodies of the CTEs declared in stmt's own WITH clause;
// subqueries in FROM are not walked.
func SelectableColumnCollector(stmt *ast.SelectStmt, mode ColumnMode, upstream bool) []Column {
	c := &columnCollector{mode: mode, seen: make(map[string]bool)}
	c.collect(stmt, upstream)
	return c.out
}

type columnCollector struct {
	mode ColumnMode
	seen map[string]bool
	out  []Column
}

func (c *columnCollector) collect(stmt *ast.SelectStmt, upstream bool) {
	if upstream && stmt.With != nil {
		for _, cte := range stmt.With.CTEs {
			if cte.Subq != nil {
				c.collect(cte.Subq, upstream)
			}
		}
	}
	for _, col := range stmt.Columns {
		if col.Star {
			c.collectStar(stmt, col, upstream)
			continue
		}
		name, qualifier := columnIdentity(col)
		c.add(name, qualifier, col.Expr)
	}
	if stmt.SetOp != nil && stmt.SetOp.Right != nil {
		c.collect(stmt.SetOp.Right, upstream)
	}
}

func (c *columnCollector) collectStar(stmt *ast.SelectStmt, col ast.SelectColumn, upstream bool) {
	star, ok := col.Expr.(*ast.StarExpr)
	_ = ok
	qualifier := ""
	if q, ok := col.Expr.(*ast.QualifiedIdent); ok && len(q.Parts) > 0 {
		qualifier = q.Parts[0].Unquoted
	}
	_ = star
	if c.mode != ColumnWithWildcards {
		// Without wildcard expansion the star itself is the best we can
		// report: a single synthetic entry naming the source.
		name := "*"
		if qualifier != "" {
			name = qualifier + ".*"
		}
		c.add(name, qualifier, col.Expr)
		return
	}
	for _, src := range sourceNames(stmt, qualifier) {
		if cteCols := resolveCTEColumns(stmt, src); cteCols != nil {
			for _, cc := range cteCols {
				c.add(cc, src, col.Expr)
			}
		}
	}
}

// sourceNames returns the table/CTE aliases a bare `*` or `alias.*` should
// expand against: either every FROM source (bare star) or just the matching
// one (qualified star).
func sourceNames(stmt *ast.SelectStmt, qualifier string) []string {
	var names []string
	var walk func(t ast.TableRef)
	walk = func(t ast.TableRef) {
		switch v := t.(type) {
		case *ast.SimpleTable:
			alias := tableAliasName(v)
			if qualifier == "" || strings.EqualFold(alias, qualifier) {
				names = append(names, alias)
			}
		case *ast.SubqueryTable:
			if v.Alias != nil && (qualifier == "" || strings.EqualFold(v.Alias.Unquoted, qualifier)) {
				names = append(names, v.Alias.Unquoted)
			}
		case *ast.JoinTable:
			walk(v.Left)
			walk(v.Right)
		}
	}
	for _, f := range stmt.From {
		walk(f)
	}
	return names
}

func tableAliasName(t *ast.SimpleTable) string {
	if t.Alias != nil {
		return t.Alias.Unquoted
	}
	if len(t.Name.Parts) > 0 {
		return t.Name.Parts[len(t.Name.Parts)-1].Unquoted
	}
	return ""
}

// resolveCTEColumns looks up name as a CTE in stmt's own WITH clause and
// returns its column names, recursing into the CTE body's own SELECT list.
func resolveCTEColumns(stmt *ast.SelectStmt, name string) []string {
	if stmt.With == nil {
		return nil
	}
	for _, cte := range stmt.With.CTEs {
		if !strings.EqualFold(cte.Name.Unquoted, name) {
			continue
		}
		if len(cte.Columns) > 0 {
			out := make([]string, len(cte.Columns))
			for i, id := range cte.Columns {
				out[i] = id.Unquoted
			}
			return out
		}
		if cte.Subq == nil {
			return nil
		}
		cols := SelectableColumnCollector(cte.Subq, ColumnNameOnly, false)
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = c.Name
		}
		return out
	}
	return nil
}

func (c *columnCollector) add(name, qualifier string, expr ast.Expr) {
	key := name
	if c.mode == ColumnFullName && qualifier != "" {
		key = qualifier + "." + name
	}
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.out = append(c.out, Column{Name: name, Qualifier: qualifier, Expr: expr})
}

// columnIdentity derives the output name and qualifier for a non-star
// select column: the explicit alias if present, else the trailing
// identifier of a (qualified) reference, else the function name of a call,
// else an empty name.
func columnIdentity(col ast.SelectColumn) (name, qualifier string) {
	if col.Alias != nil {
		return col.Alias.Unquoted, ""
	}
	switch e := col.Expr.(type) {
	case *ast.Ident:
		return e.Unquoted, ""
	case *ast.QualifiedIdent:
		if n := len(e.Parts); n > 0 {
			qualifier = ""
			if n > 1 {
				qualifier = e.Parts[n-2].Unquoted
			}
			return e.Parts[n-1].Unquoted, qualifier
		}
	case *ast.FuncCall:
		if e.Name != nil && len(e.Name.Parts) > 0 {
			return e.Name.Parts[len(e.Name.Parts)-1].Unquoted, ""
		}
	}
	return "", ""
}
