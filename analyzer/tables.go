package analyzer

import (
	"strings"

	"github.com/oarkflow/sqlparser/ast"
)

// TableRef is one physical table reference discovered by
// TableReferenceCollector — a real base table, never a CTE name.
type TableRef struct {
	Name      string // unqualified table name
	Qualifier string // schema/database qualifier, if any
	Alias     string
}

// TableReferenceCollector enumerates physical table references across the
// full statement, including nested subqueries and join sources, excluding
// any name that resolves to a CTE defined somewhere in the statement's WITH
// chain (those are logical, not physical, relations).
func TableReferenceCollector(stmt ast.Statement) []TableRef {
	c := &tableCollector{cteNames: make(map[string]bool)}
	c.collectStatement(stmt)
	var out []TableRef
	for _, r := range c.order {
		out = append(out, r)
	}
	return out
}

type tableCollector struct {
	cteNames map[string]bool
	order    []TableRef
	seen     map[string]bool
}

func (c *tableCollector) registerCTEs(w *ast.WithClause) {
	if w == nil {
		return
	}
	for _, cte := range w.CTEs {
		c.cteNames[strings.ToLower(cte.Name.Unquoted)] = true
	}
}

func (c *tableCollector) collectStatement(stmt ast.Statement) {
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		c.registerCTEs(s.With)
		if s.With != nil {
			for _, cte := range s.With.CTEs {
				c.collectStatement(cte.Subq)
			}
		}
		for _, f := range s.From {
			c.walkTableRef(f)
		}
		c.walkExprForSubqueries(s.Where)
		c.walkExprForSubqueries(s.Having)
		for _, g := range s.GroupBy {
			c.walkExprForSubqueries(g)
		}
		for _, col := range s.Columns {
			c.walkExprForSubqueries(col.Expr)
		}
		if s.SetOp != nil && s.SetOp.Right != nil {
			c.collectStatement(s.SetOp.Right)
		}
	case *ast.InsertStmt:
		c.registerCTEs(s.With)
		c.addTable(s.Table, nil)
		if s.Select != nil {
			c.collectStatement(s.Select)
		}
	case *ast.UpdateStmt:
		c.registerCTEs(s.With)
		for _, t := range s.Tables {
			c.walkTableRef(t)
		}
		c.walkExprForSubqueries(s.Where)
	case *ast.DeleteStmt:
		c.registerCTEs(s.With)
		for _, t := range s.Tables {
			c.addTable(t, nil)
		}
		for _, f := range s.From {
			c.walkTableRef(f)
		}
		c.walkExprForSubqueries(s.Where)
	case *ast.MergeStmt:
		c.registerCTEs(s.With)
		c.addTable(s.Target, s.TargetAlias)
		c.walkTableRef(s.Source)
		c.walkExprForSubqueries(s.On)
	case *ast.ExplainStmt:
		c.collectStatement(s.Stmt)
	}
}

func (c *tableCollector) walkTableRef(t ast.TableRef) {
	switch v := t.(type) {
	case *ast.SimpleTable:
		c.addTable(v.Name, v.Alias)
	case *ast.SubqueryTable:
		c.collectStatement(v.Subq)
	case *ast.JoinTable:
		c.walkTableRef(v.Left)
		c.walkTableRef(v.Right)
		c.walkExprForSubqueries(v.On)
	}
}

func (c *tableCollector) addTable(name *ast.QualifiedIdent, alias *ast.Ident) {
	if name == nil || len(name.Parts) == 0 {
		return
	}
	leaf := name.Parts[len(name.Parts)-1].Unquoted
	if c.cteNames[strings.ToLower(leaf)] {
		return
	}
	qualifier := ""
	if len(name.Parts) > 1 {
		qualifier = name.Parts[len(name.Parts)-2].Unquoted
	}
	key := strings.ToLower(qualifier + "." + leaf)
	if alias != nil {
		key += "#" + strings.ToLower(alias.Unquoted)
	}
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	ref := TableRef{Name: leaf, Qualifier: qualifier}
	if alias != nil {
		ref.Alias = alias.Unquoted
	}
	c.order = append(c.order, ref)
}

// walkExprForSubqueries descends an expression tree looking only for nested
// SELECTs (scalar subqueries, EXISTS, IN (subquery)) — full expression
// traversal is unnecessary since table references only ever hide there.
func (c *tableCollector) walkExprForSubqueries(e ast.Expr) {
	switch v := e.(type) {
	case nil:
		return
	case *ast.SubqueryExpr:
		c.collectStatement(v.Subq)
	case *ast.ExistsExpr:
		c.collectStatement(v.Subq)
	case *ast.InExpr:
		if v.Subq != nil {
			c.collectStatement(v.Subq)
		}
		for _, item := range v.List {
			c.walkExprForSubqueries(item)
		}
		c.walkExprForSubqueries(v.Expr)
	case *ast.BinaryExpr:
		c.walkExprForSubqueries(v.Left)
		c.walkExprForSubqueries(v.Right)
	case *ast.UnaryExpr:
		c.walkExprForSubqueries(v.Expr)
	case *ast.BetweenExpr:
		c.walkExprForSubqueries(v.Expr)
		c.walkExprForSubqueries(v.Lo)
		c.walkExprForSubqueries(v.Hi)
	case *ast.LikeExpr:
		c.walkExprForSubqueries(v.Expr)
		c.walkExprForSubqueries(v.Pattern)
	case *ast.IsNullExpr:
		c.walkExprForSubqueries(v.Expr)
	case *ast.CaseExpr:
		c.walkExprForSubqueries(v.Operand)
		for _, w := range v.Whens {
			c.walkExprForSubqueries(w.Cond)
			c.walkExprForSubqueries(w.Result)
		}
		c.walkExprForSubqueries(v.Else)
	case *ast.FuncCall:
		for _, a := range v.Args {
			c.walkExprForSubqueries(a)
		}
		c.walkExprForSubqueries(v.Filter)
	case *ast.CastExpr:
		c.walkExprForSubqueries(v.Expr)
	}
}
