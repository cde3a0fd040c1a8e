package analyzer

import (
	"strconv"

	"github.com/oarkflow/sqlparser/ast"
)

// ParameterCollector returns parameter names (for :name/@name/$name forms,
// or a synthetic positional name "?1", "?2", ... for anonymous `?` markers)
// in first-occurrence order.
func ParameterCollector(stmt ast.Statement) []string {
	c := &paramCollector{seen: make(map[string]bool)}
	c.walkStatement(stmt)
	return c.order
}

type paramCollector struct {
	seen     map[string]bool
	order    []string
	anonSeq  int
}

func (c *paramCollector) emit(name string) {
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.order = append(c.order, name)
}

func (c *paramCollector) param(raw []byte) {
	s := string(raw)
	if s == "?" {
		c.anonSeq++
		// Anonymous markers are positional, not named, so each occurrence
		// is distinct even though the raw text is identical.
		c.order = append(c.order, "?"+strconv.Itoa(c.anonSeq))
		return
	}
	c.emit(s)
}

func (c *paramCollector) walkStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		c.walkWith(s.With)
		for _, col := range s.Columns {
			c.walkExpr(col.Expr)
		}
		for _, f := range s.From {
			c.walkTableRef(f)
		}
		c.walkExpr(s.Where)
		for _, g := range s.GroupBy {
			c.walkExpr(g)
		}
		c.walkExpr(s.Having)
		for _, o := range s.OrderBy {
			c.walkExpr(o.Expr)
		}
		if s.Limit != nil {
			c.walkExpr(s.Limit.Count)
			c.walkExpr(s.Limit.Offset)
		}
		if s.SetOp != nil && s.SetOp.Right != nil {
			c.walkStatement(s.SetOp.Right)
		}
	case *ast.InsertStmt:
		c.walkWith(s.With)
		for _, row := range s.Values {
			for _, e := range row {
				c.walkExpr(e)
			}
		}
		if s.Select != nil {
			c.walkStatement(s.Select)
		}
		for _, a := range s.OnDupKey {
			c.walkExpr(a.Value)
		}
	case *ast.UpdateStmt:
		c.walkWith(s.With)
		for _, a := range s.Set {
			c.walkExpr(a.Value)
		}
		c.walkExpr(s.Where)
	case *ast.DeleteStmt:
		c.walkWith(s.With)
		c.walkExpr(s.Where)
	case *ast.MergeStmt:
		c.walkWith(s.With)
		c.walkExpr(s.On)
		for _, cl := range s.Clauses {
			c.walkExpr(cl.ExtraCond)
			switch a := cl.Action.(type) {
			case *ast.MergeUpdateAction:
				for _, asg := range a.Set {
					c.walkExpr(asg.Value)
				}
			case *ast.MergeInsertAction:
				for _, v := range a.Values {
					c.walkExpr(v)
				}
			}
		}
	case *ast.ExplainStmt:
		c.walkStatement(s.Stmt)
	}
}

func (c *paramCollector) walkWith(w *ast.WithClause) {
	if w == nil {
		return
	}
	for _, cte := range w.CTEs {
		if cte.Subq != nil {
			c.walkStatement(cte.Subq)
		}
	}
}

func (c *paramCollector) walkTableRef(t ast.TableRef) {
	switch v := t.(type) {
	case *ast.SubqueryTable:
		c.walkStatement(v.Subq)
	case *ast.JoinTable:
		c.walkTableRef(v.Left)
		c.walkTableRef(v.Right)
		c.walkExpr(v.On)
	}
}

func (c *paramCollector) walkExpr(e ast.Expr) {
	switch v := e.(type) {
	case nil:
		return
	case *ast.Param:
		c.param(v.Raw)
	case *ast.BinaryExpr:
		c.walkExpr(v.Left)
		c.walkExpr(v.Right)
	case *ast.UnaryExpr:
		c.walkExpr(v.Expr)
	case *ast.BetweenExpr:
		c.walkExpr(v.Expr)
		c.walkExpr(v.Lo)
		c.walkExpr(v.Hi)
	case *ast.InExpr:
		c.walkExpr(v.Expr)
		for _, item := range v.List {
			c.walkExpr(item)
		}
		if v.Subq != nil {
			c.walkStatement(v.Subq)
		}
	case *ast.LikeExpr:
		c.walkExpr(v.Expr)
		c.walkExpr(v.Pattern)
		c.walkExpr(v.Escape)
	case *ast.IsNullExpr:
		c.walkExpr(v.Expr)
	case *ast.ExistsExpr:
		c.walkStatement(v.Subq)
	case *ast.SubqueryExpr:
		c.walkStatement(v.Subq)
	case *ast.CastExpr:
		c.walkExpr(v.Expr)
	case *ast.IntervalExpr:
		c.walkExpr(v.Expr)
	case *ast.CaseExpr:
		c.walkExpr(v.Operand)
		for _, w := range v.Whens {
			c.walkExpr(w.Cond)
			c.walkExpr(w.Result)
		}
		c.walkExpr(v.Else)
	case *ast.FuncCall:
		for _, a := range v.Args {
			c.walkExpr(a)
		}
		c.walkExpr(v.Filter)
		if v.Over != nil {
			for _, p := range v.Over.PartitionBy {
				c.walkExpr(p)
			}
			for _, o := range v.Over.OrderBy {
				c.walkExpr(o.Expr)
			}
		}
	}
}
