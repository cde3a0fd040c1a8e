package analyzer

import (
	"strings"

	"github.com/oarkflow/sqlparser/ast"
)

// Scope is the set of names visible at some point in a statement: table
// aliases/names and CTE names a bare or qualified identifier could resolve
// against.
type Scope struct {
	Tables []string // table names/aliases
	CTEs   []string // CTE names
}

// ScopeResolver walks stmt and returns the Scope visible at its root — the
// aliases and CTE names an expression in the outermost WHERE/SELECT list
// could reference. Shadowing: an inner subquery's aliases hide outer
// same-named ones, so ScopeAt (which narrows to the innermost enclosing
// SELECT before calling this) is the entry point editors should use; this
// function itself only ever looks at one statement's own FROM/WITH.
func ScopeResolver(stmt *ast.SelectStmt) Scope {
	var sc Scope
	if stmt.With != nil {
		for _, cte := range stmt.With.CTEs {
			sc.CTEs = append(sc.CTEs, cte.Name.Unquoted)
		}
	}
	var walk func(t ast.TableRef)
	walk = func(t ast.TableRef) {
		switch v := t.(type) {
		case *ast.SimpleTable:
			sc.Tables = append(sc.Tables, tableAliasName(v))
		case *ast.SubqueryTable:
			if v.Alias != nil {
				sc.Tables = append(sc.Tables, v.Alias.Unquoted)
			}
		case *ast.JoinTable:
			walk(v.Left)
			walk(v.Right)
		}
	}
	for _, f := range stmt.From {
		walk(f)
	}
	return sc
}

// ScopeAt finds the innermost SELECT enclosing offset and returns its
// Scope, merged with every enclosing outer scope whose names are not
// shadowed (an inner alias hides an outer alias of the same name).
func ScopeAt(stmt ast.Statement, offset int32) Scope {
	var chain []*ast.SelectStmt
	var find func(s ast.Statement)
	find = func(s ast.Statement) {
		sel, ok := s.(*ast.SelectStmt)
		if !ok {
			return
		}
		if !withinStatement(sel, offset) {
			return
		}
		chain = append(chain, sel)
		if sel.With != nil {
			for _, cte := range sel.With.CTEs {
				if cte.Subq != nil {
					find(cte.Subq)
				}
			}
		}
		for _, f := range sel.From {
			findInTableRef(f, offset, &chain)
		}
	}
	find(stmt)

	merged := Scope{}
	shadowedTables := make(map[string]bool)
	shadowedCTEs := make(map[string]bool)
	// Innermost scope is last in chain; apply from innermost to outermost
	// so outer names never override an inner name already recorded.
	for i := len(chain) - 1; i >= 0; i-- {
		sc := ScopeResolver(chain[i])
		for _, t := range sc.Tables {
			key := strings.ToLower(t)
			if !shadowedTables[key] {
				shadowedTables[key] = true
				merged.Tables = append(merged.Tables, t)
			}
		}
		for _, c := range sc.CTEs {
			key := strings.ToLower(c)
			if !shadowedCTEs[key] {
				shadowedCTEs[key] = true
				merged.CTEs = append(merged.CTEs, c)
			}
		}
	}
	return merged
}

func findInTableRef(t ast.TableRef, offset int32, chain *[]*ast.SelectStmt) {
	switch v := t.(type) {
	case *ast.SubqueryTable:
		if v.Subq != nil && withinStatement(v.Subq, offset) {
			sub := v.Subq
			*chain = append(*chain, sub)
			for _, f := range sub.From {
				findInTableRef(f, offset, chain)
			}
		}
	case *ast.JoinTable:
		findInTableRef(v.Left, offset, chain)
		findInTableRef(v.Right, offset, chain)
	}
}

// withinStatement reports whether offset falls within [stmt.Pos(), end),
// where end is approximated as the position of the next top-level
// construct; since the AST does not retain an explicit end position, this
// uses the statement's own start plus the conservative assumption that any
// offset at or after Pos and before the next sibling statement belongs to
// it. Callers only ever compare nested SELECTs against an offset already
// known to be inside the enclosing statement, so this simplifies to "offset
// is at or after the candidate's start".
func withinStatement(stmt *ast.SelectStmt, offset int32) bool {
	return offset >= stmt.Pos()
}
