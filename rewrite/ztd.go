package rewrite

import (
	"strings"

	"github.com/oarkflow/sqlparser/analyzer"
	"github.com/oarkflow/sqlparser/ast"
	sqlerrors "github.com/oarkflow/sqlparser/errors"
	"github.com/oarkflow/sqlparser/fixture"
	"github.com/oarkflow/sqlparser/lexer"
)

// Options configures RewriteForFixtures.
type Options struct {
	Policy           fixture.MissingPolicy
	TableDefinitions map[string]TableDef // lowercased table name -> definition
	Diagnostics      *[]string           // optional sink for warn-policy notices
}

// RewriteForFixtures is the ZTD entry point: it turns stmt plus a fixture
// set into an equivalent read-only SELECT that evaluates against fixture
// rows alone. SELECT statements are returned with base tables shadowed;
// INSERT/UPDATE/DELETE/MERGE are lowered to the result-SELECT form the
// original would have produced via RETURNING, or a row count when it
// carries none.
func RewriteForFixtures(stmt ast.Statement, fixtures *fixture.Set, opts Options) (*ast.SelectStmt, error) {
	refs := analyzer.TableReferenceCollector(stmt)
	required := make([]string, 0, len(refs))
	seen := make(map[string]bool)
	for _, r := range refs {
		key := strings.ToLower(r.Name)
		if !seen[key] {
			seen[key] = true
			required = append(required, r.Name)
		}
	}

	missing, err := fixtures.CheckCoverage(required, opts.Policy, "")
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 && opts.Policy == fixture.PolicyWarn && opts.Diagnostics != nil {
		*opts.Diagnostics = append(*opts.Diagnostics, "missing fixtures for: "+strings.Join(missing, ", "))
	}
	missingSet := make(map[string]bool, len(missing))
	for _, m := range missing {
		missingSet[strings.ToLower(m)] = true
	}

	shadowOf := func(existing *ast.WithClause) (*ast.WithClause, error) {
		return attachShadowCTEs(existing, refs, fixtures, missingSet, opts.TableDefinitions)
	}

	switch s := stmt.(type) {
	case *ast.SelectStmt:
		with, err := shadowOf(s.With)
		if err != nil {
			return nil, err
		}
		out := *s
		out.With = with
		return &out, nil
	case *ast.InsertStmt:
		return rewriteInsert(s, shadowOf, opts)
	case *ast.UpdateStmt:
		return rewriteUpdate(s, shadowOf, opts)
	case *ast.DeleteStmt:
		return rewriteDelete(s, shadowOf, opts)
	case *ast.MergeStmt:
		return rewriteMerge(s, shadowOf, opts)
	default:
		return nil, &sqlerrors.ValidationError{Msg: "ZTD rewrite does not support this statement kind", Component: "rewrite.RewriteForFixtures"}
	}
}

type shadowFunc func(existing *ast.WithClause) (*ast.WithClause, error)

// attachShadowCTEs prepends one fixture-backed CTE per physical table
// reference (skipping tables under the passthrough/warn-missing set and
// CTE names, which TableReferenceCollector already excludes) ahead of any
// user-defined CTEs already on existing, so name resolution always finds
// the fixture shadow first.
func attachShadowCTEs(existing *ast.WithClause, refs []analyzer.TableRef, fixtures *fixture.Set, missing map[string]bool, defs map[string]TableDef) (*ast.WithClause, error) {
	added := make(map[string]bool)
	var shadows []ast.CTE
	for _, r := range refs {
		key := strings.ToLower(r.Name)
		if missing[key] || added[key] {
			continue
		}
		tbl := fixtures.Get(r.Name)
		if tbl == nil {
			continue
		}
		if duplicateCTEName(existing, r.Name) {
			return nil, &sqlerrors.ValidationError{
				Msg:       "fixture shadow CTE collides with a user-defined CTE of the same name",
				Component: "rewrite.attachShadowCTEs",
				FieldNames: []string{r.Name},
			}
		}
		def := resolveTableDef(r.Name, defs, tbl)
		shadows = append(shadows, buildShadowCTE(r.Name, def, tbl))
		added[key] = true
	}
	if len(shadows) == 0 {
		return existing, nil
	}
	out := &ast.WithClause{}
	out.CTEs = append(out.CTEs, shadows...)
	if existing != nil {
		out.Recursive = existing.Recursive
		out.CTEs = append(out.CTEs, existing.CTEs...)
	}
	return out, nil
}

const insertedRowsCTE = "__inserted_rows"
const mergeActionRowsCTE = "__merge_action_rows"

func rewriteInsert(s *ast.InsertStmt, shadowOf shadowFunc, opts Options) (*ast.SelectStmt, error) {
	tableName := leafName(s.Table)
	def, ok := opts.TableDefinitions[strings.ToLower(tableName)]
	if !ok {
		return nil, &sqlerrors.ValidationError{
			Msg:       "INSERT rewrite requires a resolved table definition",
			Component: "rewrite.rewriteInsert",
			FieldNames: []string{tableName},
		}
	}

	var insertedRows *ast.SelectStmt
	if s.Select != nil {
		insertedRows = s.Select
	} else {
		rows, err := buildInsertedRowSelects(s, def)
		if err != nil {
			return nil, err
		}
		insertedRows = rows
	}

	with, err := shadowOf(s.With)
	if err != nil {
		return nil, err
	}
	with = prependCTE(with, ast.CTE{Name: &ast.Ident{Unquoted: insertedRowsCTE}, Subq: insertedRows})

	return resultSelect(with, insertedRowsCTE, s.Returning, def)
}

// buildInsertedRowSelects constructs the "VALUES (...) UNION ALL ..." body
// for an INSERT, one SELECT per row with every column present (explicit
// values cast to the declared type; omitted NOT NULL columns fall back to
// a declared default or fail; omitted nullable columns become NULL).
func buildInsertedRowSelects(s *ast.InsertStmt, def TableDef) (*ast.SelectStmt, error) {
	explicitCols := s.Columns
	if len(explicitCols) == 0 {
		explicitCols = make([]*ast.Ident, len(def.Columns))
		for i, cd := range def.Columns {
			explicitCols[i] = &ast.Ident{Unquoted: cd.Name}
		}
	}

	var chain, body *ast.SelectStmt
	for _, row := range s.Values {
		values := make(map[string]ast.Expr, len(row))
		for i, e := range row {
			if i >= len(explicitCols) {
				break
			}
			values[strings.ToLower(explicitCols[i].Unquoted)] = e
		}
		cols := make([]ast.SelectColumn, len(def.Columns))
		for i, cd := range def.Columns {
			expr, ok := values[strings.ToLower(cd.Name)]
			if !ok {
				switch {
				case cd.Default != nil:
					expr = cd.Default
				case !cd.NotNull:
					expr = &ast.NullLit{}
				default:
					return nil, &sqlerrors.ValidationError{
						Msg:       "no value or default available for NOT NULL column",
						Component: "rewrite.buildInsertedRowSelects",
						FieldNames: []string{cd.Name},
					}
				}
			}
			cols[i] = ast.SelectColumn{
				Expr:  &ast.CastExpr{Expr: expr, Type: &ast.DataType{Name: []byte(cd.Type)}},
				Alias: &ast.Ident{Unquoted: cd.Name},
			}
		}
		sel := &ast.SelectStmt{Columns: cols}
		if chain == nil {
			chain, body = sel, sel
			continue
		}
		chain.SetOp = &ast.SetOperation{Op: ast.Union, All: true, Right: sel}
		chain = sel
	}
	return body, nil
}

func rewriteUpdate(s *ast.UpdateStmt, shadowOf shadowFunc, opts Options) (*ast.SelectStmt, error) {
	with, err := shadowOf(s.With)
	if err != nil {
		return nil, err
	}
	base := &ast.SelectStmt{
		With:  with,
		From:  s.Tables,
		Where: s.Where,
	}
	def := tableDefForRefs(s.Tables, opts.TableDefinitions)
	return countOrReturning(base, s.Returning, s.Set, def)
}

func rewriteDelete(s *ast.DeleteStmt, shadowOf shadowFunc, opts Options) (*ast.SelectStmt, error) {
	with, err := shadowOf(s.With)
	if err != nil {
		return nil, err
	}
	from := s.From
	base := &ast.SelectStmt{
		With:  with,
		From:  from,
		Where: s.Where,
	}
	def := tableDefForRefs(from, opts.TableDefinitions)
	return countOrReturning(base, s.Returning, nil, def)
}

// countOrReturning finishes an UPDATE/DELETE lowering: with a RETURNING
// clause the base SELECT's column list becomes the requested projection
// (substituting SET expressions for any returned column UPDATE assigns);
// without one, it collapses to SELECT count(*) over the same FROM/WHERE.
func countOrReturning(base *ast.SelectStmt, returning []ast.SelectColumn, set []ast.Assignment, def TableDef) (*ast.SelectStmt, error) {
	if len(returning) == 0 {
		base.Columns = []ast.SelectColumn{countStarColumn()}
		return base, nil
	}
	assignByCol := make(map[string]ast.Expr, len(set))
	for _, a := range set {
		assignByCol[strings.ToLower(a.Column.Unquoted)] = a.Value
	}
	cols, err := expandReturning(returning, def, assignByCol)
	if err != nil {
		return nil, err
	}
	base.Columns = cols
	return base, nil
}

func resultSelect(with *ast.WithClause, sourceCTE string, returning []ast.SelectColumn, def TableDef) (*ast.SelectStmt, error) {
	src := &ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: sourceCTE}}}}
	if len(returning) == 0 {
		return &ast.SelectStmt{
			With:    with,
			Columns: []ast.SelectColumn{countStarColumn()},
			From:    []ast.TableRef{src},
		}, nil
	}
	cols, err := expandReturning(returning, def, nil)
	if err != nil {
		return nil, err
	}
	return &ast.SelectStmt{With: with, Columns: cols, From: []ast.TableRef{src}}, nil
}

// countStarColumn builds the count(*) AS "count" column every
// RETURNING-less write path falls back to. The alias is forced to print
// quoted since it collides with the function name it aliases.
func countStarColumn() ast.SelectColumn {
	return ast.SelectColumn{
		Expr:  &ast.FuncCall{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: "count"}}}, Star: true},
		Alias: &ast.Ident{Unquoted: "count", ForceQuote: true},
	}
}

// expandReturning turns a RETURNING list into select columns, expanding a
// bare `*` against def's declared columns and substituting, for UPDATE,
// any returned column that SET also assigns so the projection reflects the
// post-write value rather than the pre-write one.
func expandReturning(returning []ast.SelectColumn, def TableDef, assignByCol map[string]ast.Expr) ([]ast.SelectColumn, error) {
	var out []ast.SelectColumn
	for _, rc := range returning {
		if rc.Star {
			for _, cd := range def.Columns {
				expr := ast.Expr(&ast.Ident{Unquoted: cd.Name})
				if v, ok := assignByCol[strings.ToLower(cd.Name)]; ok {
					expr = v
				}
				out = append(out, ast.SelectColumn{Expr: expr, Alias: &ast.Ident{Unquoted: cd.Name}})
			}
			continue
		}
		if id, ok := rc.Expr.(*ast.Ident); ok {
			if v, ok := assignByCol[strings.ToLower(id.Unquoted)]; ok {
				out = append(out, ast.SelectColumn{Expr: v, Alias: id})
				continue
			}
		}
		out = append(out, rc)
	}
	return out, nil
}

func leafName(q *ast.QualifiedIdent) string {
	if q == nil || len(q.Parts) == 0 {
		return ""
	}
	return q.Parts[len(q.Parts)-1].Unquoted
}

func tableDefForRefs(refs []ast.TableRef, defs map[string]TableDef) TableDef {
	for _, tr := range refs {
		if st, ok := tr.(*ast.SimpleTable); ok {
			if d, ok := defs[strings.ToLower(leafName(st.Name))]; ok {
				return d
			}
		}
	}
	return TableDef{}
}

func prependCTE(with *ast.WithClause, cte ast.CTE) *ast.WithClause {
	out := &ast.WithClause{CTEs: []ast.CTE{cte}}
	if with != nil {
		out.Recursive = with.Recursive
		out.CTEs = append(out.CTEs, with.CTEs...)
	}
	return out
}

func rewriteMerge(s *ast.MergeStmt, shadowOf shadowFunc, opts Options) (*ast.SelectStmt, error) {
	with, err := shadowOf(s.With)
	if err != nil {
		return nil, err
	}

	joined := &ast.JoinTable{
		Left:  &ast.SimpleTable{Name: s.Target, Alias: s.TargetAlias},
		Right: s.Source,
		Kind:  ast.InnerJoin,
		On:    s.On,
	}

	var chain, body *ast.SelectStmt
	for _, cl := range s.Clauses {
		pred := branchPredicate(s.On, cl)
		sel := &ast.SelectStmt{
			Columns: []ast.SelectColumn{{Expr: &ast.Literal{Raw: []byte("1")}}},
			From:    []ast.TableRef{joined},
			Where:   pred,
		}
		if chain == nil {
			chain, body = sel, sel
			continue
		}
		chain.SetOp = &ast.SetOperation{Op: ast.Union, All: true, Right: sel}
		chain = sel
	}
	if body == nil {
		body = &ast.SelectStmt{
			Columns: []ast.SelectColumn{{Expr: &ast.Literal{Raw: []byte("1")}}},
			From:    []ast.TableRef{joined},
			Where:   &ast.Literal{Raw: []byte("false")},
		}
	}

	with = prependCTE(with, ast.CTE{Name: &ast.Ident{Unquoted: mergeActionRowsCTE}, Subq: body})
	src := &ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: mergeActionRowsCTE}}}}
	return &ast.SelectStmt{With: with, Columns: []ast.SelectColumn{countStarColumn()}, From: []ast.TableRef{src}}, nil
}

// branchPredicate is the WHEN [NOT] MATCHED [AND extra] condition, folded
// with the join predicate negation MERGE semantics require: a MATCHED
// branch fires only where the ON predicate held, a NOT MATCHED branch only
// where it did not.
func branchPredicate(on ast.Expr, cl ast.MergeClause) ast.Expr {
	base := on
	if !cl.Matched {
		base = &ast.UnaryExpr{Op: lexer.NOT, Expr: on}
	}
	if cl.ExtraCond == nil {
		return base
	}
	return &ast.BinaryExpr{Left: base, Op: lexer.AND, Right: cl.ExtraCond}
}
