package rewrite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oarkflow/sqlparser/ast"
	sqlerrors "github.com/oarkflow/sqlparser/errors"
	"github.com/oarkflow/sqlparser/lexer"
)

// FilterCondition is the closed sum of filter shapes the dynamic query
// builder accepts, mirroring the AST's own marker-method pattern (see
// ast.Expr) rather than a loosely-typed map, so adding a shape is a
// compile-time exhaustiveness check in buildFilterExpr.
type FilterCondition interface {
	filterNode()
}

// EqFilter binds column = value.
type EqFilter struct {
	Column string
	Value  any
}

// InFilter binds column IN (values...).
type InFilter struct {
	Column string
	Values []any
}

// RangeFilter binds column BETWEEN min AND max.
type RangeFilter struct {
	Column   string
	Min, Max any
}

// ComparatorFilter binds one or more of column >=/>/<=/< value, ANDed.
type ComparatorFilter struct {
	Column string
	Ops    map[string]any // keys: ">", ">=", "<", "<="
}

// LikeFilter binds column LIKE/ILIKE pattern.
type LikeFilter struct {
	Column          string
	Pattern         string
	CaseInsensitive bool
}

// AndFilter/OrFilter nest sub-conditions under AND/OR.
type AndFilter struct{ Conditions []FilterCondition }
type OrFilter struct{ Conditions []FilterCondition }

// ExistsFilter renders a column-anchored EXISTS/NOT EXISTS subquery: Table
// is the correlated source, Anchors supplies the parent columns bound to
// the nested conditions' `$c0, $c1, ...` placeholders in declaration order.
type ExistsFilter struct {
	Table      string
	Anchors    []string
	Conditions []FilterCondition
	Not        bool
}

func (EqFilter) filterNode()         {}
func (InFilter) filterNode()         {}
func (RangeFilter) filterNode()      {}
func (ComparatorFilter) filterNode() {}
func (LikeFilter) filterNode()       {}
func (AndFilter) filterNode()        {}
func (OrFilter) filterNode()         {}
func (ExistsFilter) filterNode()     {}

// SortSpec is one ORDER BY injection.
type SortSpec struct {
	Column     string
	Desc       bool
	NullsFirst *bool
}

// PagingSpec computes LIMIT/OFFSET from a 1-based page number.
type PagingSpec struct {
	Page     int
	PageSize int
}

// SchemaInfo supplies the unique-key metadata unused-LEFT-JOIN pruning
// needs: without it, a join can never be proven safe to drop.
type SchemaInfo struct {
	UniqueKeys map[string][]string // table/alias (lowercased) -> unique key columns
}

// DynamicOptions configures BuildDynamic. Steps run in the fixed order
// filter -> sort -> page -> prune-left-joins -> prune-ctes, each observing
// the AST the previous step produced.
type DynamicOptions struct {
	Filter                []FilterCondition
	Sort                  []SortSpec
	Paging                *PagingSpec
	SchemaInfo            *SchemaInfo
	RemoveUnusedLeftJoins bool
	RemoveUnusedCTEs      bool
	ExistsStrict          bool
}

// BuildDynamic applies filter injection, sort injection, paging, and
// optional dead-join/CTE pruning to sel, returning the rewritten statement
// and the parameter bindings the injected filter/paging literals require.
func BuildDynamic(sel *ast.SelectStmt, opts DynamicOptions) (*ast.SelectStmt, map[string]any, error) {
	out := *sel
	params := make(map[string]any)

	if len(opts.Filter) > 0 {
		idx := paramIndexer{}
		expr, err := buildFilterGroup(opts.Filter, &idx, params, opts.ExistsStrict)
		if err != nil {
			return nil, nil, err
		}
		if out.Where != nil {
			out.Where = &ast.BinaryExpr{Left: out.Where, Op: lexer.AND, Right: expr}
		} else {
			out.Where = expr
		}
	}

	if len(opts.Sort) > 0 {
		items := make([]ast.OrderByItem, len(opts.Sort))
		for i, s := range opts.Sort {
			items[i] = ast.OrderByItem{Expr: identForColumn(s.Column), Desc: s.Desc, NullsFirst: s.NullsFirst}
		}
		out.OrderBy = items
	}

	if opts.Paging != nil {
		if opts.Paging.PageSize <= 0 {
			return nil, nil, &sqlerrors.ValidationError{Msg: "invalid page size", Component: "rewrite.BuildDynamic", FieldNames: []string{"pageSize"}}
		}
		page := opts.Paging.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * opts.Paging.PageSize
		out.Limit = &ast.LimitClause{
			Count:  &ast.Literal{Raw: []byte(strconv.Itoa(opts.Paging.PageSize))},
			Offset: &ast.Literal{Raw: []byte(strconv.Itoa(offset))},
		}
	}

	if opts.RemoveUnusedLeftJoins && opts.SchemaInfo != nil {
		out.From = pruneUnusedLeftJoins(out.From, &out, opts.SchemaInfo)
	}

	if opts.RemoveUnusedCTEs {
		out.With = pruneUnusedCTEs(out.With, &out)
	}

	return &out, params, nil
}

type paramIndexer struct{ seq map[string]int }

func (p *paramIndexer) next(column string) string {
	if p.seq == nil {
		p.seq = make(map[string]int)
	}
	n := p.seq[column]
	p.seq[column] = n + 1
	return fmt.Sprintf("%s_%d", sanitizeParamName(column), n)
}

func sanitizeParamName(column string) string {
	return strings.ReplaceAll(strings.ToLower(column), ".", "_")
}

func identForColumn(column string) ast.Expr {
	if qual, name, ok := strings.Cut(column, "."); ok {
		return &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: qual}, {Unquoted: name}}}
	}
	return &ast.Ident{Unquoted: column}
}

func buildFilterGroup(conds []FilterCondition, idx *paramIndexer, params map[string]any, strict bool) (ast.Expr, error) {
	var combined ast.Expr
	for _, c := range conds {
		e, err := buildFilterExpr(c, idx, params, strict)
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		if combined == nil {
			combined = e
			continue
		}
		combined = &ast.BinaryExpr{Left: combined, Op: lexer.AND, Right: e}
	}
	return combined, nil
}

func bindParam(idx *paramIndexer, params map[string]any, column string, value any) *ast.Param {
	name := idx.next(column)
	params[name] = value
	return &ast.Param{Raw: []byte(":" + name)}
}

// bindParamExact binds value to name verbatim (sanitized, but never run
// through paramIndexer's "_<n>" disambiguation suffix). RangeFilter and
// ComparatorFilter need this: their bound names are already unique by
// construction (column name plus a fixed "_min"/"_max"/operator suffix), and
// the caller-visible contract names them exactly, e.g. ":price_min".
func bindParamExact(params map[string]any, name string, value any) *ast.Param {
	name = sanitizeParamName(name)
	params[name] = value
	return &ast.Param{Raw: []byte(":" + name)}
}

// comparatorSuffix maps a comparator operator to the identifier-safe suffix
// used in its bound parameter name, since the raw operator text (">=") is
// not a valid placeholder name fragment.
var comparatorSuffix = map[string]string{
	">":  "gt",
	">=": "gte",
	"<":  "lt",
	"<=": "lte",
}

func buildFilterExpr(c FilterCondition, idx *paramIndexer, params map[string]any, strict bool) (ast.Expr, error) {
	switch f := c.(type) {
	case EqFilter:
		p := bindParam(idx, params, f.Column, f.Value)
		return &ast.BinaryExpr{Left: identForColumn(f.Column), Op: lexer.EQ, Right: p}, nil
	case InFilter:
		list := make([]ast.Expr, len(f.Values))
		for i, v := range f.Values {
			list[i] = bindParam(idx, params, f.Column, v)
		}
		return &ast.InExpr{Expr: identForColumn(f.Column), List: list}, nil
	case RangeFilter:
		lo := bindParamExact(params, f.Column+"_min", f.Min)
		hi := bindParamExact(params, f.Column+"_max", f.Max)
		return &ast.BetweenExpr{Expr: identForColumn(f.Column), Lo: lo, Hi: hi}, nil
	case ComparatorFilter:
		return buildComparatorExpr(f, idx, params)
	case LikeFilter:
		p := bindParam(idx, params, f.Column, f.Pattern)
		return &ast.LikeExpr{Expr: identForColumn(f.Column), Pattern: p, CaseInsensitive: f.CaseInsensitive}, nil
	case AndFilter:
		return buildFilterGroup(f.Conditions, idx, params, strict)
	case OrFilter:
		var combined ast.Expr
		for _, sub := range f.Conditions {
			e, err := buildFilterExpr(sub, idx, params, strict)
			if err != nil {
				return nil, err
			}
			if e == nil {
				continue
			}
			if combined == nil {
				combined = e
				continue
			}
			combined = &ast.BinaryExpr{Left: combined, Op: lexer.OR, Right: e}
		}
		return combined, nil
	case ExistsFilter:
		return buildExistsExpr(f, idx, params, strict)
	default:
		return nil, &sqlerrors.ValidationError{Msg: "unrecognized filter condition shape", Component: "rewrite.buildFilterExpr"}
	}
}

var comparatorOps = map[string]lexer.TokenType{
	">":  lexer.GT,
	">=": lexer.GTE,
	"<":  lexer.LT,
	"<=": lexer.LTE,
}

func buildComparatorExpr(f ComparatorFilter, idx *paramIndexer, params map[string]any) (ast.Expr, error) {
	keys := make([]string, 0, len(f.Ops))
	for k := range f.Ops {
		keys = append(keys, k)
	}
	sortStrings(keys)
	var combined ast.Expr
	for _, k := range keys {
		op, ok := comparatorOps[k]
		if !ok {
			return nil, &sqlerrors.ValidationError{Msg: "unrecognized comparator operator", Component: "rewrite.buildComparatorExpr", FieldNames: []string{k}}
		}
		p := bindParamExact(params, f.Column+"_"+comparatorSuffix[k], f.Ops[k])
		cmp := &ast.BinaryExpr{Left: identForColumn(f.Column), Op: op, Right: p}
		if combined == nil {
			combined = cmp
			continue
		}
		combined = &ast.BinaryExpr{Left: combined, Op: lexer.AND, Right: cmp}
	}
	return combined, nil
}

// buildExistsExpr renders a correlated EXISTS/NOT EXISTS subquery. Each
// nested condition's column name may use `$c0`, `$c1`, ... placeholders,
// resolved against f.Anchors by position; under existsStrict a placeholder
// with no matching anchor is an error, otherwise that condition is skipped.
func buildExistsExpr(f ExistsFilter, idx *paramIndexer, params map[string]any, strict bool) (ast.Expr, error) {
	resolved := make([]FilterCondition, 0, len(f.Conditions))
	for _, c := range f.Conditions {
		rc, skip, err := resolveAnchors(c, f.Anchors, strict)
		if err != nil {
			return nil, err
		}
		if !skip {
			resolved = append(resolved, rc)
		}
	}
	where, err := buildFilterGroup(resolved, idx, params, strict)
	if err != nil {
		return nil, err
	}
	sub := &ast.SelectStmt{
		Columns: []ast.SelectColumn{{Expr: &ast.Literal{Raw: []byte("1")}}},
		From:    []ast.TableRef{&ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: f.Table}}}}},
		Where:   where,
	}
	return &ast.ExistsExpr{Subq: sub, Not: f.Not}, nil
}

// resolveAnchors rewrites a single-column filter's $cN placeholder column
// name to the anchor column at index N.
func resolveAnchors(c FilterCondition, anchors []string, strict bool) (FilterCondition, bool, error) {
	col := conditionColumn(c)
	if col == "" || !strings.HasPrefix(col, "$c") {
		return c, false, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(col, "$c"))
	if err != nil || n < 0 || n >= len(anchors) {
		if strict {
			return nil, false, &sqlerrors.ValidationError{Msg: "EXISTS anchor placeholder has no matching anchor column", Component: "rewrite.resolveAnchors", FieldNames: []string{col}}
		}
		return nil, true, nil
	}
	return withColumn(c, anchors[n]), false, nil
}

func conditionColumn(c FilterCondition) string {
	switch f := c.(type) {
	case EqFilter:
		return f.Column
	case InFilter:
		return f.Column
	case RangeFilter:
		return f.Column
	case ComparatorFilter:
		return f.Column
	case LikeFilter:
		return f.Column
	default:
		return ""
	}
}

func withColumn(c FilterCondition, col string) FilterCondition {
	switch f := c.(type) {
	case EqFilter:
		f.Column = col
		return f
	case InFilter:
		f.Column = col
		return f
	case RangeFilter:
		f.Column = col
		return f
	case ComparatorFilter:
		f.Column = col
		return f
	case LikeFilter:
		f.Column = col
		return f
	default:
		return c
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// pruneUnusedLeftJoins drops LEFT/LEFT OUTER joins whose right side is a
// simple table joined on a column declared unique in schema and whose
// alias is never referenced anywhere else in the statement: such a join
// can only filter rows out (it can't, LEFT preserves cardinality) or
// duplicate them (it can't, the join key is unique), so it contributes
// nothing but cost.
func pruneUnusedLeftJoins(refs []ast.TableRef, sel *ast.SelectStmt, schema *SchemaInfo) []ast.TableRef {
	out := make([]ast.TableRef, len(refs))
	for i, r := range refs {
		out[i] = pruneJoinTree(r, sel, schema)
	}
	return out
}

func pruneJoinTree(ref ast.TableRef, sel *ast.SelectStmt, schema *SchemaInfo) ast.TableRef {
	jt, ok := ref.(*ast.JoinTable)
	if !ok {
		return ref
	}
	jt.Left = pruneJoinTree(jt.Left, sel, schema)
	jt.Right = pruneJoinTree(jt.Right, sel, schema)

	if jt.Kind != ast.LeftJoin && jt.Kind != ast.LeftOuterJoin {
		return jt
	}
	st, ok := jt.Right.(*ast.SimpleTable)
	if !ok {
		return jt
	}
	alias := tableRefAlias(st)
	if alias == "" || !joinKeyIsUnique(jt, alias, schema) {
		return jt
	}
	used := collectQualifiers(sel, jt.On)
	if used[strings.ToLower(alias)] {
		return jt
	}
	return jt.Left
}

func tableRefAlias(st *ast.SimpleTable) string {
	if st.Alias != nil {
		return st.Alias.Unquoted
	}
	if st.Name != nil && len(st.Name.Parts) > 0 {
		return st.Name.Parts[len(st.Name.Parts)-1].Unquoted
	}
	return ""
}

// joinKeyIsUnique reports whether jt.On is a single equality (or AND-chain
// of equalities) pinning every column schema declares unique for alias.
func joinKeyIsUnique(jt *ast.JoinTable, alias string, schema *SchemaInfo) bool {
	keys, ok := schema.UniqueKeys[strings.ToLower(alias)]
	if !ok || len(keys) == 0 || jt.On == nil {
		return false
	}
	pinned := map[string]bool{}
	collectEqualityColumns(jt.On, alias, pinned)
	for _, k := range keys {
		if !pinned[strings.ToLower(k)] {
			return false
		}
	}
	return true
}

func collectEqualityColumns(e ast.Expr, alias string, out map[string]bool) {
	b, ok := e.(*ast.BinaryExpr)
	if !ok {
		return
	}
	if b.Op == lexer.AND {
		collectEqualityColumns(b.Left, alias, out)
		collectEqualityColumns(b.Right, alias, out)
		return
	}
	if b.Op != lexer.EQ {
		return
	}
	for _, side := range []ast.Expr{b.Left, b.Right} {
		if q, ok := side.(*ast.QualifiedIdent); ok && len(q.Parts) == 2 && strings.EqualFold(q.Parts[0].Unquoted, alias) {
			out[strings.ToLower(q.Parts[1].Unquoted)] = true
		}
	}
}

// collectQualifiers walks every expression reachable from sel (excluding
// skip, typically the join's own ON clause) and returns the lowercased set
// of table/alias qualifiers referenced.
func collectQualifiers(sel *ast.SelectStmt, skip ast.Expr) map[string]bool {
	out := map[string]bool{}
	walk := func(e ast.Expr) { walkExpr(e, skip, out) }
	for _, c := range sel.Columns {
		walk(c.Expr)
	}
	for _, r := range sel.From {
		walkTableRef(r, skip, out)
	}
	if sel.Where != skip {
		walk(sel.Where)
	}
	for _, g := range sel.GroupBy {
		walk(g)
	}
	walk(sel.Having)
	for _, o := range sel.OrderBy {
		walk(o.Expr)
	}
	return out
}

func walkTableRef(r ast.TableRef, skip ast.Expr, out map[string]bool) {
	switch t := r.(type) {
	case *ast.JoinTable:
		if t.On != skip {
			walkExpr(t.On, skip, out)
		}
		walkTableRef(t.Left, skip, out)
		walkTableRef(t.Right, skip, out)
	case *ast.SubqueryTable:
		if t.Subq != nil {
			for _, c := range t.Subq.Columns {
				walkExpr(c.Expr, skip, out)
			}
		}
	}
}

func walkExpr(e ast.Expr, skip ast.Expr, out map[string]bool) {
	if e == nil || e == skip {
		return
	}
	switch n := e.(type) {
	case *ast.QualifiedIdent:
		if len(n.Parts) >= 2 {
			out[strings.ToLower(n.Parts[0].Unquoted)] = true
		}
	case *ast.BinaryExpr:
		walkExpr(n.Left, skip, out)
		walkExpr(n.Right, skip, out)
	case *ast.UnaryExpr:
		walkExpr(n.Expr, skip, out)
	case *ast.FuncCall:
		for _, a := range n.Args {
			walkExpr(a, skip, out)
		}
	case *ast.BetweenExpr:
		walkExpr(n.Expr, skip, out)
		walkExpr(n.Lo, skip, out)
		walkExpr(n.Hi, skip, out)
	case *ast.InExpr:
		walkExpr(n.Expr, skip, out)
		for _, v := range n.List {
			walkExpr(v, skip, out)
		}
	case *ast.LikeExpr:
		walkExpr(n.Expr, skip, out)
		walkExpr(n.Pattern, skip, out)
	case *ast.IsNullExpr:
		walkExpr(n.Expr, skip, out)
	case *ast.CastExpr:
		walkExpr(n.Expr, skip, out)
	case *ast.CaseExpr:
		walkExpr(n.Operand, skip, out)
		for _, w := range n.Whens {
			walkExpr(w.Cond, skip, out)
			walkExpr(w.Result, skip, out)
		}
		walkExpr(n.Else, skip, out)
	}
}

// pruneUnusedCTEs removes non-recursive CTEs never referenced by name in
// the final query or in any surviving CTE's own body, repeating to a fixed
// point since removing one CTE can orphan another that only it used.
func pruneUnusedCTEs(with *ast.WithClause, sel *ast.SelectStmt) *ast.WithClause {
	if with == nil {
		return nil
	}
	ctes := with.CTEs
	for {
		referenced := map[string]bool{}
		for _, r := range sel.From {
			collectFromTableNames(r, referenced)
		}
		for _, c := range ctes {
			if c.Subq != nil {
				for _, r := range c.Subq.From {
					collectFromTableNames(r, referenced)
				}
			}
		}
		kept := ctes[:0:0]
		changed := false
		for _, c := range ctes {
			if !c.Recursive && !with.Recursive && !referenced[strings.ToLower(c.Name.Unquoted)] {
				changed = true
				continue
			}
			kept = append(kept, c)
		}
		ctes = kept
		if !changed {
			break
		}
	}
	if len(ctes) == 0 {
		return nil
	}
	with.CTEs = ctes
	return with
}

func collectFromTableNames(r ast.TableRef, out map[string]bool) {
	switch t := r.(type) {
	case *ast.SimpleTable:
		if t.Name != nil && len(t.Name.Parts) > 0 {
			out[strings.ToLower(t.Name.Parts[len(t.Name.Parts)-1].Unquoted)] = true
		}
	case *ast.JoinTable:
		collectFromTableNames(t.Left, out)
		collectFromTableNames(t.Right, out)
	case *ast.SubqueryTable:
		if t.Subq != nil {
			for _, r2 := range t.Subq.From {
				collectFromTableNames(r2, out)
			}
		}
	}
}
