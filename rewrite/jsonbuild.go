package rewrite

import (
	"sort"
	"strconv"
	"strings"

	"github.com/oarkflow/sqlparser/analyzer"
	"github.com/oarkflow/sqlparser/ast"
	sqlerrors "github.com/oarkflow/sqlparser/errors"
	"github.com/oarkflow/sqlparser/lexer"
)

// RelationshipType selects how a nested entity attaches to its parent: as
// a JSON array (one row per parent group aggregates into a list) or as a
// single JSON object (cardinality-preserving, null-guarded).
type RelationshipType uint8

const (
	RelArray RelationshipType = iota
	RelObject
)

// ResultFormat selects the outer shape of BuildJSON's output: one row per
// root entity aggregated into a JSON array, or a single JSON object.
type ResultFormat uint8

const (
	ResultArray ResultFormat = iota
	ResultSingle
)

// EmptyResult selects what an empty input set renders as.
type EmptyResult uint8

const (
	EmptyArray EmptyResult = iota
	EmptyNull
)

// EntityMapping names one level of the hierarchy: ID is the SQL column in
// the flat projection acting as that entity's key (used to GROUP BY and to
// detect an all-NULL outer-join row), Columns maps each JSON property name
// to the flat projection's SQL column supplying it.
type EntityMapping struct {
	ID      string
	Columns map[string]string // jsonProp -> sqlColumn
}

// NestedEntity is one non-root node in the hierarchy.
type NestedEntity struct {
	EntityMapping
	ParentID         string
	PropertyName     string
	RelationshipType RelationshipType
}

// JsonMapping is the declarative hierarchy description BuildJSON lowers.
type JsonMapping struct {
	RootName       string
	RootEntity     EntityMapping
	NestedEntities []NestedEntity
	UseJSONB       bool
	ResultFormat   ResultFormat
	EmptyResult    EmptyResult
}

// BuildJSON lowers flat (a row-per-leaf SELECT) plus mapping into a chain
// of CTEs that aggregate flat rows into the nested JSON shape mapping
// describes: one aggregation stage per array entity (deepest first), one
// null-guarded projection per object entity, and a final root CTE the
// outer query reduces to an array or a single JSON value.
func BuildJSON(flat *ast.SelectStmt, mapping JsonMapping) (*ast.SelectStmt, error) {
	if err := validateMapping(mapping); err != nil {
		return nil, err
	}
	available := flatColumnSet(flat)
	if err := validateColumnsPresent(mapping, available); err != nil {
		return nil, err
	}

	byID := entitiesByID(mapping)
	depth := computeDepths(mapping)
	childProps := childPropertiesByParent(mapping)

	cur := "origin_query"
	with := &ast.WithClause{CTEs: []ast.CTE{{
		Name: &ast.Ident{Unquoted: cur},
		Subq: flat,
	}}}

	// order processes leaves before their parents, so by the time a stage
	// for ent builds, any entity whose ParentID is ent.ID already folded
	// its aggregate into cur under its own PropertyName. mergeChildColumns
	// embeds those already-built child properties into ent's own object
	// instead of letting them stay siblings of it.
	order := orderDeepestFirst(mapping, depth)
	for _, ent := range order {
		groupCols := ancestorKeys(ent.ParentID, byID)
		entCols := mergeChildColumns(ent.Columns, childProps[ent.ID])
		var name string
		switch ent.RelationshipType {
		case RelArray:
			name = "stage_" + strconv.Itoa(depth[ent.ID]) + "_" + strings.ToLower(ent.ID)
			stage := buildArrayStage(cur, groupCols, ent, entCols, mapping.UseJSONB)
			with.CTEs = append(with.CTEs, ast.CTE{Name: &ast.Ident{Unquoted: name}, Subq: stage})
		default:
			name = "stage_" + strconv.Itoa(depth[ent.ID]) + "_" + strings.ToLower(ent.ID) + "_obj"
			stage := buildObjectStage(cur, ent, entCols, mapping.UseJSONB)
			with.CTEs = append(with.CTEs, ast.CTE{Name: &ast.Ident{Unquoted: name}, Subq: stage})
		}
		cur = name
	}

	rootCTEName := "cte_root_" + strings.ToLower(mapping.RootName)
	rootStage := buildRootStage(cur, mapping)
	with.CTEs = append(with.CTEs, ast.CTE{Name: &ast.Ident{Unquoted: rootCTEName}, Subq: rootStage})

	return buildOuterQuery(with, rootCTEName, mapping), nil
}

func validateMapping(m JsonMapping) error {
	seen := map[string]bool{m.RootEntity.ID: true}
	parents := map[string]string{}
	for _, e := range m.NestedEntities {
		if seen[e.ID] {
			return &sqlerrors.ValidationError{Msg: "duplicate entity id in JSON mapping", Component: "rewrite.BuildJSON", FieldNames: []string{e.ID}}
		}
		seen[e.ID] = true
		parents[e.ID] = e.ParentID
	}
	for _, e := range m.NestedEntities {
		if !seen[e.ParentID] {
			return &sqlerrors.ValidationError{Msg: "parentId does not reference a known entity", Component: "rewrite.BuildJSON", FieldNames: []string{e.ID, e.ParentID}}
		}
	}
	// Cycle detection: walk each entity's parent chain and bail if it
	// revisits itself before reaching the root.
	for id := range parents {
		visited := map[string]bool{}
		cur := id
		for cur != m.RootEntity.ID {
			if visited[cur] {
				return &sqlerrors.ValidationError{Msg: "cycle detected in JSON mapping hierarchy", Component: "rewrite.BuildJSON", FieldNames: []string{id}}
			}
			visited[cur] = true
			next, ok := parents[cur]
			if !ok {
				break
			}
			cur = next
		}
	}
	return nil
}

func validateColumnsPresent(m JsonMapping, available map[string]bool) error {
	check := func(entID string, cols map[string]string) error {
		for _, sqlCol := range cols {
			if !available[strings.ToLower(sqlCol)] {
				return &sqlerrors.ValidationError{Msg: "entity column is not present in the flat projection", Component: "rewrite.BuildJSON", FieldNames: []string{entID, sqlCol}}
			}
		}
		return nil
	}
	if err := check(m.RootEntity.ID, m.RootEntity.Columns); err != nil {
		return err
	}
	for _, e := range m.NestedEntities {
		if err := check(e.ID, e.Columns); err != nil {
			return err
		}
	}
	return nil
}

func flatColumnSet(flat *ast.SelectStmt) map[string]bool {
	cols := analyzer.SelectableColumnCollector(flat, analyzer.ColumnNameOnly, false)
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[strings.ToLower(c.Name)] = true
	}
	return set
}

func entitiesByID(m JsonMapping) map[string]NestedEntity {
	out := make(map[string]NestedEntity, len(m.NestedEntities)+1)
	out[m.RootEntity.ID] = NestedEntity{EntityMapping: m.RootEntity}
	for _, e := range m.NestedEntities {
		out[e.ID] = e
	}
	return out
}

func computeDepths(m JsonMapping) map[string]int {
	depth := map[string]int{m.RootEntity.ID: 0}
	parent := map[string]string{}
	for _, e := range m.NestedEntities {
		parent[e.ID] = e.ParentID
	}
	var resolve func(id string) int
	resolve = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		d := resolve(parent[id]) + 1
		depth[id] = d
		return d
	}
	for _, e := range m.NestedEntities {
		resolve(e.ID)
	}
	return depth
}

// orderDeepestFirst returns nested entities ordered by descending depth,
// ties broken by entity id for determinism — the array/object lowering
// pipeline always folds leaves into their parents before the parent's own
// stage is built.
func orderDeepestFirst(m JsonMapping, depth map[string]int) []NestedEntity {
	out := make([]NestedEntity, len(m.NestedEntities))
	copy(out, m.NestedEntities)
	sort.SliceStable(out, func(i, j int) bool {
		if depth[out[i].ID] != depth[out[j].ID] {
			return depth[out[i].ID] > depth[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ancestorKeys walks parentID's chain to the root, collecting each
// ancestor's key column — the GROUP BY list an array stage must carry so
// sibling branches and shallower stages can still correlate on it.
func ancestorKeys(parentID string, byID map[string]NestedEntity) []string {
	var keys []string
	cur := parentID
	for {
		ent, ok := byID[cur]
		if !ok {
			break
		}
		keys = append([]string{ent.ID}, keys...)
		if ent.ParentID == "" {
			break
		}
		cur = ent.ParentID
	}
	return keys
}

// childPropertiesByParent maps each entity id to the PropertyName of every
// entity declaring it as ParentID, in mapping declaration order. An already
// processed child's aggregate lives in cur under exactly this name, so the
// parent's own stage can fold it in as one more key rather than leaving it
// as a same-level sibling column.
func childPropertiesByParent(m JsonMapping) map[string][]string {
	out := map[string][]string{}
	for _, e := range m.NestedEntities {
		out[e.ParentID] = append(out[e.ParentID], e.PropertyName)
	}
	return out
}

// mergeChildColumns folds each name in childProps into cols as an identity
// mapping (propName == sqlColumn, since that is the alias the child's own
// stage gave it), without mutating the caller's map.
func mergeChildColumns(cols map[string]string, childProps []string) map[string]string {
	if len(childProps) == 0 {
		return cols
	}
	merged := make(map[string]string, len(cols)+len(childProps))
	for k, v := range cols {
		merged[k] = v
	}
	for _, p := range childProps {
		merged[p] = p
	}
	return merged
}

func buildArrayStage(source string, groupCols []string, ent NestedEntity, cols map[string]string, useJSONB bool) *ast.SelectStmt {
	selCols := make([]ast.SelectColumn, 0, len(groupCols)+1)
	for _, g := range groupCols {
		selCols = append(selCols, ast.SelectColumn{Expr: &ast.Ident{Unquoted: g}})
	}
	selCols = append(selCols, ast.SelectColumn{
		Expr:  jsonAggExpr(cols, useJSONB),
		Alias: &ast.Ident{Unquoted: ent.PropertyName},
	})
	groupBy := make([]ast.Expr, len(groupCols))
	for i, g := range groupCols {
		groupBy[i] = &ast.Ident{Unquoted: g}
	}
	return &ast.SelectStmt{
		Columns: selCols,
		From:    []ast.TableRef{&ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: source}}}}},
		GroupBy: groupBy,
	}
}

// buildObjectStage adds a null-guarded JSON column for a to-one relation
// without collapsing rows: SELECT *, CASE WHEN all cols NULL THEN NULL
// ELSE jsonb_build_object(...) END AS propertyName FROM source.
func buildObjectStage(source string, ent NestedEntity, cols map[string]string, useJSONB bool) *ast.SelectStmt {
	guard := nullGuardCase(cols, useJSONB)
	selCols := []ast.SelectColumn{
		{Star: true, Expr: &ast.StarExpr{}},
		{Expr: guard, Alias: &ast.Ident{Unquoted: ent.PropertyName}},
	}
	return &ast.SelectStmt{
		Columns: selCols,
		From:    []ast.TableRef{&ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: source}}}}},
	}
}

func nullGuardCase(cols map[string]string, useJSONB bool) ast.Expr {
	names := sortedKeys(cols)
	var cond ast.Expr
	for _, name := range names {
		isNull := &ast.IsNullExpr{Expr: &ast.Ident{Unquoted: cols[name]}}
		if cond == nil {
			cond = isNull
			continue
		}
		cond = &ast.BinaryExpr{Left: cond, Op: lexer.AND, Right: isNull}
	}
	return &ast.CaseExpr{
		Whens: []ast.WhenClause{{Cond: cond, Result: &ast.NullLit{}}},
		Else:  jsonBuildObjectExpr(cols, useJSONB),
	}
}

func buildRootStage(source string, m JsonMapping) *ast.SelectStmt {
	return &ast.SelectStmt{
		Columns: []ast.SelectColumn{{Star: true, Expr: &ast.StarExpr{}}},
		From:    []ast.TableRef{&ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: source}}}}},
	}
}

func buildOuterQuery(with *ast.WithClause, rootCTE string, m JsonMapping) *ast.SelectStmt {
	rootCols := mergeChildColumns(m.RootEntity.Columns, childPropertiesByParent(m)[m.RootEntity.ID])
	rootObj := jsonBuildObjectExpr(rootCols, m.UseJSONB)
	var col ast.SelectColumn
	var limit *ast.LimitClause
	switch m.ResultFormat {
	case ResultSingle:
		col = ast.SelectColumn{Expr: rootObj, Alias: &ast.Ident{Unquoted: "result"}}
		limit = &ast.LimitClause{Count: &ast.Literal{Raw: []byte("1")}}
	default:
		aggName := "json_agg"
		if m.UseJSONB {
			aggName = "jsonb_agg"
		}
		agg := &ast.FuncCall{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: aggName}}}, Args: []ast.Expr{rootObj}}
		var expr ast.Expr = agg
		if m.EmptyResult == EmptyArray {
			fallback := "'[]'::json"
			if m.UseJSONB {
				fallback = "'[]'::jsonb"
			}
			expr = &ast.FuncCall{
				Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: "coalesce"}}},
				Args: []ast.Expr{agg, &ast.Literal{Raw: []byte(fallback)}},
			}
		}
		col = ast.SelectColumn{Expr: expr, Alias: &ast.Ident{Unquoted: "result"}}
	}
	return &ast.SelectStmt{
		With:    with,
		Columns: []ast.SelectColumn{col},
		From:    []ast.TableRef{&ast.SimpleTable{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: rootCTE}}}}},
		Limit:   limit,
	}
}

func jsonAggExpr(cols map[string]string, useJSONB bool) ast.Expr {
	aggName := "json_agg"
	if useJSONB {
		aggName = "jsonb_agg"
	}
	return &ast.FuncCall{
		Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: aggName}}},
		Args: []ast.Expr{jsonBuildObjectExpr(cols, useJSONB)},
	}
}

func jsonBuildObjectExpr(cols map[string]string, useJSONB bool) ast.Expr {
	fnName := "json_build_object"
	if useJSONB {
		fnName = "jsonb_build_object"
	}
	names := sortedKeys(cols)
	args := make([]ast.Expr, 0, len(names)*2)
	for _, prop := range names {
		args = append(args, &ast.Literal{Raw: []byte("'" + prop + "'")})
		args = append(args, &ast.Ident{Unquoted: cols[prop]})
	}
	return &ast.FuncCall{Name: &ast.QualifiedIdent{Parts: []*ast.Ident{{Unquoted: fnName}}}, Args: args}
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
