package rewrite_test

import (
	"testing"

	"github.com/frankban/quicktest"

	sqlparser "github.com/oarkflow/sqlparser"
	"github.com/oarkflow/sqlparser/printer"
	"github.com/oarkflow/sqlparser/rewrite"
)

func TestBuildJSONThreeLevelNestingEmbedsChildAggregates(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT division_id, division_name, dept_id, dept_name, team_id, team_name, emp_id, emp_name FROM staffing")
	flat := stmt.(*sqlparser.SelectStmt)

	built, err := rewrite.BuildJSON(flat, rewrite.JsonMapping{
		RootName: "Division",
		RootEntity: rewrite.EntityMapping{
			ID:      "division_id",
			Columns: map[string]string{"id": "division_id", "name": "division_name"},
		},
		UseJSONB: true,
		NestedEntities: []rewrite.NestedEntity{
			{
				EntityMapping:    rewrite.EntityMapping{ID: "dept_id", Columns: map[string]string{"id": "dept_id", "name": "dept_name"}},
				ParentID:         "division_id",
				PropertyName:     "departments",
				RelationshipType: rewrite.RelArray,
			},
			{
				EntityMapping:    rewrite.EntityMapping{ID: "team_id", Columns: map[string]string{"id": "team_id", "name": "team_name"}},
				ParentID:         "dept_id",
				PropertyName:     "teams",
				RelationshipType: rewrite.RelArray,
			},
			{
				EntityMapping:    rewrite.EntityMapping{ID: "emp_id", Columns: map[string]string{"id": "emp_id", "name": "emp_name"}},
				ParentID:         "team_id",
				PropertyName:     "employees",
				RelationshipType: rewrite.RelArray,
			},
		},
	})
	c.Assert(err, quicktest.IsNil)

	text, _, err := printer.Format(built, printer.Style{IdentifierEscape: printer.EscapeDoubleQuote})
	c.Assert(err, quicktest.IsNil)

	// Three array stages, deepest first.
	c.Assert(text, quicktest.Contains, "stage_1_dept_id")
	c.Assert(text, quicktest.Contains, "stage_2_team_id")
	c.Assert(text, quicktest.Contains, "stage_3_emp_id")

	// Each level's jsonb_build_object embeds the already-built child
	// aggregate property rather than leaving it a sibling stage output.
	c.Assert(text, quicktest.Contains, "'teams'")
	c.Assert(text, quicktest.Contains, "'employees'")
	c.Assert(text, quicktest.Contains, "'departments'")
}
