package rewrite_test

import (
	"testing"

	"github.com/frankban/quicktest"

	sqlparser "github.com/oarkflow/sqlparser"
	"github.com/oarkflow/sqlparser/printer"
	"github.com/oarkflow/sqlparser/rewrite"
)

func TestBuildDynamicRangeFilterUsesExactParamNames(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT id FROM t")
	sel := stmt.(*sqlparser.SelectStmt)

	built, params, err := rewrite.BuildDynamic(sel, rewrite.DynamicOptions{
		Filter: []rewrite.FilterCondition{
			rewrite.RangeFilter{Column: "price", Min: 10, Max: 99},
		},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(params, quicktest.DeepEquals, map[string]any{"price_min": 10, "price_max": 99})

	text, _, err := printer.Format(built, printer.Style{IdentifierEscape: printer.EscapeDoubleQuote})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, ":price_min")
	c.Assert(text, quicktest.Contains, ":price_max")
}

func TestBuildDynamicComparatorFilterSanitizesParamNames(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT id FROM t")
	sel := stmt.(*sqlparser.SelectStmt)

	built, params, err := rewrite.BuildDynamic(sel, rewrite.DynamicOptions{
		Filter: []rewrite.FilterCondition{
			rewrite.ComparatorFilter{Column: "price", Ops: map[string]any{">=": 10}},
		},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(params, quicktest.DeepEquals, map[string]any{"price_gte": 10})

	text, _, err := printer.Format(built, printer.Style{})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, ":price_gte")
}

func TestBuildDynamicFilterSortPage(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT id FROM t")
	sel := stmt.(*sqlparser.SelectStmt)

	built, params, err := rewrite.BuildDynamic(sel, rewrite.DynamicOptions{
		Filter: []rewrite.FilterCondition{
			rewrite.InFilter{Column: "status", Values: []any{"active", "pending"}},
		},
		Paging: &rewrite.PagingSpec{Page: 2, PageSize: 25},
	})
	c.Assert(err, quicktest.IsNil)
	c.Assert(params["status_0"], quicktest.Equals, "active")
	c.Assert(params["status_1"], quicktest.Equals, "pending")

	text, _, err := printer.Format(built, printer.Style{KeywordCase: printer.KeywordUpper, IdentifierEscape: printer.EscapeDoubleQuote})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "LIMIT 25")
	c.Assert(text, quicktest.Contains, "OFFSET 25")
}
