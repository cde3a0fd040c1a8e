package rewrite_test

import (
	"testing"

	"github.com/frankban/quicktest"

	sqlparser "github.com/oarkflow/sqlparser"
	"github.com/oarkflow/sqlparser/fixture"
	"github.com/oarkflow/sqlparser/printer"
	"github.com/oarkflow/sqlparser/rewrite"
)

func mustParse(t *testing.T, sql string) sqlparser.Statement {
	t.Helper()
	stmt, err := sqlparser.ParseStatement(sql)
	if err != nil {
		t.Fatalf("parse error: %v\nSQL: %s", err, sql)
	}
	return stmt
}

func TestRewriteForFixturesInsertWithoutRows(t *testing.T) {
	c := quicktest.New(t)

	stmt := mustParse(t, "INSERT INTO users(email,active) VALUES (:e,:a)")
	set := fixture.NewSet()
	set.Table("users") // declared, zero rows

	rewritten, err := rewrite.RewriteForFixtures(stmt, set, rewrite.Options{})
	c.Assert(err, quicktest.IsNil)

	text, params, err := printer.Format(rewritten, printer.Style{KeywordCase: printer.KeywordUpper, IdentifierEscape: printer.EscapeDoubleQuote})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, `WITH "users" AS`)
	c.Assert(text, quicktest.Contains, "WHERE false")
	c.Assert(text, quicktest.Contains, "__inserted_rows")
	c.Assert(text, quicktest.Contains, `SELECT count(*) AS "count"`)
	c.Assert(params, quicktest.DeepEquals, []string{"e", "a"})
}

func TestRewriteForFixturesFixtureCTEPrecedence(t *testing.T) {
	c := quicktest.New(t)

	stmt := mustParse(t, "WITH recent AS (SELECT 1) UPDATE users SET active=false WHERE id IN (SELECT 1 FROM recent)")
	set := fixture.NewSet()
	set.Table("users").Row(fixture.Row{"id": "1", "active": true})

	rewritten, err := rewrite.RewriteForFixtures(stmt, set, rewrite.Options{})
	c.Assert(err, quicktest.IsNil)
	c.Assert(rewritten.With, quicktest.Not(quicktest.IsNil))
	c.Assert(rewritten.With.CTEs[0].Name.Unquoted, quicktest.Equals, "users")
}

func TestRewriteForFixturesMissingTableErrors(t *testing.T) {
	c := quicktest.New(t)

	stmt := mustParse(t, "DELETE FROM orders WHERE id = :id")
	set := fixture.NewSet()

	_, err := rewrite.RewriteForFixtures(stmt, set, rewrite.Options{Policy: fixture.PolicyError})
	c.Assert(err, quicktest.IsNotNil)
	c.Assert(err, quicktest.ErrorMatches, ".*orders.*")
}

func TestRewriteForFixturesDeleteCount(t *testing.T) {
	c := quicktest.New(t)

	stmt := mustParse(t, "DELETE FROM orders WHERE status = :s")
	set := fixture.NewSet()
	set.Table("orders").Row(fixture.Row{"id": "1", "status": "open"})

	rewritten, err := rewrite.RewriteForFixtures(stmt, set, rewrite.Options{})
	c.Assert(err, quicktest.IsNil)

	text, _, err := printer.Format(rewritten, printer.Style{KeywordCase: printer.KeywordUpper})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "count(*)")
}
