package printer_test

import (
	"testing"

	"github.com/frankban/quicktest"

	sqlparser "github.com/oarkflow/sqlparser"
	"github.com/oarkflow/sqlparser/printer"
)

func mustParse(t *testing.T, sql string) sqlparser.Statement {
	t.Helper()
	stmt, err := sqlparser.ParseStatement(sql)
	if err != nil {
		t.Fatalf("parse error: %v\nSQL: %s", err, sql)
	}
	return stmt
}

func TestFormatKeywordCase(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "select id from users where id = 1")

	upper, _, err := printer.Format(stmt, printer.Style{KeywordCase: printer.KeywordUpper, IdentifierEscape: printer.EscapeDoubleQuote})
	c.Assert(err, quicktest.IsNil)
	c.Assert(upper, quicktest.Contains, "SELECT")
	c.Assert(upper, quicktest.Contains, "WHERE")

	lower, _, err := printer.Format(stmt, printer.Style{KeywordCase: printer.KeywordLower})
	c.Assert(err, quicktest.IsNil)
	c.Assert(lower, quicktest.Contains, "select")
}

func TestFormatCastStyle(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT CAST(id AS text) FROM users")

	fn, _, err := printer.Format(stmt, printer.Style{CastStyle: printer.CastFunction, KeywordCase: printer.KeywordUpper})
	c.Assert(err, quicktest.IsNil)
	c.Assert(fn, quicktest.Contains, "CAST(")

	dc, _, err := printer.Format(stmt, printer.Style{CastStyle: printer.CastDoubleColon})
	c.Assert(err, quicktest.IsNil)
	c.Assert(dc, quicktest.Contains, "::")
}

func TestFormatParameterDollarDedupesByName(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT * FROM t WHERE a=:x AND b=:x AND c=:y")

	style := printer.Style{ParameterStyle: printer.ParameterDollar, ParameterSymbol: "$", KeywordCase: printer.KeywordUpper}
	text, params, err := printer.Format(stmt, style)
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "$1")
	c.Assert(text, quicktest.Contains, "$2")
	c.Assert(params, quicktest.DeepEquals, []string{"x", "y"})
}

func TestFormatParameterQuestionMark(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT * FROM t WHERE a = :x")
	text, _, err := printer.Format(stmt, printer.Style{ParameterStyle: printer.ParameterQuestion})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "?")
}

func TestFormatExportCommentHeaderOnly(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT 1")
	text, _, err := printer.Format(stmt, printer.Style{ExportComment: printer.ExportCommentHeaderOnly})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "-- ")
}

func TestFormatExportCommentNoneDropsHeader(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT 1")
	text, _, err := printer.Format(stmt, printer.Style{ExportComment: printer.ExportCommentNone})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Not(quicktest.Contains), "-- ")
}

func TestFormatExportCommentFullPreservesRetainedComment(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT /* User ID */ id FROM users")
	style := printer.Style{
		KeywordCase:      printer.KeywordUpper,
		IdentifierEscape: printer.EscapeDoubleQuote,
		ExportComment:    printer.ExportCommentFull,
		CommentStyle:     printer.CommentSmart,
	}
	text, _, err := printer.Format(stmt, style)
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Equals, `SELECT /* User ID */ "id" FROM "users"`)
}

func TestFormatCommentSmartMergesAdjacentBlocks(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT /* a */ /* b */ id FROM t")
	style := printer.Style{ExportComment: printer.ExportCommentFull, CommentStyle: printer.CommentSmart}
	text, _, err := printer.Format(stmt, style)
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "/* a b */")
}

func TestFormatCommentBlockDoesNotMerge(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "SELECT /* a */ /* b */ id FROM t")
	style := printer.Style{ExportComment: printer.ExportCommentFull, CommentStyle: printer.CommentBlock}
	text, _, err := printer.Format(stmt, style)
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "/* a */ /* b */")
}

func TestFormatCreateTableRoundTrips(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "CREATE TABLE users (id int PRIMARY KEY, email text NOT NULL, CONSTRAINT uq_email UNIQUE (email))")
	text, _, err := printer.Format(stmt, printer.Style{KeywordCase: printer.KeywordUpper, ConstraintStyle: printer.ConstraintPostgres})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "CREATE TABLE")
	c.Assert(text, quicktest.Contains, "PRIMARY KEY")
	c.Assert(text, quicktest.Contains, "CONSTRAINT")

	reparsed, err := sqlparser.ParseStatement(text)
	c.Assert(err, quicktest.IsNil)
	c.Assert(reparsed, quicktest.Not(quicktest.IsNil))
}

func TestFormatConstraintStyleMySQLOrdersKindBeforeName(t *testing.T) {
	c := quicktest.New(t)
	stmt := mustParse(t, "CREATE TABLE users (id int, CONSTRAINT uq_email UNIQUE (email))")
	text, _, err := printer.Format(stmt, printer.Style{KeywordCase: printer.KeywordUpper, ConstraintStyle: printer.ConstraintMySQL})
	c.Assert(err, quicktest.IsNil)
	c.Assert(text, quicktest.Contains, "UNIQUE KEY uq_email")
}

func TestPresetKnownNames(t *testing.T) {
	c := quicktest.New(t)
	for _, name := range []string{"postgres", "mysql", "sqlite", "redshift", "cockroachdb"} {
		s := printer.Preset(name)
		c.Assert(s, quicktest.Not(quicktest.DeepEquals), printer.Style{})
	}
}

func TestPresetUnknownFallsBackToDefault(t *testing.T) {
	c := quicktest.New(t)
	c.Assert(printer.Preset("does-not-exist"), quicktest.DeepEquals, printer.Default())
}
