package sqlparser

import (
	"strings"

	"github.com/oarkflow/sqlparser/printer"
)

// Dialect names one of the vendor house styles ConvertDialect can target.
// The actual rendering knobs live in package printer as a Style; Dialect is
// kept as a small, stable public name for callers that just want "render
// this for Postgres" without building a Style by hand.
type Dialect string

const (
	DialectMySQL     Dialect = "mysql"
	DialectPostgres  Dialect = "postgres"
	DialectSQLite    Dialect = "sqlite"
	DialectRedshift  Dialect = "redshift"
	DialectCockroach Dialect = "cockroachdb"
)

// ConvertOptions configures ConvertDialectWithOptions. Strict is accepted
// for source compatibility with callers written against the original
// per-dialect renderer; the configurable printer has no strict/lenient
// distinction, every Style knob prints every construct it understands.
type ConvertOptions struct {
	Target Dialect
	Strict bool
}

// ConvertDialect re-renders sql under target's house style: parse, then
// Format each statement with printer.Preset(target). The dialect-specific
// AST-to-text rendering rules that used to live in a bespoke per-dialect
// renderer here now live once, in package printer, generalized into Style
// so the same logic also serves ZTD/JSON/Dynamic rewrite output.
func ConvertDialect(sql string, target Dialect) (string, error) {
	return ConvertDialectWithOptions(sql, ConvertOptions{Target: target})
}

// ConvertDialectWithOptions is ConvertDialect with an explicit
// ConvertOptions; presently only Target affects rendering.
func ConvertDialectWithOptions(sql string, opts ConvertOptions) (string, error) {
	stmts, err := ParseStatements(sql)
	if err != nil {
		return "", err
	}
	style := printer.Preset(string(opts.Target))
	var b strings.Builder
	for i, stmt := range stmts {
		if i > 0 {
			b.WriteString("; ")
		}
		text, _, err := printer.Format(stmt, style)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
