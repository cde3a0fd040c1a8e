// Package driver implements the C7 interception contract: a thin proxy
// sitting in front of a real database/sql connection that rewrites
// fixture-backed CRUD into SELECTs before a statement ever reaches the
// wire. It never executes SQL itself (no engine, no transactions) — it
// only decides, per prepared statement, whether to pass it through or
// rewrite-then-format it, and hands the result to an Executor the caller
// supplies. The decorator shape follows the dolthub-go-mysql-server
// driver package's Conn/Stmt wrapping, adapted from the low-level
// database/sql/driver interfaces to the higher-level database/sql ones
// since this proxy never owns the wire connection itself.
package driver

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	sqlparser "github.com/oarkflow/sqlparser"
	"github.com/oarkflow/sqlparser/ast"
	"github.com/oarkflow/sqlparser/fixture"
	"github.com/oarkflow/sqlparser/parser"
	"github.com/oarkflow/sqlparser/printer"
	"github.com/oarkflow/sqlparser/rewrite"
)

// Executor is the subset of *sql.DB (or *sql.Conn) the proxy delegates
// the final, possibly-rewritten statement to. Satisfied by *sql.DB and
// *sql.Conn without adaptation.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Proxy wraps an Executor, rewriting fixture-backed CRUD through the ZTD
// path before delegating. It is the reference implementation of the C7
// boundary; a production host is free to implement the same contract
// directly against database/sql/driver for a real wire-level proxy.
type Proxy struct {
	Next      Executor
	Fixtures  *fixture.Set
	ZTD       rewrite.Options
	Style     printer.Style
	Log       *logrus.Logger
	Intercept func(method string, sqlText string, params []any) // optional, for test observation
}

// New wraps next with default logging (logrus.StandardLogger()) and the
// given fixtures/style.
func New(next Executor, fixtures *fixture.Set, style printer.Style) *Proxy {
	return &Proxy{Next: next, Fixtures: fixtures, Style: style, Log: logrus.StandardLogger()}
}

// Exec implements the proxy's write path: parse, decide passthrough vs.
// rewrite, format, delegate.
func (p *Proxy) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	rewritten, params, err := p.prepare(query, "Exec")
	if err != nil {
		return nil, err
	}
	if rewritten == query {
		return p.Next.ExecContext(ctx, query, args...)
	}
	return p.Next.ExecContext(ctx, rewritten, mergeParams(params, args)...)
}

// Query implements the proxy's read path. A rewritten CRUD statement
// becomes a `SELECT count(*)`/RETURNING-projection SELECT, so it is
// queried rather than exec'd once rewritten.
func (p *Proxy) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rewritten, params, err := p.prepare(query, "Query")
	if err != nil {
		return nil, err
	}
	if rewritten == query {
		return p.Next.QueryContext(ctx, query, args...)
	}
	return p.Next.QueryContext(ctx, rewritten, mergeParams(params, args)...)
}

// prepare runs parseStatement, decides passthrough vs. rewrite, and
// returns the text to actually send plus the rewrite's own bind params
// (nil on passthrough). The returned text equals query verbatim on
// passthrough so callers can cheaply detect "no rewrite happened".
func (p *Proxy) prepare(query string, method string) (string, []string, error) {
	stmt, err := parser.ParseStatement(query)
	if err != nil {
		return "", nil, err
	}
	if isPassthrough(stmt) {
		p.logCall(method, query, nil)
		return query, nil, nil
	}
	rewritten, err := rewrite.RewriteForFixtures(stmt, p.Fixtures, p.ZTD)
	if err != nil {
		return "", nil, err
	}
	p.logDiagnostics(method, rewritten)
	text, paramOrder, err := printer.Format(rewritten, p.Style)
	if err != nil {
		return "", nil, err
	}
	p.logCall(method, text, paramOrder)
	return text, paramOrder, nil
}

// logDiagnostics runs the anti-pattern analyzer against the rewritten
// statement and logs anything it finds; a fixture shadow CTE built from a
// wide row set can still trip checks like cartesian-producing joins.
func (p *Proxy) logDiagnostics(method string, stmt ast.Statement) {
	if p.Log == nil {
		return
	}
	report := sqlparser.AnalyzeStatement(stmt)
	for _, f := range report.Findings {
		p.Log.WithFields(logrus.Fields{
			"method":   method,
			"code":     f.Code,
			"severity": f.Severity,
		}).Warn(f.Message)
	}
}

func (p *Proxy) logCall(method, sqlText string, params []string) {
	if p.Intercept != nil {
		anyParams := make([]any, len(params))
		for i, n := range params {
			anyParams[i] = n
		}
		p.Intercept(method, sqlText, anyParams)
	}
	if p.Log == nil {
		return
	}
	p.Log.WithFields(logrus.Fields{
		"method": method,
		"sql":    sqlText,
		"params": params,
	}).Debug("sqlparser driver proxy")
}

// isPassthrough reports whether stmt runs unmodified: any SELECT, or any
// DDL/utility statement the ZTD rewriter does not touch.
func isPassthrough(stmt ast.Statement) bool {
	switch stmt.(type) {
	case *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt, *ast.MergeStmt:
		return false
	default:
		return true
	}
}

// mergeParams builds one bind argument per rewrite parameter name: the
// caller's positional arg at the same index when there is one, otherwise a
// sql.Named(name, nil) placeholder. Caller args beyond len(names) are
// dropped; with no names the original args pass through unchanged.
func mergeParams(names []string, original []any) []any {
	if len(names) == 0 {
		return original
	}
	out := make([]any, len(names))
	for i, n := range names {
		if i < len(original) {
			out[i] = original[i]
			continue
		}
		out[i] = sql.Named(n, nil)
	}
	return out
}
