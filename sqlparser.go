// Package sqlparser is a high-performance, zero-allocation SQL parser for Go.
//
// Design goals:
//   - Zero heap allocations in the hot path (lexer)
//   - Allocation-free keyword recognition via length-bucketed tables
//   - Pratt (top-down operator precedence) expression parser
//   - Arena allocator eliminates per-node GC pressure
//   - Supports MySQL, PostgreSQL, SQLite, and standard SQL dialects
//   - Full DDL + DML coverage
//
// Usage:
//
//	stmt, err := sqlparser.ParseStatement("SELECT id, name FROM users WHERE id = 1")
//	stmts, err := sqlparser.ParseStatements(sql)
//	p := sqlparser.New(src)
//	for {
//		stmt, err := p.Next()
//		if stmt == nil || err != nil {
//			break
//		}
//		...
//	}
package sqlparser

import (
	"github.com/oarkflow/sqlparser/ast"
	"github.com/oarkflow/sqlparser/fixture"
	"github.com/oarkflow/sqlparser/lexer"
	"github.com/oarkflow/sqlparser/parser"
	"github.com/oarkflow/sqlparser/printer"
	"github.com/oarkflow/sqlparser/rewrite"
)

// Re-export core types so callers only import this package.
type (
	Statement          = ast.Statement
	Expr               = ast.Expr
	SelectStmt         = ast.SelectStmt
	InsertStmt         = ast.InsertStmt
	UpdateStmt         = ast.UpdateStmt
	DeleteStmt         = ast.DeleteStmt
	CreateTableStmt    = ast.CreateTableStmt
	CreateDatabaseStmt = ast.CreateDatabaseStmt
	AlterDatabaseStmt  = ast.AlterDatabaseStmt
	DropDatabaseStmt   = ast.DropDatabaseStmt
	AlterTableStmt     = ast.AlterTableStmt
	DropTableStmt      = ast.DropTableStmt
	CallStmt           = ast.CallStmt
	TransactionStmt    = ast.TransactionStmt
	GenericDDLStmt     = ast.GenericDDLStmt
	ParseError         = parser.ParseError
	Token              = lexer.Token
	TokenType          = lexer.TokenType
)

// ParseStatement parses a single SQL statement from a string.
// It returns the AST node and any parse error.
func ParseStatement(sql string) (Statement, error) {
	return parser.ParseStatement(sql)
}

// ParseStatements parses multiple semicolon-separated SQL statements.
func ParseStatements(sql string) ([]Statement, error) {
	return parser.ParseStatements(sql)
}

// Parser is a reusable, stateful SQL parser.
// Reuse a Parser across calls to amortise arena allocations.
type Parser struct {
	p *parser.Parser
}

// New creates a Parser backed by the given SQL bytes.
func New(src []byte) *Parser {
	return &Parser{p: parser.New(src)}
}

// NewString creates a Parser backed by the given SQL string.
func NewString(src string) *Parser {
	return &Parser{p: parser.NewString(src)}
}

// Reset reuses the Parser with new input, reusing internal allocations.
func (p *Parser) Reset(src []byte) {
	p.p.Reset(src)
}

// Next returns the next statement or (nil, nil) at EOF.
func (p *Parser) Next() (Statement, error) {
	return p.p.ParseOne()
}

// All parses all remaining statements.
func (p *Parser) All() ([]Statement, error) {
	return p.p.ParseAll()
}

// Re-export the rewrite/printer/fixture surface so callers working the
// ZTD/JSON/Dynamic path only need this one import.
type (
	Fixtures        = fixture.Set
	MissingPolicy   = fixture.MissingPolicy
	ZTDOptions      = rewrite.Options
	TableDef        = rewrite.TableDef
	ColumnDef       = rewrite.ColumnDef
	JsonMapping     = rewrite.JsonMapping
	EntityMapping   = rewrite.EntityMapping
	NestedEntity    = rewrite.NestedEntity
	DynamicOptions  = rewrite.DynamicOptions
	FilterCondition = rewrite.FilterCondition
	SortSpec        = rewrite.SortSpec
	PagingSpec      = rewrite.PagingSpec
	SchemaInfo      = rewrite.SchemaInfo
	PrintStyle      = printer.Style
)

const (
	PolicyError       = fixture.PolicyError
	PolicyWarn        = fixture.PolicyWarn
	PolicyPassthrough = fixture.PolicyPassthrough
)

// NewFixtures creates an empty fixture set to populate via its Table
// builder before passing it to RewriteForFixtures.
func NewFixtures() *Fixtures {
	return fixture.NewSet()
}

// RewriteForFixtures is the ZTD entry point: it turns stmt (an
// INSERT/UPDATE/DELETE/MERGE) into a SELECT that reads entirely from
// fixtures, with no live base-table dependency.
func RewriteForFixtures(stmt Statement, fixtures *Fixtures, opts ZTDOptions) (*SelectStmt, error) {
	return rewrite.RewriteForFixtures(stmt, fixtures, opts)
}

// BuildJSON lowers a flat select plus a hierarchical JsonMapping into a
// CTE chain producing nested JSON/JSONB rows.
func BuildJSON(flat *SelectStmt, mapping JsonMapping) (*SelectStmt, error) {
	return rewrite.BuildJSON(flat, mapping)
}

// BuildDynamic applies filter/sort/paging injection and optional
// unused-LEFT-JOIN/CTE pruning to base, in that fixed order, returning the
// rewritten statement and the bind parameters the injected filters need.
func BuildDynamic(base *SelectStmt, opts DynamicOptions) (*SelectStmt, map[string]any, error) {
	return rewrite.BuildDynamic(base, opts)
}

// Format renders stmt to SQL text under style, returning the text and the
// ordered, deduplicated list of source parameter names a caller binds
// positionally against it.
func Format(stmt Statement, style PrintStyle) (string, []string, error) {
	return printer.Format(stmt, style)
}

// DefaultStyle and PresetStyle expose the printer's built-in house styles.
func DefaultStyle() PrintStyle           { return printer.Default() }
func PresetStyle(name string) PrintStyle { return printer.Preset(name) }

// The remaining conversion helpers perform the SELECT<->CRUD round trips:
// each takes a normalized select plus typed options and returns the
// corresponding statement AST, or the reverse.
func BuildInsertQuery(source *SelectStmt, opts rewrite.InsertQueryOptions) (*InsertStmt, error) {
	return rewrite.BuildInsertQuery(source, opts)
}
func BuildUpdateQuery(opts rewrite.UpdateQueryOptions) (*UpdateStmt, error) {
	return rewrite.BuildUpdateQuery(opts)
}
func BuildDeleteQuery(opts rewrite.DeleteQueryOptions) (*DeleteStmt, error) {
	return rewrite.BuildDeleteQuery(opts)
}
func BuildMergeQuery(opts rewrite.MergeQueryOptions) (*ast.MergeStmt, error) {
	return rewrite.BuildMergeQuery(opts)
}
func BuildCreateTableQuery(opts rewrite.CreateTableQueryOptions) (*CreateTableStmt, error) {
	return rewrite.BuildCreateTableQuery(opts)
}
func ConvertInsertValuesToSelect(ins *InsertStmt) (*SelectStmt, error) {
	return rewrite.ConvertInsertValuesToSelect(ins)
}
func ConvertInsertSelectToValues(ins *InsertStmt) (*InsertStmt, error) {
	return rewrite.ConvertInsertSelectToValues(ins)
}

// Tokenize breaks a SQL string into tokens.
// The returned slice is backed by the original byte slice to avoid copies.
// Provide a pre-allocated buffer to avoid heap allocation:
//
//	buf := make([]lexer.Token, 0, 128)
//	tokens := sqlparser.Tokenize([]byte(sql), buf)
func Tokenize(src []byte, buf []Token) []Token {
	return lexer.Tokenize(src, buf)
}
