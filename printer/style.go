// Package printer renders an AST back to SQL text under a configurable
// Style, generalizing the teacher's fixed per-dialect renderer (see
// dialect.go) into the knob set the fixture-testing workflow needs: callers
// print ZTD/JSON/Dynamic rewrite output in whatever house style their test
// fixtures expect to diff against.
package printer

// KeywordCase controls how reserved words are cased on output.
type KeywordCase uint8

const (
	KeywordUpper KeywordCase = iota
	KeywordLower
	KeywordAsWritten
)

// CommaBreak controls where a comma-separated list wraps.
type CommaBreak uint8

const (
	CommaInline CommaBreak = iota
	CommaLeading
	CommaTrailing
)

// CastStyle controls how CAST(expr AS type) is rendered.
type CastStyle uint8

const (
	CastFunction CastStyle = iota // CAST(expr AS type)
	CastDoubleColon               // expr::type  (Postgres/CockroachDB)
)

// ConstraintStyle controls how table constraints render in DDL: the
// Postgres form names the constraint ahead of its kind
// (`constraint name primary key(...)`), the MySQL form names the kind ahead
// of an optional index name (`unique key name(...)`, `foreign key
// name(...)`).
type ConstraintStyle uint8

const (
	ConstraintPostgres ConstraintStyle = iota
	ConstraintMySQL
)

// ParameterStyle controls how bind parameters are rendered.
type ParameterStyle uint8

const (
	// ParameterAsWritten preserves whatever marker the source used.
	ParameterAsWritten ParameterStyle = iota
	// ParameterQuestion renders every parameter as a bare `?`.
	ParameterQuestion
	// ParameterDollar renders positional parameters renumbered left to
	// right, deduplicated by source name so repeated uses of the same
	// named parameter collapse onto one index. ParameterSymbol overrides
	// the `$` prefix (e.g. to emit `@1`, `@2`).
	ParameterDollar
	// ParameterColonName renders `:name` parameters, falling back to
	// `:p1`, `:p2`, ... for anonymous markers.
	ParameterColonName
)

// IdentifierEscape selects the quoting character for identifiers that need
// escaping (reserved words, mixed case, embedded spaces).
type IdentifierEscape uint8

const (
	EscapeDoubleQuote IdentifierEscape = iota // ANSI/Postgres/SQLite
	EscapeBacktick                            // MySQL
)

// Style is the full set of knobs the printer consults. The zero value is a
// reasonable ANSI-leaning default; named presets below cover the common
// vendor house styles the teacher's dialect converter already recognized.
type Style struct {
	IndentChar       byte
	IndentSize       int
	KeywordCase      KeywordCase
	CommaBreak       CommaBreak
	CTECommaBreak    CommaBreak
	ValuesCommaBreak CommaBreak
	AndBreak         bool // break AND chains onto their own line in WHERE
	OrBreak          bool
	WithClauseOwnLine bool // WITH <cte> AS ( on its own line vs inline
	ExportComment    ExportCommentMode
	CommentStyle     CommentStyle
	HeaderStyle      HeaderCommentStyle
	CastStyle        CastStyle
	ConstraintStyle  ConstraintStyle
	ParameterStyle   ParameterStyle
	ParameterSymbol  string // used by ParameterColonName/ParameterDollar prefix override
	IdentifierEscape IdentifierEscape
}

// ExportCommentMode controls how retained source comments and the printer's
// own generated annotation surface on output.
type ExportCommentMode uint8

const (
	// ExportCommentNone drops every comment: retained and generated alike.
	ExportCommentNone ExportCommentMode = iota
	// ExportCommentHeaderOnly emits a single generated annotation ahead of
	// every statement and drops retained source comments.
	ExportCommentHeaderOnly
	// ExportCommentTopHeaderOnly emits the generated annotation once, ahead
	// of the first statement only, and drops retained source comments.
	ExportCommentTopHeaderOnly
	// ExportCommentFull prints every retained comment at the location it
	// was attached and emits no generated annotation.
	ExportCommentFull
)

// CommentStyle controls how retained comments reshape on reflow. Smart
// normalizes every single-line comment to "--" and merges adjacent block
// comments into one; block renders each retained comment on its own, with
// no merging. Under either style block comments print as /* ... */ and
// line comments (including "#" ones) print as "--".
type CommentStyle uint8

const (
	CommentSmart CommentStyle = iota
	CommentBlock
)

// HeaderCommentStyle selects the line-comment marker used for the printer's
// own generated header annotation (ExportCommentHeaderOnly/TopHeaderOnly).
// It has no bearing on retained comments, which print as /* ... */ when
// block and as "--" when line.
type HeaderCommentStyle uint8

const (
	HeaderCommentDoubleDash HeaderCommentStyle = iota
	HeaderCommentHash
)

// Default is the baseline ANSI-leaning style: uppercase keywords, inline
// commas, CAST(...) function syntax, double-quoted identifiers.
func Default() Style {
	return Style{
		IndentChar:  ' ',
		IndentSize:  2,
		KeywordCase: KeywordUpper,
		CastStyle:   CastFunction,
		ParameterStyle: ParameterAsWritten,
		IdentifierEscape: EscapeDoubleQuote,
	}
}

// Preset resolves one of the named house styles the teacher's dialect
// converter targeted (postgres/mysql/sqlite) plus two additional vendor
// presets (redshift/cockroachdb) grounded in the same Postgres wire
// compatibility family. Unknown names return Default().
func Preset(name string) Style {
	switch name {
	case "postgres":
		s := Default()
		s.CastStyle = CastDoubleColon
		s.ParameterStyle = ParameterDollar
		s.IdentifierEscape = EscapeDoubleQuote
		return s
	case "mysql":
		s := Default()
		s.IdentifierEscape = EscapeBacktick
		s.ParameterStyle = ParameterQuestion
		s.ConstraintStyle = ConstraintMySQL
		return s
	case "sqlite":
		s := Default()
		s.IdentifierEscape = EscapeDoubleQuote
		s.ParameterStyle = ParameterQuestion
		return s
	case "redshift":
		s := Default()
		s.CastStyle = CastDoubleColon
		s.ParameterStyle = ParameterDollar
		s.IdentifierEscape = EscapeDoubleQuote
		s.ConstraintStyle = ConstraintPostgres
		return s
	case "cockroachdb":
		s := Default()
		s.CastStyle = CastDoubleColon
		s.ParameterStyle = ParameterDollar
		s.IdentifierEscape = EscapeDoubleQuote
		s.WithClauseOwnLine = true
		return s
	default:
		return Default()
	}
}
