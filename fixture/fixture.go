// Package fixture holds the in-memory rows a Zero-Table-Dependency rewrite
// substitutes for real tables, and the coverage check that decides whether a
// statement's table references are fully satisfied before rewriting.
package fixture

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	sqlerrors "github.com/oarkflow/sqlparser/errors"
)

// Row is one fixture row: column name to a driver-safe scalar value. Values
// are either string, bool, nil, int64, float64, or decimal.Decimal — decimal
// is used whenever the caller supplies a numeric fixture value, so the ZTD
// rewriter can render exact literal text instead of round-tripping floats.
type Row map[string]any

// Table is the full fixture row set standing in for one base table.
type Table struct {
	Name string
	Rows []Row
}

// Set is the fixture collection passed to a rewrite call, keyed by
// lowercased unqualified table name.
type Set struct {
	tables map[string]*Table
}

// NewSet builds an empty fixture set.
func NewSet() *Set {
	return &Set{tables: make(map[string]*Table)}
}

// Builder accumulates rows for one table before committing them to a Set.
type Builder struct {
	table *Table
}

// Table starts (or resumes) building fixture rows for the named table.
func (s *Set) Table(name string) *Builder {
	key := normalizeTableName(name)
	t, ok := s.tables[key]
	if !ok {
		t = &Table{Name: name}
		s.tables[key] = t
	}
	return &Builder{table: t}
}

// Row appends one fixture row. Any column omitted from the map but present
// in other rows of the table is treated as NULL by the rewriter. If the row
// omits a primary-key-shaped "id" column, Row synthesizes a stable one via
// uuid so joins between fixture tables remain resolvable.
func (b *Builder) Row(values Row) *Builder {
	row := make(Row, len(values)+1)
	for k, v := range values {
		row[k] = normalizeValue(v)
	}
	if _, hasID := row["id"]; !hasID {
		row["id"] = uuid.NewString()
	}
	b.table.Rows = append(b.table.Rows, row)
	return b
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case float64:
		return decimal.NewFromFloat(t)
	case decimal.Decimal:
		return t
	default:
		return v
	}
}

func normalizeTableName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= 'A' && c <= 'Z' {
			c += 32
		}
		out[i] = c
	}
	return string(out)
}

// Columns returns the union of column names across a table's rows, sorted
// lexicographically so repeated rewrites of the same fixture set produce
// byte-identical shadow CTEs regardless of Go's randomized map iteration.
func (t *Table) Columns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range t.Rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// Has reports whether the set carries any rows (including zero rows, i.e.
// an explicitly-declared-empty table) for the given unqualified table name.
func (s *Set) Has(name string) bool {
	_, ok := s.tables[normalizeTableName(name)]
	return ok
}

// Get returns the fixture table for name, or nil if absent.
func (s *Set) Get(name string) *Table {
	return s.tables[normalizeTableName(name)]
}

// MissingPolicy controls what happens when a rewrite needs a table the Set
// does not cover.
type MissingPolicy uint8

const (
	// PolicyError fails the rewrite with a FixtureCoverageError (default).
	PolicyError MissingPolicy = iota
	// PolicyWarn proceeds, rendering the missing table as an empty
	// zero-row shadow CTE, and reports the gap via the diagnostics sink.
	PolicyWarn
	// PolicyPassthrough leaves the original table reference untouched,
	// so a partially-fixtured statement can still run against a join of
	// shadow CTEs and real tables. Only meaningful when the caller's
	// execution environment actually has those tables.
	PolicyPassthrough
)

// CheckCoverage verifies that every name in required is present in the set.
// Behavior on a gap is controlled by policy; PolicyError is the only one
// that returns a non-nil error here — PolicyWarn/PolicyPassthrough instead
// return the missing list for the caller (typically the ZTD rewriter) to
// act on per-table.
func (s *Set) CheckCoverage(required []string, policy MissingPolicy, statementText string) (missing []string, err error) {
	for _, name := range required {
		if !s.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	if policy == PolicyError {
		return missing, &sqlerrors.FixtureCoverageError{MissingTables: missing, Statement: statementText}
	}
	return missing, nil
}

// RenderLiteral formats a fixture scalar as SQL literal text for embedding
// in a shadow CTE VALUES list.
func RenderLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case decimal.Decimal:
		return t.String()
	case string:
		return quoteString(t)
	default:
		return quoteString(fmt.Sprintf("%v", t))
	}
}

func quoteString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
		} else {
			out = append(out, s[i])
		}
	}
	out = append(out, '\'')
	return string(out)
}
