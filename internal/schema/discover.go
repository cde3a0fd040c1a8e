// Package schema discovers base-table column definitions from a live
// SQLite database, the same shape the ZTD rewriter's TableDef consumes and
// the tableDefinitions JSON file schema.md describes: reading
// sqlite_master plus PRAGMA table_info per table, grounded on the sqldef
// sqlite3 adapter's TableNames/DumpTableDDL query shapes.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/oarkflow/sqlparser/rewrite"
)

// Column is one discovered column: its declared SQLite type and whether it
// is nullable, matching the columns the ZTD rewriter CASTs fixture rows to.
type Column struct {
	Type     string `json:"type"`
	NotNull  bool   `json:"notNull"`
	PrimaryKey bool `json:"primaryKey"`
}

// Table is the discovered shape of one base table.
type Table struct {
	Columns map[string]Column `json:"columns"`
}

// Schema is the full discovery result: tableName -> Table, serialized as
// the tableDefinitions JSON file a caller passes to rewriteForFixtures.
type Schema map[string]Table

// Discover lists every non-system table in db and reads its column
// definitions via PRAGMA table_info.
func Discover(ctx context.Context, db *sql.DB) (Schema, error) {
	names, err := tableNames(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("schema: list tables: %w", err)
	}
	out := make(Schema, len(names))
	for _, name := range names {
		cols, err := tableColumns(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("schema: columns for %q: %w", name, err)
		}
		out[name] = Table{Columns: cols}
	}
	return out, nil
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`select tbl_name from sqlite_master where type = 'table' and tbl_name not like 'sqlite_%'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]Column)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		cols[name] = Column{Type: normalizeType(ctype), NotNull: notNull != 0, PrimaryKey: pk != 0}
	}
	return cols, rows.Err()
}

// ToTableDefinitions converts discovered schema into the rewrite.TableDef
// map RewriteForFixtures expects as Options.TableDefinitions, sorting each
// table's columns by name for deterministic CTE column order.
func (s Schema) ToTableDefinitions() map[string]rewrite.TableDef {
	out := make(map[string]rewrite.TableDef, len(s))
	for table, def := range s {
		names := make([]string, 0, len(def.Columns))
		for name := range def.Columns {
			names = append(names, name)
		}
		sort.Strings(names)
		cols := make([]rewrite.ColumnDef, len(names))
		for i, name := range names {
			c := def.Columns[name]
			cols[i] = rewrite.ColumnDef{Name: name, Type: c.Type, NotNull: c.NotNull}
		}
		out[table] = rewrite.TableDef{Columns: cols}
	}
	return out
}

// normalizeType maps a SQLite declared type to the lowercase family name
// the ZTD rewriter's CAST expressions and the JSON builder's column
// inference already use ("text", "numeric", "boolean", ...), falling back
// to the declared name verbatim when it doesn't match a known affinity.
func normalizeType(declared string) string {
	switch declared {
	case "", "BLOB":
		return "blob"
	case "INTEGER", "INT", "BIGINT":
		return "integer"
	case "REAL", "DOUBLE", "FLOAT", "NUMERIC", "DECIMAL":
		return "numeric"
	case "BOOLEAN", "BOOL":
		return "boolean"
	case "TEXT", "VARCHAR", "CHAR", "CLOB":
		return "text"
	default:
		return declared
	}
}
