// Command schemadump reads a SQLite database and writes a tableDefinitions
// JSON file consumable as rewriteForFixtures' TableDefinitions option, per
// spec.md's persisted-state section. It is an external tool, not part of
// the CORE library: the CORE never opens a database connection itself.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oarkflow/sqlparser/internal/schema"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dbPath    string
		cachePath string
		outPath   string
		noCache   bool
		log       = logrus.StandardLogger()
	)

	cmd := &cobra.Command{
		Use:   "schemadump",
		Short: "Discover SQLite table definitions and emit a tableDefinitions JSON file",
		Long: `schemadump connects to a SQLite database, reads its table and column
definitions, and writes them as the JSON shape rewriteForFixtures accepts
as a tableDefinitions option: {"<table>": {"columns": {"<col>": "<type>"}}}.

Results are cached in a bbolt file keyed by the database path, so repeated
runs against an unchanged database skip rediscovery.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runOptions{
				dbPath:    dbPath,
				cachePath: cachePath,
				outPath:   outPath,
				noCache:   noCache,
				log:       log,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dbPath, "db", "", "path to the SQLite database file (required)")
	flags.StringVar(&cachePath, "cache", "schemadump.cache.db", "path to the bbolt cache file")
	flags.StringVar(&outPath, "out", "schema.json", "path to write the tableDefinitions JSON file")
	flags.BoolVar(&noCache, "no-cache", false, "force rediscovery, ignoring the cache")
	cobra.CheckErr(cmd.MarkFlagRequired("db"))

	return cmd
}

type runOptions struct {
	dbPath    string
	cachePath string
	outPath   string
	noCache   bool
	log       *logrus.Logger
}

func run(ctx context.Context, opts runOptions) error {
	cache, err := schema.OpenCache(opts.cachePath)
	if err != nil {
		return fmt.Errorf("schemadump: %w", err)
	}
	defer cache.Close()

	cacheKey := opts.dbPath
	if !opts.noCache {
		if cached, ok, err := cache.Get(cacheKey); err != nil {
			return fmt.Errorf("schemadump: read cache: %w", err)
		} else if ok {
			opts.log.WithField("db", opts.dbPath).Info("schema cache hit")
			return writeJSON(opts.outPath, cached)
		}
	}

	db, err := sql.Open("sqlite3", opts.dbPath)
	if err != nil {
		return fmt.Errorf("schemadump: open %s: %w", opts.dbPath, err)
	}
	defer db.Close()

	opts.log.WithField("db", opts.dbPath).Info("discovering schema")
	discovered, err := schema.Discover(ctx, db)
	if err != nil {
		return fmt.Errorf("schemadump: %w", err)
	}
	opts.log.WithField("tables", len(discovered)).Info("discovery complete")

	if err := cache.Put(cacheKey, discovered); err != nil {
		return fmt.Errorf("schemadump: write cache: %w", err)
	}
	return writeJSON(opts.outPath, discovered)
}

func writeJSON(path string, s schema.Schema) error {
	out := make(map[string]map[string]map[string]string, len(s))
	for table, def := range s {
		cols := make(map[string]string, len(def.Columns))
		for name, c := range def.Columns {
			cols[name] = c.Type
		}
		out[table] = map[string]map[string]string{"columns": cols}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("schemadump: create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
