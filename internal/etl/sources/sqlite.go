package sources

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"policywrangle/internal/etl"
)

// ── SQLite Source ──────────────────────────────────────────
// Reads a table, or the result of a query, from a SQLite file.

type sqliteSource struct{}

func init() { etl.RegisterSource(&sqliteSource{}) }

func (s *sqliteSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:  "sqlite",
		Label: "SQLite Table",
		ConfigFields: []etl.ConfigField{
			{Key: "dbPath", Label: "Database File", Required: true, Help: "Path to the SQLite database"},
			{Key: "table", Label: "Table", Required: false, Help: "Table to read; ignored when query is set"},
			{Key: "query", Label: "Query", Required: false, Help: "SELECT statement to read instead of a table"},
		},
	}
}

// resolveQuery builds the statement to run from config.
func resolveQuery(cfg etl.SourceConfig) (string, string, error) {
	dbPath, _ := cfg["dbPath"].(string)
	if dbPath == "" {
		return "", "", fmt.Errorf("%w: dbPath is required", etl.ErrConfig)
	}
	if query, _ := cfg["query"].(string); strings.TrimSpace(query) != "" {
		return dbPath, query, nil
	}
	table, _ := cfg["table"].(string)
	if table == "" {
		return "", "", fmt.Errorf("%w: table or query required", etl.ErrConfig)
	}
	return dbPath, "SELECT * FROM " + quoteIdent(table), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func openSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func (s *sqliteSource) Discover(ctx context.Context, cfg etl.SourceConfig) (*etl.Schema, error) {
	dbPath, query, err := resolveQuery(cfg)
	if err != nil {
		return nil, err
	}
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	schema := &etl.Schema{Fields: make([]etl.Field, len(cols))}
	for i, c := range cols {
		schema.Fields[i] = etl.Field{Name: c, Type: etl.FieldText}
	}
	return schema, nil
}

func (s *sqliteSource) Read(ctx context.Context, cfg etl.SourceConfig) (<-chan etl.Record, <-chan error) {
	out := make(chan etl.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		dbPath, query, err := resolveQuery(cfg)
		if err != nil {
			errCh <- err
			return
		}
		db, err := openSQLite(dbPath)
		if err != nil {
			errCh <- err
			return
		}
		defer db.Close()

		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			errCh <- fmt.Errorf("query: %w", err)
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			errCh <- fmt.Errorf("columns: %w", err)
			return
		}

		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				errCh <- fmt.Errorf("scan: %w", err)
				return
			}
			data := make(map[string]any, len(cols))
			for i, c := range cols {
				if b, ok := vals[i].([]byte); ok {
					data[c] = string(b)
				} else {
					data[c] = vals[i]
				}
			}
			select {
			case out <- etl.Record{Data: data}:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			errCh <- fmt.Errorf("rows: %w", err)
		}
	}()

	return out, errCh
}
