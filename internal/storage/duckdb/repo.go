package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"shopetl/internal/storage"
)

func init() {
	storage.Register("duckdb", New)
}

// Repo implements storage.TableRepository for a local DuckDB file.
//
// DDL runs on a pinned connection and rows go through the DuckDB appender
// on that same connection. The replace is not transactional: a failure
// after the DROP leaves the table missing or partially filled.
type Repo struct {
	db *sql.DB
}

// New opens (or creates) the database file at cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.TableRepository, error) {
	connector, err := duckdb.NewConnector(cfg.DSN, nil)
	if err != nil {
		return nil, fmt.Errorf("duckdb connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("duckdb ping: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close closes the pool, which also releases the connector.
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// ReplaceTable implements storage.TableRepository.
func (r *Repo) ReplaceTable(ctx context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if err := spec.Validate(rows); err != nil {
		return 0, err
	}
	stmts, err := buildReplaceSQL(spec)
	if err != nil {
		return 0, err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("duckdb conn: %w", err)
	}
	defer conn.Close()

	for _, s := range stmts {
		if _, err := conn.ExecContext(ctx, s); err != nil {
			return 0, fmt.Errorf("duckdb exec %q: %w", s, err)
		}
	}

	schema, table := storage.SplitQualifiedName(spec.Name)
	var n int64
	err = conn.Raw(func(dc any) error {
		dconn, ok := dc.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dc)
		}
		app, err := duckdb.NewAppenderFromConn(dconn, schema, table)
		if err != nil {
			return fmt.Errorf("appender: %w", err)
		}
		for _, row := range rows {
			vals := make([]driver.Value, len(row))
			for i, v := range row {
				vals[i] = v
			}
			if err := app.AppendRow(vals...); err != nil {
				_ = app.Close()
				return fmt.Errorf("append row %d: %w", n, err)
			}
			n++
		}
		if err := app.Close(); err != nil {
			return fmt.Errorf("flush appender: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("duckdb load %s: %w", spec.Name, err)
	}
	return n, nil
}

func buildReplaceSQL(spec storage.TableSpec) ([]string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("table name is empty")
	}

	var stmts []string
	if schema, _ := storage.SplitQualifiedName(spec.Name); schema != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", quoteIdent(schema)))
	}
	table := tableIdent(spec.Name)
	stmts = append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s;", table))

	defs := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		typ, err := duckType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", spec.Name, c.Name, err)
		}
		defs[i] = quoteIdent(c.Name) + " " + typ
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s);", table, strings.Join(defs, ", ")))
	return stmts, nil
}

func duckType(t storage.ColumnType) (string, error) {
	switch t {
	case storage.TypeText:
		return "VARCHAR", nil
	case storage.TypeBigInt:
		return "BIGINT", nil
	case storage.TypeDouble:
		return "DOUBLE", nil
	case storage.TypeBoolean:
		return "BOOLEAN", nil
	}
	return "", fmt.Errorf("unsupported column type %q", t)
}

func quoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func tableIdent(name string) string {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return quoteIdent(table)
	}
	return quoteIdent(schema) + "." + quoteIdent(table)
}
