package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"shopetl/internal/storage"
)

// maxParams keeps every INSERT under SQLite's historical 999-variable limit.
const maxParams = 999

// Repo implements storage.TableRepository for SQLite (pure Go driver).
//
// SQLite has no schemas here, so a dotted table name is quoted as one
// identifier. BOOLEAN columns store 0/1 with numeric affinity.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database file at cfg.DSN, creating it if needed.
func New(ctx context.Context, cfg storage.Config) (storage.TableRepository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// ReplaceTable drops, recreates and fills the table in one transaction.
func (r *Repo) ReplaceTable(ctx context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	if err := spec.Validate(rows); err != nil {
		return 0, err
	}
	dropSQL, createSQL, err := buildReplaceSQL(spec)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, s := range []string{dropSQL, createSQL} {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return 0, fmt.Errorf("sqlite exec %q: %w", s, err)
		}
	}

	var total int64
	for _, chunk := range storage.Chunks(rows, len(spec.Columns), maxParams) {
		q, args := buildInsertSQL(spec.Name, spec.ColumnNames(), chunk)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return total, fmt.Errorf("sqlite insert into %s: %w", spec.Name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite commit: %w", err)
	}
	return total, nil
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func sqliteType(t storage.ColumnType) (string, error) {
	switch t {
	case storage.TypeText:
		return "TEXT", nil
	case storage.TypeBigInt:
		return "INTEGER", nil
	case storage.TypeDouble:
		return "REAL", nil
	case storage.TypeBoolean:
		return "BOOLEAN", nil
	}
	return "", fmt.Errorf("unsupported column type %q", t)
}

func buildReplaceSQL(spec storage.TableSpec) (dropSQL, createSQL string, err error) {
	if strings.TrimSpace(spec.Name) == "" {
		return "", "", fmt.Errorf("table name is empty")
	}
	parts := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		typ, err := sqliteType(c.Type)
		if err != nil {
			return "", "", fmt.Errorf("%s.%s: %w", spec.Name, c.Name, err)
		}
		parts[i] = sqlIdent(c.Name) + " " + typ
	}
	table := sqlIdent(spec.Name)
	dropSQL = fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
	createSQL = fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", table, strings.Join(parts, ",\n  "))
	return dropSQL, createSQL, nil
}

// buildInsertSQL builds one multi-row INSERT with positional placeholders.
func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	colList := make([]string, len(columns))
	for i, c := range columns {
		colList[i] = sqlIdent(c)
	}
	placeholders := "(" + strings.TrimRight(strings.Repeat("?,", len(columns)), ",") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	b.WriteString(strings.Join(colList, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		args = append(args, row...)
	}
	return b.String(), args
}
