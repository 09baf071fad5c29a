package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"shopetl/internal/storage"
)

// SQL Server rejects statements with more than 2100 parameters.
const maxParams = 2000

func init() {
	storage.Register("mssql", New)
}

// Repo implements storage.TableRepository for Microsoft SQL Server.
//
// A replace runs in one transaction: optional schema creation, drop, create,
// then chunked multi-row INSERTs using @pN parameters.
type Repo struct {
	db dbConn
}

// New opens cfg.DSN with the "sqlserver" driver and pings it.
func New(ctx context.Context, cfg storage.Config) (storage.TableRepository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql open: %w", err)
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("mssql ping: %w", err)
	}
	return &Repo{db: &sqlDB{db: raw}}, nil
}

// Close releases the connection pool.
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mssql begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return 0, fmt.Errorf("mssql exec %q: %w", s, err)
		}
	}

	var total int64
	for _, chunk := range storage.Chunks(rows, len(spec.Columns), maxParams) {
		q, args := buildBulkInsertSQL(spec.Name, spec.ColumnNames(), chunk)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("mssql insert into %s: %w", spec.Name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mssql commit: %w", err)
	}
	return total, nil
}

// buildReplaceSQL returns the DDL of a replace in execution order.
//
// CREATE SCHEMA must be the only statement in its batch, so it runs through
// EXEC when the schema is missing.
func buildReplaceSQL(spec storage.TableSpec) ([]string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("table name is empty")
	}

	var stmts []string
	if schema, _ := storage.SplitQualifiedName(spec.Name); schema != "" {
		stmts = append(stmts, fmt.Sprintf(
			"IF SCHEMA_ID(N'%s') IS NULL EXEC(N'CREATE SCHEMA %s');",
			escapeLiteral(schema), escapeLiteral(mssqlIdent(schema)),
		))
	}

	table := mssqlTableIdent(spec.Name)
	stmts = append(stmts, fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		escapeLiteral(table), table,
	))

	defs := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		typ, err := mssqlType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", spec.Name, c.Name, err)
		}
		defs[i] = mssqlIdent(c.Name) + " " + typ + " NULL"
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s);", table, strings.Join(defs, ", ")))
	return stmts, nil
}

func mssqlType(t storage.ColumnType) (string, error) {
	switch t {
	case storage.TypeText:
		return "NVARCHAR(MAX)", nil
	case storage.TypeBigInt:
		return "BIGINT", nil
	case storage.TypeDouble:
		return "FLOAT", nil
	case storage.TypeBoolean:
		return "BIT", nil
	}
	return "", fmt.Errorf("unsupported column type %q", t)
}

// buildBulkInsertSQL builds a multi-row INSERT with sequential @pN parameters.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// mssqlIdent bracket-quotes an identifier.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent quotes a possibly schema-qualified name: "dbo.shopping" -> [dbo].[shopping].
func mssqlTableIdent(name string) string {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return mssqlIdent(table)
	}
	return mssqlIdent(schema) + "." + mssqlIdent(table)
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// ---- database/sql seam types ----

// dbConn is the subset of *sql.DB this package needs; tests swap in a fake.
type dbConn interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

type txConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *sqlDB) Close() error { return s.db.Close() }
