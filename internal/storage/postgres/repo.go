package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"shopetl/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

/*
Repo implements storage.TableRepository for Postgres.

A replace runs in one transaction: optional CREATE SCHEMA, DROP TABLE IF
EXISTS, CREATE TABLE, then COPY FROM STDIN for the rows. Readers never see
a half-loaded table.
*/
type Repo struct {
	conn *pgx.Conn
}

// New connects to cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.TableRepository, error) {
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return &Repo{conn: conn}, nil
}

// Close closes the connection.
func (r *Repo) Close() {
	if r == nil || r.conn == nil {
		return
	}
	_ = r.conn.Close(context.Background())
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

	var n int64
	err = pgx.BeginFunc(ctx, r.conn, func(tx pgx.Tx) error {
		for _, s := range stmts {
			if _, err := tx.Exec(ctx, s); err != nil {
				return fmt.Errorf("exec %q: %w", s, err)
			}
		}
		var err error
		n, err = tx.CopyFrom(ctx, copyIdentifier(spec.Name), spec.ColumnNames(), pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", spec.Name, err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("postgres replace %s: %w", spec.Name, err)
	}
	return n, nil
}

// buildReplaceSQL returns the DDL statements of a replace, in order.
//
// It is pure and deterministic so identifier quoting and type mapping can be
// unit tested without a database.
func buildReplaceSQL(spec storage.TableSpec) ([]string, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("table name is empty")
	}

	var stmts []string
	if schema, _ := storage.SplitQualifiedName(spec.Name); schema != "" {
		stmts = append(stmts, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", pgIdent(schema)))
	}

	table := pgTableIdent(spec.Name)
	stmts = append(stmts, fmt.Sprintf("DROP TABLE IF EXISTS %s;", table))

	defs := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		typ, err := pgType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", spec.Name, c.Name, err)
		}
		defs[i] = pgIdent(c.Name) + " " + typ
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s);", table, strings.Join(defs, ", ")))
	return stmts, nil
}

func pgType(t storage.ColumnType) (string, error) {
	switch t {
	case storage.TypeText:
		return "TEXT", nil
	case storage.TypeBigInt:
		return "BIGINT", nil
	case storage.TypeDouble:
		return "DOUBLE PRECISION", nil
	case storage.TypeBoolean:
		return "BOOLEAN", nil
	}
	return "", fmt.Errorf("unsupported column type %q", t)
}

// pgIdent double-quotes an identifier, escaping embedded quotes.
func pgIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// pgTableIdent quotes a possibly schema-qualified table name.
func pgTableIdent(name string) string {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return pgIdent(table)
	}
	return pgIdent(schema) + "." + pgIdent(table)
}

func copyIdentifier(name string) pgx.Identifier {
	schema, table := storage.SplitQualifiedName(name)
	if schema == "" {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, table}
}
