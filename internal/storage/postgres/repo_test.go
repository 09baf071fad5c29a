package postgres

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"shopetl/internal/storage"
)

func shoppingSpec(name string) storage.TableSpec {
	return storage.TableSpec{
		Name: name,
		Columns: []storage.ColumnSpec{
			{Name: "customer_id", Type: storage.TypeBigInt},
			{Name: "purchase_amount_usd", Type: storage.TypeDouble},
			{Name: "gender", Type: storage.TypeText},
			{Name: "high_value_purchase", Type: storage.TypeBoolean},
		},
	}
}

func TestBuildReplaceSQL_Unqualified(t *testing.T) {
	t.Parallel()

	stmts, err := buildReplaceSQL(shoppingSpec("shopping"))
	if err != nil {
		t.Fatalf("buildReplaceSQL: %v", err)
	}
	want := []string{
		`DROP TABLE IF EXISTS "shopping";`,
		`CREATE TABLE "shopping" ("customer_id" BIGINT, "purchase_amount_usd" DOUBLE PRECISION, "gender" TEXT, "high_value_purchase" BOOLEAN);`,
	}
	if !reflect.DeepEqual(stmts, want) {
		t.Fatalf("stmts=\n%q\nwant\n%q", stmts, want)
	}
}

func TestBuildReplaceSQL_SchemaQualified(t *testing.T) {
	t.Parallel()

	stmts, err := buildReplaceSQL(shoppingSpec("retail.shopping"))
	if err != nil {
		t.Fatalf("buildReplaceSQL: %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("want 3 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != `CREATE SCHEMA IF NOT EXISTS "retail";` {
		t.Fatalf("schema stmt=%q", stmts[0])
	}
	if !strings.HasPrefix(stmts[2], `CREATE TABLE "retail"."shopping" (`) {
		t.Fatalf("create stmt=%q", stmts[2])
	}
}

func TestBuildReplaceSQL_Errors(t *testing.T) {
	t.Parallel()

	if _, err := buildReplaceSQL(storage.TableSpec{Name: " "}); err == nil {
		t.Fatalf("expected error for empty table name")
	}
	bad := storage.TableSpec{Name: "t", Columns: []storage.ColumnSpec{{Name: "a", Type: "money"}}}
	if _, err := buildReplaceSQL(bad); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}

func TestPgIdent_EscapesQuotes(t *testing.T) {
	t.Parallel()

	if got := pgIdent(`we"ird`); got != `"we""ird"` {
		t.Fatalf("pgIdent=%q", got)
	}
}

func TestCopyIdentifier(t *testing.T) {
	t.Parallel()

	if got := copyIdentifier("shopping"); !reflect.DeepEqual(got, pgx.Identifier{"shopping"}) {
		t.Fatalf("copyIdentifier=%v", got)
	}
	if got := copyIdentifier("retail.shopping"); !reflect.DeepEqual(got, pgx.Identifier{"retail", "shopping"}) {
		t.Fatalf("copyIdentifier=%v", got)
	}
}

func TestReplaceTable_ValidatesBeforeTouchingConnection(t *testing.T) {
	t.Parallel()

	r := &Repo{}
	_, err := r.ReplaceTable(context.Background(), shoppingSpec("shopping"), [][]any{{int64(1)}})
	if err == nil || !strings.Contains(err.Error(), "want 4") {
		t.Fatalf("expected width validation error, got %v", err)
	}
}
