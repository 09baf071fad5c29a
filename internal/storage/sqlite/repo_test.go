package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"shopetl/internal/storage"
)

func spec() storage.TableSpec {
	return storage.TableSpec{
		Name: "shopping",
		Columns: []storage.ColumnSpec{
			{Name: "customer_id", Type: storage.TypeBigInt},
			{Name: "purchase_amount_usd", Type: storage.TypeDouble},
			{Name: "gender", Type: storage.TypeText},
			{Name: "high_value_purchase", Type: storage.TypeBoolean},
		},
	}
}

func openTemp(t *testing.T) (storage.TableRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	t.Cleanup(repo.Close)
	return repo, path
}

func TestBuildReplaceSQL(t *testing.T) {
	t.Parallel()

	dropSQL, createSQL, err := buildReplaceSQL(spec())
	if err != nil {
		t.Fatalf("buildReplaceSQL: %v", err)
	}
	if dropSQL != `DROP TABLE IF EXISTS "shopping";` {
		t.Fatalf("dropSQL=%q", dropSQL)
	}
	for _, want := range []string{`"customer_id" INTEGER`, `"purchase_amount_usd" REAL`, `"gender" TEXT`, `"high_value_purchase" BOOLEAN`} {
		if !strings.Contains(createSQL, want) {
			t.Fatalf("createSQL missing %q: %s", want, createSQL)
		}
	}
}

func TestBuildInsertSQL(t *testing.T) {
	t.Parallel()

	q, args := buildInsertSQL("shopping", []string{"a", "b"}, [][]any{{1, "x"}, {2, nil}})
	if q != `INSERT INTO "shopping" ("a", "b") VALUES (?,?), (?,?)` {
		t.Fatalf("q=%q", q)
	}
	if len(args) != 4 || args[3] != nil {
		t.Fatalf("args=%v", args)
	}
}

func TestReplaceTable_RoundTrip(t *testing.T) {
	repo, path := openTemp(t)
	ctx := context.Background()

	// A stale table with a different shape must disappear.
	stale := storage.TableSpec{Name: "shopping", Columns: []storage.ColumnSpec{{Name: "old", Type: storage.TypeText}}}
	if _, err := repo.ReplaceTable(ctx, stale, [][]any{{"x"}, {"y"}, {"z"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows := [][]any{
		{int64(1), 53.0, "Male", false},
		{int64(2), 94.5, nil, true},
	}
	n, err := repo.ReplaceTable(ctx, spec(), rows)
	if err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}
	if n != 2 {
		t.Fatalf("n=%d, want 2", n)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM shopping`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count=%d, want 2 (old rows must be gone)", count)
	}

	var (
		id     int64
		amount float64
		gender sql.NullString
		hv     bool
	)
	if err := db.QueryRow(`SELECT customer_id, purchase_amount_usd, gender, high_value_purchase FROM shopping WHERE customer_id = 2`).
		Scan(&id, &amount, &gender, &hv); err != nil {
		t.Fatal(err)
	}
	if amount != 94.5 || gender.Valid || !hv {
		t.Fatalf("row 2 = (%d, %v, %v, %v)", id, amount, gender, hv)
	}
}

func TestReplaceTable_ManyRowsAreChunked(t *testing.T) {
	repo, _ := openTemp(t)

	rows := make([][]any, 1000)
	for i := range rows {
		rows[i] = []any{int64(i), float64(i), "F", i%2 == 0}
	}
	n, err := repo.ReplaceTable(context.Background(), spec(), rows)
	if err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}
	if n != 1000 {
		t.Fatalf("n=%d, want 1000", n)
	}
}

func TestReplaceTable_EmptyRowsCreatesTable(t *testing.T) {
	repo, path := openTemp(t)

	if _, err := repo.ReplaceTable(context.Background(), spec(), nil); err != nil {
		t.Fatalf("ReplaceTable: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM shopping`).Scan(&count); err != nil {
		t.Fatalf("table missing: %v", err)
	}
}

func TestReplaceTable_RejectsRaggedRows(t *testing.T) {
	repo, _ := openTemp(t)

	if _, err := repo.ReplaceTable(context.Background(), spec(), [][]any{{int64(1)}}); err == nil {
		t.Fatalf("expected validation error")
	}
}
