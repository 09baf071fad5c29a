package sink

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"shopetl/internal/dataset"
	"shopetl/internal/metrics"
	"shopetl/internal/storage"
)

type fakeRepo struct {
	spec       storage.TableSpec
	rows       [][]any
	replaceErr error
	closed     int
}

func (f *fakeRepo) ReplaceTable(_ context.Context, spec storage.TableSpec, rows [][]any) (int64, error) {
	f.spec = spec
	f.rows = rows
	if f.replaceErr != nil {
		return 0, f.replaceErr
	}
	return int64(len(rows)), nil
}

func (f *fakeRepo) Close() { f.closed++ }

type countingBackend struct{ counters map[string]float64 }

func (c *countingBackend) IncCounter(_ string, delta float64, l metrics.Labels) {
	c.counters[l["kind"]] += delta
}
func (c *countingBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (c *countingBackend) Flush() error                                     { return nil }

func cleaned() *dataset.Dataset {
	return dataset.MustNew(
		dataset.NewColumn("customer_id", dataset.KindInt, []dataset.Value{dataset.Int(1), dataset.Int(2)}),
		dataset.NewColumn("purchase_amount_usd", dataset.KindFloat, []dataset.Value{dataset.Float(53), dataset.Missing()}),
		dataset.NewColumn("gender", dataset.KindCategory, []dataset.Value{dataset.Text("Male"), dataset.Text("Female")}),
		dataset.NewColumn("subscription_status", dataset.KindBool, []dataset.Value{dataset.Bool(true), dataset.Missing()}),
		dataset.NewColumn("note", dataset.KindText, []dataset.Value{dataset.Text("a"), dataset.Int(7)}),
	)
}

func TestSpecFromDataset(t *testing.T) {
	spec, err := SpecFromDataset("shopping", cleaned())
	require.NoError(t, err)
	require.Equal(t, "shopping", spec.Name)
	require.Equal(t, []storage.ColumnSpec{
		{Name: "customer_id", Type: storage.TypeBigInt},
		{Name: "purchase_amount_usd", Type: storage.TypeDouble},
		{Name: "gender", Type: storage.TypeText},
		{Name: "subscription_status", Type: storage.TypeBoolean},
		{Name: "note", Type: storage.TypeText},
	}, spec.Columns)

	_, err = SpecFromDataset("shopping", nil)
	require.Error(t, err)
}

func TestRows(t *testing.T) {
	rows := Rows(cleaned())
	require.Equal(t, [][]any{
		{int64(1), 53.0, "Male", true, "a"},
		{int64(2), nil, "Female", nil, "7"},
	}, rows)
}

func TestUpload_ReplacesAndCloses(t *testing.T) {
	repo := &fakeRepo{}
	var gotCfg storage.Config
	u := NewUploader(func(_ context.Context, cfg storage.Config) (storage.TableRepository, error) {
		gotCfg = cfg
		return repo, nil
	}, storage.Config{Kind: "sqlite", DSN: "x.db"})

	n, err := u.Upload(context.Background(), cleaned(), "shopping")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.Equal(t, "sqlite", gotCfg.Kind)
	require.Equal(t, "shopping", repo.spec.Name)
	require.Len(t, repo.rows, 2)
	require.Equal(t, 1, repo.closed)
}

func TestUpload_ClosesOnReplaceError(t *testing.T) {
	boom := errors.New("disk full")
	repo := &fakeRepo{replaceErr: boom}
	u := NewUploader(func(context.Context, storage.Config) (storage.TableRepository, error) { return repo, nil }, storage.Config{Kind: "postgres"})

	_, err := u.Upload(context.Background(), cleaned(), "shopping")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "replace table shopping")
	require.Equal(t, 1, repo.closed)
}

func TestUpload_FactoryError(t *testing.T) {
	boom := errors.New("connection refused")
	u := NewUploader(func(context.Context, storage.Config) (storage.TableRepository, error) { return nil, boom }, storage.Config{Kind: "postgres"})

	_, err := u.Upload(context.Background(), cleaned(), "shopping")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "kind=postgres")
}

func TestUpload_EmptyTable(t *testing.T) {
	u := NewUploader(nil, storage.Config{Kind: "postgres"})
	_, err := u.Upload(context.Background(), cleaned(), "")
	require.Error(t, err)
}

func TestUploadAndReport(t *testing.T) {
	b := &countingBackend{counters: map[string]float64{}}
	metrics.SetBackend(b)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ok := UploadAndReport(context.Background(), logger,
		NewUploader(func(context.Context, storage.Config) (storage.TableRepository, error) { return &fakeRepo{}, nil }, storage.Config{Kind: "sqlite"}),
		cleaned(), "shopping")
	require.True(t, ok)
	require.Contains(t, buf.String(), "data uploaded")
	require.Contains(t, buf.String(), "table=shopping")
	require.Equal(t, 2.0, b.counters[metrics.KindUploaded])

	buf.Reset()
	ok = UploadAndReport(context.Background(), logger,
		NewUploader(func(context.Context, storage.Config) (storage.TableRepository, error) { return nil, errors.New("refused") }, storage.Config{Kind: "postgres"}),
		cleaned(), "shopping")
	require.False(t, ok)
	require.Contains(t, buf.String(), "level=ERROR")
	require.Contains(t, buf.String(), "refused")
}

func TestParquetMetadata(t *testing.T) {
	meta := parquetMetadata(cleaned())
	require.Equal(t, []string{
		"name=customer_id, type=INT64, repetitiontype=OPTIONAL",
		"name=purchase_amount_usd, type=DOUBLE, repetitiontype=OPTIONAL",
		"name=gender, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL",
		"name=subscription_status, type=BOOLEAN, repetitiontype=OPTIONAL",
		"name=note, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL",
	}, meta)
}

func TestParquetCell(t *testing.T) {
	require.Nil(t, parquetCell(storage.TypeDouble, dataset.Missing()))
	require.Equal(t, "53", *parquetCell(storage.TypeDouble, dataset.Float(53)))
	require.Equal(t, "true", *parquetCell(storage.TypeBoolean, dataset.Bool(true)))
	require.Equal(t, "-4", *parquetCell(storage.TypeBigInt, dataset.Int(-4)))
	require.Equal(t, "Male", *parquetCell(storage.TypeText, dataset.Text("Male")))
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "clean.parquet")
	require.NoError(t, WriteParquet(path, cleaned()))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "PAR1"), "missing parquet header magic")
	require.True(t, strings.HasSuffix(string(b), "PAR1"), "missing parquet footer magic")

	require.Error(t, WriteParquet(path, nil))
}
