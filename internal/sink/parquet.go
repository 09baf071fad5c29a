package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"shopetl/internal/dataset"
	"shopetl/internal/storage"
)

// parquetParallelism is the writer's marshal goroutine count.
const parquetParallelism = 4

// WriteParquet writes ds to path as a SNAPPY-compressed Parquet file with
// one OPTIONAL field per column. An existing file is replaced.
func WriteParquet(path string, ds *dataset.Dataset) (err error) {
	if ds == nil {
		return fmt.Errorf("write parquet %s: dataset is nil", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write parquet %s: %w", path, err)
		}
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet %s: %w", path, err)
	}
	defer func() {
		if cerr := fw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close parquet %s: %w", path, cerr)
		}
	}()

	pw, err := writer.NewCSVWriter(parquetMetadata(ds), fw, parquetParallelism)
	if err != nil {
		return fmt.Errorf("init parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	cols := ds.Columns()
	for i := 0; i < ds.Len(); i++ {
		rec := make([]*string, len(cols))
		for j, c := range cols {
			rec[j] = parquetCell(ColumnType(c.Kind), c.Values[i])
		}
		if err := pw.WriteString(rec); err != nil {
			return fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet %s: %w", path, err)
	}
	return nil
}

// parquetMetadata builds the CSV writer's "key=value" field descriptors.
func parquetMetadata(ds *dataset.Dataset) []string {
	cols := ds.Columns()
	meta := make([]string, len(cols))
	for i, c := range cols {
		switch ColumnType(c.Kind) {
		case storage.TypeBigInt:
			meta[i] = fmt.Sprintf("name=%s, type=INT64, repetitiontype=OPTIONAL", c.Name)
		case storage.TypeDouble:
			meta[i] = fmt.Sprintf("name=%s, type=DOUBLE, repetitiontype=OPTIONAL", c.Name)
		case storage.TypeBoolean:
			meta[i] = fmt.Sprintf("name=%s, type=BOOLEAN, repetitiontype=OPTIONAL", c.Name)
		default:
			meta[i] = fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL", c.Name)
		}
	}
	return meta
}

// parquetCell renders v in the form the CSV writer parses for type t.
// nil marks a null.
func parquetCell(t storage.ColumnType, v dataset.Value) *string {
	var s string
	switch x := cell(t, v).(type) {
	case nil:
		return nil
	case int64:
		s = strconv.FormatInt(x, 10)
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		s = strconv.FormatBool(x)
	case string:
		s = x
	}
	return &s
}
