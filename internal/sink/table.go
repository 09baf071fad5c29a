// Package sink moves a cleaned dataset out of the process: into a database
// table through the storage registry, or into a Parquet file.
package sink

import (
	"fmt"

	"shopetl/internal/dataset"
	"shopetl/internal/storage"
)

// ColumnType maps a dataset column kind to its storage type.
func ColumnType(k dataset.Kind) storage.ColumnType {
	switch k {
	case dataset.KindInt:
		return storage.TypeBigInt
	case dataset.KindFloat:
		return storage.TypeDouble
	case dataset.KindBool:
		return storage.TypeBoolean
	default:
		return storage.TypeText
	}
}

// SpecFromDataset derives the table layout for ds: one column per dataset
// column, in order, typed by column kind.
func SpecFromDataset(table string, ds *dataset.Dataset) (storage.TableSpec, error) {
	if ds == nil {
		return storage.TableSpec{}, fmt.Errorf("dataset is nil")
	}
	spec := storage.TableSpec{Name: table}
	for _, c := range ds.Columns() {
		spec.Columns = append(spec.Columns, storage.ColumnSpec{Name: c.Name, Type: ColumnType(c.Kind)})
	}
	return spec, nil
}

// Rows converts ds into driver-ready rows. Missing becomes nil. A value whose
// kind does not fit its column type is rendered as text in text columns and
// as nil elsewhere.
func Rows(ds *dataset.Dataset) [][]any {
	cols := ds.Columns()
	out := make([][]any, ds.Len())
	for i := range out {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = cell(ColumnType(c.Kind), c.Values[i])
		}
		out[i] = row
	}
	return out
}

func cell(t storage.ColumnType, v dataset.Value) any {
	if v.IsMissing() {
		return nil
	}
	switch t {
	case storage.TypeBigInt:
		if i, ok := v.Int64(); ok {
			return i
		}
		return nil
	case storage.TypeDouble:
		if f, ok := v.Float64(); ok {
			return f
		}
		return nil
	case storage.TypeBoolean:
		if b, ok := v.BoolValue(); ok {
			return b
		}
		return nil
	}
	if s, ok := v.Str(); ok {
		return s
	}
	return v.String()
}
