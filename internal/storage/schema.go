package storage

import (
	"fmt"
	"strings"
)

// ColumnType is a backend-neutral column type. Backends map it to their own
// SQL type names.
type ColumnType string

const (
	TypeText    ColumnType = "text"
	TypeBigInt  ColumnType = "bigint"
	TypeDouble  ColumnType = "double"
	TypeBoolean ColumnType = "boolean"
)

// TableSpec describes a table to (re)create.
type TableSpec struct {
	Name    string       `json:"name"`
	Columns []ColumnSpec `json:"columns"`
}

// ColumnSpec is one nullable column.
type ColumnSpec struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// ColumnNames returns the column names in order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate checks the table layout and that every row matches its width.
func (t TableSpec) Validate(rows [][]any) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s: no columns", t.Name)
	}
	for _, c := range t.Columns {
		if c.Name == "" {
			return fmt.Errorf("%s: empty column name", t.Name)
		}
		switch c.Type {
		case TypeText, TypeBigInt, TypeDouble, TypeBoolean:
		default:
			return fmt.Errorf("%s.%s: unsupported column type %q", t.Name, c.Name, c.Type)
		}
	}
	for i, r := range rows {
		if len(r) != len(t.Columns) {
			return fmt.Errorf("%s: row %d has %d values, want %d", t.Name, i, len(r), len(t.Columns))
		}
	}
	return nil
}

// SplitQualifiedName splits "schema.table" into its parts. Anything other
// than exactly one dot is treated as an unqualified name.
func SplitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// Chunks splits rows so that no chunk binds more than maxParams placeholders.
// At least one row goes into every chunk.
func Chunks(rows [][]any, width, maxParams int) [][][]any {
	if len(rows) == 0 {
		return nil
	}
	per := 1
	if width > 0 && maxParams > width {
		per = maxParams / width
	}
	out := make([][][]any, 0, (len(rows)+per-1)/per)
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
