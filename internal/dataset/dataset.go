package dataset

import (
	"fmt"
)

// Column is one named sequence of values spanning all rows.
//
// Kind is the declared logical type. A Text column may still hold non-text
// payloads (for example a boolean flag where only some values mapped);
// consumers that need one storage type per column should go through
// Value.String for Text and Category columns.
type Column struct {
	Name   string
	Kind   Kind
	Values []Value

	// Levels is the closed label set of a Category column.
	Levels []string
	// Ordered marks Levels as a ranked scale (age_group).
	Ordered bool
}

// NewColumn builds a column without copying values.
func NewColumn(name string, kind Kind, values []Value) *Column {
	return &Column{Name: name, Kind: kind, Values: values}
}

// TextColumn builds a Text column from raw strings; "" stays a valid empty string.
func TextColumn(name string, values ...string) *Column {
	vs := make([]Value, len(values))
	for i, s := range values {
		vs[i] = Text(s)
	}
	return NewColumn(name, KindText, vs)
}

// MissingCount returns the number of missing values in c.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

func (c *Column) clone() *Column {
	out := &Column{
		Name:    c.Name,
		Kind:    c.Kind,
		Values:  append([]Value(nil), c.Values...),
		Ordered: c.Ordered,
	}
	if c.Levels != nil {
		out.Levels = append([]string(nil), c.Levels...)
	}
	return out
}

// Dataset is an ordered set of equally long columns.
//
// Column names are expected to be unique. If two columns end up with the same
// name (e.g. after header normalization), lookups by name resolve to the
// first one and the second is carried along untouched.
type Dataset struct {
	cols   []*Column
	byName map[string]int
	n      int

	// Index holds row labels. Readers assign 0..n-1; row selection keeps the
	// surviving labels and ResetIndex renumbers them.
	Index []int
}

// New builds a dataset from columns that must all have the same length.
func New(cols ...*Column) (*Dataset, error) {
	d := &Dataset{byName: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("dataset: column %d is nil", i)
		}
		if i == 0 {
			d.n = len(c.Values)
		} else if len(c.Values) != d.n {
			return nil, fmt.Errorf("dataset: column %q has %d rows, want %d", c.Name, len(c.Values), d.n)
		}
		d.cols = append(d.cols, c)
	}
	d.reindexNames()
	d.ResetIndex()
	return d, nil
}

// MustNew is New for fixtures; it panics on a length mismatch.
func MustNew(cols ...*Column) *Dataset {
	d, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return d
}

// Len returns the row count.
func (d *Dataset) Len() int { return d.n }

// Width returns the column count.
func (d *Dataset) Width() int { return len(d.cols) }

// Names returns column names in order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.cols))
	for i, c := range d.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in order. The slice is shared; callers may
// mutate column values but must not change lengths.
func (d *Dataset) Columns() []*Column { return d.cols }

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// Has reports whether a column named name exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// SetColumn replaces the column with the same name or appends c.
func (d *Dataset) SetColumn(c *Column) error {
	if len(c.Values) != d.n {
		return fmt.Errorf("dataset: column %q has %d rows, want %d", c.Name, len(c.Values), d.n)
	}
	if i, ok := d.byName[c.Name]; ok {
		d.cols[i] = c
		return nil
	}
	d.cols = append(d.cols, c)
	d.byName[c.Name] = len(d.cols) - 1
	return nil
}

// Rename renames column from to to. It returns false when from is absent.
func (d *Dataset) Rename(from, to string) bool {
	c, ok := d.Column(from)
	if !ok {
		return false
	}
	c.Name = to
	d.reindexNames()
	return true
}

// SetNames renames all columns positionally.
func (d *Dataset) SetNames(names []string) error {
	if len(names) != len(d.cols) {
		return fmt.Errorf("dataset: %d names for %d columns", len(names), len(d.cols))
	}
	for i, n := range names {
		d.cols[i].Name = n
	}
	d.reindexNames()
	return nil
}

// Row returns the values of row i in column order.
func (d *Dataset) Row(i int) []Value {
	out := make([]Value, len(d.cols))
	for j, c := range d.cols {
		out[j] = c.Values[i]
	}
	return out
}

// Keep retains the given rows, in the given order, together with their index labels.
func (d *Dataset) Keep(rows []int) {
	for _, c := range d.cols {
		vs := make([]Value, len(rows))
		for k, r := range rows {
			vs[k] = c.Values[r]
		}
		c.Values = vs
	}
	idx := make([]int, len(rows))
	for k, r := range rows {
		idx[k] = d.Index[r]
	}
	d.Index = idx
	d.n = len(rows)
}

// ResetIndex renumbers row labels to a dense 0-based sequence.
func (d *Dataset) ResetIndex() {
	d.Index = make([]int, d.n)
	for i := range d.Index {
		d.Index[i] = i
	}
}

// Clone returns a deep copy that shares nothing with d.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		cols:  make([]*Column, len(d.cols)),
		n:     d.n,
		Index: append([]int(nil), d.Index...),
	}
	for i, c := range d.cols {
		out.cols[i] = c.clone()
	}
	out.reindexNames()
	return out
}

func (d *Dataset) reindexNames() {
	d.byName = make(map[string]int, len(d.cols))
	for i, c := range d.cols {
		if _, dup := d.byName[c.Name]; dup {
			continue
		}
		d.byName[c.Name] = i
	}
}
