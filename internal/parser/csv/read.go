// Package csv loads and writes the retail-behavior table as delimited text.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"shopetl/internal/dataset"
)

// Options controls parsing.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// LazyQuotes tolerates stray quotes inside unquoted fields.
	LazyQuotes bool
}

// LoadError reports a file that could not be read or parsed.
type LoadError struct {
	Path string
	// Line is the 1-based record number, 0 when the failure is not tied to a record.
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrNoHeader is returned for an empty input.
var ErrNoHeader = errors.New("missing header row")

// ReadFile loads path into a Dataset of Text columns.
func ReadFile(path string, opt Options) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	d, err := read(f, opt)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return d, nil
}

// Read loads a Dataset from r. Header names are taken verbatim except for a
// leading UTF-8 BOM. Empty fields become missing and short rows are padded
// with missing; a row with more fields than the header is an error.
func Read(r io.Reader, opt Options) (*dataset.Dataset, error) {
	return read(r, opt)
}

func read(r io.Reader, opt Options) (*dataset.Dataset, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	line := 1
	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, &LoadError{Line: line, Err: ErrNoHeader}
	}
	if err != nil {
		return nil, &LoadError{Line: line, Err: fmt.Errorf("read header: %w", err)}
	}

	names := make([]string, len(hdr))
	copy(names, hdr)
	if len(names) > 0 {
		names[0] = strings.TrimPrefix(names[0], "\uFEFF")
	}

	cols := make([][]dataset.Value, len(names))
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Line: line, Err: fmt.Errorf("csv read: %w", err)}
		}
		if len(rec) > len(names) {
			return nil, &LoadError{Line: line, Err: fmt.Errorf("expected %d fields, saw %d", len(names), len(rec))}
		}
		for j := range names {
			var v dataset.Value
			if j < len(rec) && rec[j] != "" {
				v = dataset.Text(rec[j])
			}
			cols[j] = append(cols[j], v)
		}
	}

	out := make([]*dataset.Column, len(names))
	for j, name := range names {
		vals := cols[j]
		if vals == nil {
			vals = []dataset.Value{}
		}
		out[j] = dataset.NewColumn(name, dataset.KindText, vals)
	}
	d, err := dataset.New(out...)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return d, nil
}
