package csv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"shopetl/internal/dataset"
)

// WriteFile writes d to path, replacing any existing file. The parent
// directory is created when missing.
func WriteFile(path string, d *dataset.Dataset) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if err := Write(bw, d); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Write emits a header line and one line per row. Missing values are empty
// fields, booleans are True/False and whole floats keep a trailing ".0".
func Write(w io.Writer, d *dataset.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Names()); err != nil {
		return err
	}

	cols := d.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < d.Len(); i++ {
		for j, c := range cols {
			rec[j] = c.Values[i].String()
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
