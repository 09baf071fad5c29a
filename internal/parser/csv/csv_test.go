package csv

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"shopetl/internal/dataset"
)

func TestRead_HeaderAndMissing(t *testing.T) {
	in := "\uFEFFCustomer ID,Gender, Notes \n1,Male,\n2,,  x \n"

	d, err := Read(strings.NewReader(in), Options{})
	require.NoError(t, err)

	require.Equal(t, []string{"Customer ID", "Gender", " Notes "}, d.Names(), "only the BOM is stripped")
	require.Equal(t, 2, d.Len())
	require.Equal(t, []int{0, 1}, d.Index)

	g, _ := d.Column("Gender")
	require.Equal(t, dataset.KindText, g.Kind)
	require.Equal(t, dataset.Text("Male"), g.Values[0])
	require.True(t, g.Values[1].IsMissing())

	n, _ := d.Column(" Notes ")
	require.True(t, n.Values[0].IsMissing())
	require.Equal(t, dataset.Text("  x "), n.Values[1], "values are not trimmed on load")
}

func TestRead_ShortRowsArePadded(t *testing.T) {
	d, err := Read(strings.NewReader("a,b,c\n1\n1,2,3\n"), Options{})
	require.NoError(t, err)

	b, _ := d.Column("b")
	require.True(t, b.Values[0].IsMissing())
	require.Equal(t, dataset.Text("2"), b.Values[1])
}

func TestRead_Errors(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		opt      Options
		wantLine int
	}{
		{name: "empty", in: "", wantLine: 1},
		{name: "too_many_fields", in: "a,b\n1,2\n1,2,3\n", wantLine: 3},
		{name: "bad_quote", in: "a,b\n\"x,1\n", wantLine: 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tc.in), tc.opt)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			require.Equal(t, tc.wantLine, le.Line)
		})
	}

	_, err := Read(strings.NewReader(""), Options{})
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestRead_OptionsCommaAndLazyQuotes(t *testing.T) {
	d, err := Read(strings.NewReader("a;b\nsay \"hi\";2\n"), Options{Comma: ';', LazyQuotes: true})
	require.NoError(t, err)

	a, _ := d.Column("a")
	require.Equal(t, dataset.Text(`say "hi"`), a.Values[0])
}

func TestReadFile_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")

	_, err := ReadFile(path, Options{})

	var le *LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, path, le.Path)
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.Contains(t, err.Error(), path)
}

func TestReadFile_ParseErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1,2\n"), 0o644))

	_, err := ReadFile(path, Options{})

	var le *LoadError
	require.ErrorAs(t, err, &le)
	require.Equal(t, path, le.Path)
	require.Equal(t, 2, le.Line)
}

func TestWrite_Formats(t *testing.T) {
	d := dataset.MustNew(
		dataset.NewColumn("id", dataset.KindInt, []dataset.Value{dataset.Int(1), dataset.Int(2)}),
		dataset.NewColumn("amount", dataset.KindFloat, []dataset.Value{dataset.Float(53), dataset.Float(12.5)}),
		dataset.NewColumn("flag", dataset.KindBool, []dataset.Value{dataset.Bool(true), dataset.Bool(false)}),
		dataset.NewColumn("note", dataset.KindText, []dataset.Value{dataset.Text("a,b"), dataset.Missing()}),
	)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, d))

	require.Equal(t, "id,amount,flag,note\n1,53.0,True,\"a,b\"\n2,12.5,False,\n", buf.String())
}

func TestWriteFile_OverwritesAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "clean.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the new file\n"), 0o644))

	d := dataset.MustNew(dataset.TextColumn("gender", "Male", "Female"))
	require.NoError(t, WriteFile(path, d))

	back, err := ReadFile(path, Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"gender"}, back.Names())
	require.Equal(t, 2, back.Len())
}

func TestWriteFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "clean.csv")

	require.NoError(t, WriteFile(path, dataset.MustNew(dataset.TextColumn("x", "1"))))

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestWriteFile_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := WriteFile(filepath.Join(blocker, "clean.csv"), dataset.MustNew(dataset.TextColumn("x", "1")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "clean.csv")
}
