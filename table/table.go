// Package table holds the in-memory CSV table shared by the merge and split
// commands. Cells are kept as the raw strings read from disk so values are
// written back exactly as they came in.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// GPIKey is the grid point column every dataset is joined and grouped on.
const GPIKey = "gpi_ascat"

var (
	// ErrMissingColumn wraps the name of a required column that is absent.
	ErrMissingColumn = errors.New("missing column")
	ErrEmptyInput    = errors.New("input has no header row")
)

// Table is a header plus rows. Every row has len(Header) cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns an empty table with a copy of header.
func New(header []string) *Table {
	return &Table{Header: append([]string(nil), header...)}
}

// ReadCSV loads a comma separated file with a header row.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. Short rows are padded with empty cells; rows wider
// than the header are an error.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := New(header)
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) > len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// WriteCSV writes t to path, replacing any existing file. No index column is
// written.
func (t *Table) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of column name or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

func (t *Table) Has(name string) bool { return t.Index(name) != -1 }

// Drop returns a copy of t without the named columns. Names that are not
// present are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := map[int]bool{}
	for _, n := range names {
		if i := t.Index(n); i != -1 {
			skip[i] = true
		}
	}
	if len(skip) == 0 {
		return t
	}

	keep := make([]int, 0, len(t.Header)-len(skip))
	for i := range t.Header {
		if !skip[i] {
			keep = append(keep, i)
		}
	}
	return t.project(keep)
}

// Rename changes column old to the name to, in place, and reports whether old existed.
func (t *Table) Rename(old, to string) bool {
	i := t.Index(old)
	if i == -1 {
		return false
	}
	t.Header[i] = to
	return true
}

// Filter returns the rows for which keep reports true, in order.
func (t *Table) Filter(keep func(row []string) bool) *Table {
	out := New(t.Header)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func (t *Table) project(cols []int) *Table {
	out := &Table{Header: make([]string, len(cols)), Rows: make([][]string, len(t.Rows))}
	for j, c := range cols {
		out.Header[j] = t.Header[c]
	}
	for r, row := range t.Rows {
		nr := make([]string, len(cols))
		for j, c := range cols {
			nr[j] = row[c]
		}
		out.Rows[r] = nr
	}
	return out
}
