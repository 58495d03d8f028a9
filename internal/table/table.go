// Package table holds the in-memory form of a named sheet and the typed
// codecs for the sheets the pipeline reads and writes.
package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingColumn is returned when a table lacks a required header.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidValue is returned when a cell cannot be parsed for its column.
	ErrInvalidValue = errors.New("invalid value")
)

// Table is a header row followed by data rows, all cells as text.
type Table struct {
	Header []string
	Rows   [][]string
}

// New returns a table with the given header and no rows.
func New(header ...string) Table {
	return Table{Header: append([]string(nil), header...)}
}

// Append adds a data row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Len is the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// Values returns header and rows as one grid, the way a sheet stores them.
func (t Table) Values() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	return append(out, t.Rows...)
}

// FromValues splits a grid into header and rows. An empty grid yields an empty table.
func FromValues(values [][]string) Table {
	if len(values) == 0 {
		return Table{}
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.TrimSpace(h)
	}
	return Table{Header: header, Rows: values[1:]}
}

// Require checks that every named column is present in the header.
func (t Table) Require(cols ...string) error {
	have := make(map[string]bool, len(t.Header))
	for _, h := range t.Header {
		have[h] = true
	}
	var missing []string
	for _, c := range cols {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Record is a data row keyed by header.
type Record struct {
	Row    int // 1-based data row, header excluded
	fields map[string]string
}

// NewRecord builds a record from explicit fields.
func NewRecord(row int, fields map[string]string) Record {
	return Record{Row: row, fields: fields}
}

// Get returns the trimmed cell under col, "" when absent.
func (r Record) Get(col string) string {
	return strings.TrimSpace(r.fields[col])
}

// Raw returns the cell under col as stored.
func (r Record) Raw(col string) string {
	return r.fields[col]
}

// Records returns the data rows keyed by header. Blank rows are skipped and
// short rows read as empty cells.
func (t Table) Records() []Record {
	out := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		fields := make(map[string]string, len(t.Header))
		for j, h := range t.Header {
			if h == "" {
				continue
			}
			if j < len(row) {
				fields[h] = row[j]
			} else {
				fields[h] = ""
			}
		}
		out = append(out, Record{Row: i + 1, fields: fields})
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
