package table

import "io"

// Table is an uploaded export loaded into memory: a header plus data rows,
// every row aligned to the header. Cell values are raw strings; all parsing
// happens later, when a column mapping is applied.
type Table struct {
	Header []string
	Rows   [][]string
}

// Source produces a Table from an uploaded file. The CSV source in this
// package is the shipped implementation; a spreadsheet reader plugs in
// behind the same interface.
type Source interface {
	Read(r io.Reader) (*Table, error)
}

// ColumnIndex returns the position of the named column in the header,
// or -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Header {
		if col == name {
			return i
		}
	}

	return -1
}

// Cell returns the trimmed-length-safe cell at (row, col). Rows are aligned
// to the header by the reader, so col is always in range for reader-built
// tables; the guard covers hand-built ones.
func (t *Table) Cell(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}

	return t.Rows[row][col]
}
