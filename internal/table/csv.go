package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	enc "github.com/eklundh/kontoutdrag/internal/encoding"
)

// ErrEmptyFile reports an upload with no header row.
var ErrEmptyFile = errors.New("file contains no rows")

// delimiters tried during sniffing, most common in bank exports first.
var delimiters = []rune{';', ',', '\t'}

// CSVSource reads delimiter-separated exports. The delimiter is sniffed
// from the header line and the file's charset is normalized to UTF-8
// before any cell is read.
type CSVSource struct{}

func NewCSVSource() *CSVSource {
	return &CSVSource{}
}

func (s *CSVSource) Read(r io.Reader) (*Table, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1 // banks love ragged footer rows
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return build(records)
}

// sniffDelimiter picks the delimiter that splits the header line into the
// most fields. Ties go to the earlier candidate, which favors semicolons
// the way European exports expect.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best := delimiters[0]
	bestCount := 0

	for _, d := range delimiters {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best = d
			bestCount = n
		}
	}

	return best
}

// build treats the first record with any non-empty cell as the header and
// aligns every following row to it. Short rows are padded with empty
// cells; anything past the header width is dropped.
func build(records [][]string) (*Table, error) {
	headerIdx := -1

	for i, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				headerIdx = i
				break
			}
		}

		if headerIdx >= 0 {
			break
		}
	}

	if headerIdx < 0 {
		return nil, ErrEmptyFile
	}

	header := make([]string, len(records[headerIdx]))
	for i, cell := range records[headerIdx] {
		header[i] = strings.TrimSpace(cell)
	}

	rows := make([][]string, 0, len(records)-headerIdx-1)

	for _, rec := range records[headerIdx+1:] {
		row := make([]string, len(header))
		copy(row, rec)
		rows = append(rows, row)
	}

	return &Table{Header: header, Rows: rows}, nil
}
