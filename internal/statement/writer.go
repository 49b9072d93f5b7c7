package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// Dialect selects the output CSV flavor.
type Dialect string

const (
	// DialectStandard is plain comma-separated CSV: ISO dates, point
	// decimal, LF line endings, RFC 4180 quoting.
	DialectStandard Dialect = "standard"
	// DialectFortnox matches what Fortnox "Stäm av konto" imports:
	// semicolon separator, decimal comma, UTF-8 BOM, CRLF, and a trailer
	// line the importer ignores.
	DialectFortnox Dialect = "fortnox"
)

const (
	fortnoxHeader  = "Datum;Ingående saldo-Beskrivning;Belopp"
	fortnoxTrailer = "This will not be imported"
	// Fortnox silently rejects longer descriptions.
	maxFortnoxDescription = 100
)

var standardHeader = []string{"Datum", "Beskrivning", "Belopp"}

// Writer serializes converted rows. Output is byte-stable: the same rows
// always produce the same bytes, regardless of locale.
type Writer struct {
	dialect Dialect
}

func NewWriter(dialect Dialect) (*Writer, error) {
	switch dialect {
	case DialectStandard, DialectFortnox:
		return &Writer{dialect: dialect}, nil
	}

	return nil, fmt.Errorf("unknown dialect: %q", dialect)
}

func (w *Writer) Write(out io.Writer, rows []ConvertedRow) error {
	if w.dialect == DialectFortnox {
		return w.writeFortnox(out, rows)
	}

	return w.writeStandard(out, rows)
}

func (w *Writer) writeStandard(out io.Writer, rows []ConvertedRow) error {
	cw := csv.NewWriter(out)

	if err := cw.Write(standardHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Date.Format(time.DateOnly),
			row.Description,
			row.Amount.StringFixed(2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

func (w *Writer) writeFortnox(out io.Writer, rows []ConvertedRow) error {
	var buf bytes.Buffer

	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	buf.WriteString(fortnoxHeader)
	buf.WriteString("\r\n")

	for _, row := range rows {
		buf.WriteString(row.Date.Format(time.DateOnly))
		buf.WriteByte(';')
		buf.WriteString(fortnoxDescription(row.Description))
		buf.WriteByte(';')
		buf.WriteString(strings.ReplaceAll(row.Amount.StringFixed(2), ".", ","))
		buf.WriteString("\r\n")
	}

	buf.WriteString(fortnoxTrailer)
	buf.WriteString("\r\n")

	_, err := out.Write(buf.Bytes())

	return err
}

// fortnoxSanitizer keeps a description on one physical line: separators
// become commas, line breaks become spaces.
var fortnoxSanitizer = strings.NewReplacer(";", ",", "\r\n", " ", "\r", " ", "\n", " ")

// fortnoxDescription makes a description safe for the semicolon dialect,
// capped at the importer's limit.
func fortnoxDescription(s string) string {
	s = fortnoxSanitizer.Replace(s)

	runes := []rune(s)
	if len(runes) > maxFortnoxDescription {
		return string(runes[:maxFortnoxDescription])
	}

	return s
}
