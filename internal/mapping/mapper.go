package mapping

import (
	"fmt"
	"strings"

	"github.com/eklundh/kontoutdrag/internal/statement"
	"github.com/eklundh/kontoutdrag/internal/table"
)

// RowParseError reports a single row that could not be parsed. Index is the
// zero-based position of the row in the source table.
type RowParseError struct {
	Index  int
	Field  string
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %d: %s: %s", e.Index, e.Field, e.Reason)
}

// SkippedRow records why a row was left out of the result.
type SkippedRow struct {
	Index  int    `json:"row_index"`
	Reason string `json:"reason"`
}

// Mapper applies a column mapping to a source table, producing one
// statement row per parseable input row, in input order. Rows that fail to
// parse are collected, never silently dropped.
type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

func (m *Mapper) Apply(t *table.Table, cfg Mapping) ([]statement.Row, []SkippedRow, error) {
	proj, err := cfg.resolve(t)
	if err != nil {
		return nil, nil, err
	}

	mark := proj.mark
	if mark == MarkAuto {
		mark = inferMarkFromColumn(t, proj.amount)
	}

	rows := make([]statement.Row, 0, len(t.Rows))

	var skipped []SkippedRow

	for i := range t.Rows {
		row, rowErr := mapRow(t, proj, i, mark)
		if rowErr != nil {
			skipped = append(skipped, SkippedRow{Index: rowErr.Index, Reason: rowErr.Error()})
			continue
		}

		rows = append(rows, row)
	}

	return rows, skipped, nil
}

func mapRow(t *table.Table, proj *projection, i int, mark DecimalMark) (statement.Row, *RowParseError) {
	date, err := parseDate(t.Cell(i, proj.date), proj.order)
	if err != nil {
		return statement.Row{}, &RowParseError{Index: i, Field: "date", Reason: err.Error()}
	}

	amount, err := parseAmount(t.Cell(i, proj.amount), mark)
	if err != nil {
		return statement.Row{}, &RowParseError{Index: i, Field: "amount", Reason: fmt.Sprintf("cannot parse %q", t.Cell(i, proj.amount))}
	}

	// Fees are subtracted from the amount before conversion; the sign the
	// bank used for the fee does not matter, a fee always reduces.
	if proj.fee >= 0 {
		if cell := strings.TrimSpace(t.Cell(i, proj.fee)); cell != "" {
			fee, err := parseAmount(cell, mark)
			if err != nil {
				return statement.Row{}, &RowParseError{Index: i, Field: "fee", Reason: fmt.Sprintf("cannot parse %q", cell)}
			}

			amount = amount.Sub(fee.Abs())
		}
	}

	currency := proj.fixed
	if proj.currency >= 0 {
		currency = strings.ToUpper(strings.TrimSpace(t.Cell(i, proj.currency)))
		if currency == "" {
			return statement.Row{}, &RowParseError{Index: i, Field: "currency", Reason: "empty currency cell"}
		}
	}

	return statement.Row{
		Date:        date,
		Description: strings.TrimSpace(t.Cell(i, proj.desc)),
		Amount:      amount,
		Currency:    currency,
	}, nil
}

func inferMarkFromColumn(t *table.Table, col int) DecimalMark {
	values := make([]string, 0, len(t.Rows))
	for i := range t.Rows {
		values = append(values, t.Cell(i, col))
	}

	return inferDecimalMark(values)
}
