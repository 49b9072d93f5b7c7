package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eklundh/kontoutdrag/internal/table"
)

// DateOrder fixes how purely numeric dates are read. OrderAuto accepts only
// values that are provable in a single order.
type DateOrder string

const (
	OrderAuto DateOrder = "auto"
	OrderDMY  DateOrder = "dmy"
	OrderMDY  DateOrder = "mdy"
	OrderYMD  DateOrder = "ymd"
)

// DecimalMark fixes which separator is the decimal point. MarkAuto infers
// it once per table from the amount column, never per row.
type DecimalMark string

const (
	MarkAuto  DecimalMark = "auto"
	MarkComma DecimalMark = "comma"
	MarkPoint DecimalMark = "point"
)

// Mapping projects an arbitrary source schema onto the fixed statement
// shape. Either CurrencyColumn or CurrencyCode must resolve a currency.
// FeeColumn is optional: when set, the absolute fee is subtracted from
// the amount (empty fee cells count as zero).
type Mapping struct {
	PresetName        string      `json:"preset_name,omitempty" yaml:"preset_name,omitempty"`
	DateColumn        string      `json:"date_column" yaml:"date_column"`
	DescriptionColumn string      `json:"description_column" yaml:"description_column"`
	AmountColumn      string      `json:"amount_column" yaml:"amount_column"`
	FeeColumn         string      `json:"fee_column,omitempty" yaml:"fee_column,omitempty"`
	CurrencyColumn    string      `json:"currency_column,omitempty" yaml:"currency_column,omitempty"`
	CurrencyCode      string      `json:"currency_code,omitempty" yaml:"currency_code,omitempty"`
	DateOrder         DateOrder   `json:"date_order,omitempty" yaml:"date_order,omitempty"`
	DecimalMark       DecimalMark `json:"decimal_mark,omitempty" yaml:"decimal_mark,omitempty"`
}

// ValidationError reports a mapping that cannot be applied at all: a mapped
// column missing from the table, or an unusable fixed currency code.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid mapping: %s: %s", e.Field, e.Reason)
}

// ErrMissingCurrency reports a mapping that resolves no currency at all.
var ErrMissingCurrency = errors.New("mapping resolves no currency: set currency_column or currency_code")

// Complete reports whether the three required columns are set. Presets are
// rejected before they hit a table when they are structurally incomplete.
func (m Mapping) Complete() bool {
	return m.DateColumn != "" && m.DescriptionColumn != "" && m.AmountColumn != ""
}

// projection is a mapping resolved against a concrete header: fixed cell
// indices checked up front, so each row is read by plain slice access.
type projection struct {
	date     int
	desc     int
	amount   int
	fee      int // -1 when no fee column is mapped
	currency int // -1 when the mapping carries a fixed code instead
	fixed    string
	order    DateOrder
	mark     DecimalMark
}

func (m Mapping) resolve(t *table.Table) (*projection, error) {
	p := &projection{
		fee:      -1,
		currency: -1,
		order:    m.DateOrder,
		mark:     m.DecimalMark,
	}

	if p.order == "" {
		p.order = OrderAuto
	}

	if p.mark == "" {
		p.mark = MarkAuto
	}

	required := []struct {
		field  string
		column string
		idx    *int
	}{
		{"date_column", m.DateColumn, &p.date},
		{"description_column", m.DescriptionColumn, &p.desc},
		{"amount_column", m.AmountColumn, &p.amount},
	}

	for _, r := range required {
		if r.column == "" {
			return nil, &ValidationError{Field: r.field, Reason: "not set"}
		}

		idx := t.ColumnIndex(r.column)
		if idx < 0 {
			return nil, &ValidationError{Field: r.field, Reason: fmt.Sprintf("column %q not found in table header", r.column)}
		}

		*r.idx = idx
	}

	if m.FeeColumn != "" {
		idx := t.ColumnIndex(m.FeeColumn)
		if idx < 0 {
			return nil, &ValidationError{Field: "fee_column", Reason: fmt.Sprintf("column %q not found in table header", m.FeeColumn)}
		}

		p.fee = idx
	}

	switch {
	case m.CurrencyColumn != "":
		idx := t.ColumnIndex(m.CurrencyColumn)
		if idx < 0 {
			return nil, &ValidationError{Field: "currency_column", Reason: fmt.Sprintf("column %q not found in table header", m.CurrencyColumn)}
		}

		p.currency = idx
	case m.CurrencyCode != "":
		code := strings.ToUpper(strings.TrimSpace(m.CurrencyCode))
		if len(code) != 3 {
			return nil, &ValidationError{Field: "currency_code", Reason: fmt.Sprintf("%q is not an ISO 4217 code", m.CurrencyCode)}
		}

		p.fixed = code
	default:
		return nil, ErrMissingCurrency
	}

	return p, nil
}
