package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is a source transaction projected onto the fixed statement shape,
// still in its source currency. The amount sign is whatever the bank
// exported; debit/credit conventions are not reinterpreted.
type Row struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Currency    string
}

// ConvertedRow is a Row with the amount expressed in the target currency.
// RateDate is the date the rate was actually resolved for, which can
// differ from the transaction date under the previous-month-end policy
// and its fallback.
type ConvertedRow struct {
	Row
	RateUsed decimal.Decimal
	RateDate time.Time
}
