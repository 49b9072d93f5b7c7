package mapping

import (
	"strings"

	"github.com/shopspring/decimal"
)

// amountCleaner strips the junk banks put in numeric cells: grouping
// spaces (including NBSP) and typographic minus variants.
var amountCleaner = strings.NewReplacer(
	"−", "-", // Unicode minus
	"–", "-", // en-dash
	" ", "", // non-breaking space
	" ", "",
)

// parseAmount reads a signed decimal from a cell. The decimal mark decides
// which of '.'/',' is fractional; the other is dropped as grouping.
func parseAmount(s string, mark DecimalMark) (decimal.Decimal, error) {
	clean := amountCleaner.Replace(strings.TrimSpace(s))

	switch mark {
	case MarkComma:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	default:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}

// inferDecimalMark inspects the amount column once per table and picks the
// most common decimal separator. A separator is counted as decimal when it
// is the rightmost one in its cell and is not shaped like a grouping
// separator (exactly three trailing digits with no other separator).
func inferDecimalMark(values []string) DecimalMark {
	comma, point := 0, 0

	for _, v := range values {
		v = amountCleaner.Replace(strings.TrimSpace(v))

		lastComma := strings.LastIndex(v, ",")
		lastPoint := strings.LastIndex(v, ".")

		switch {
		case lastComma < 0 && lastPoint < 0:
			continue
		case lastComma >= 0 && lastPoint >= 0:
			if lastComma > lastPoint {
				comma++
			} else {
				point++
			}
		case lastComma >= 0:
			if decimalShaped(v, lastComma) {
				comma++
			} else {
				point++
			}
		default:
			if decimalShaped(v, lastPoint) {
				point++
			} else {
				comma++
			}
		}
	}

	if comma > point {
		return MarkComma
	}

	return MarkPoint
}

// decimalShaped reports whether the separator at idx looks fractional:
// anything but exactly three trailing digits, which is the grouping shape
// ("1,234" or "1.234").
func decimalShaped(v string, idx int) bool {
	return len(v)-idx-1 != 3
}
