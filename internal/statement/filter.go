package statement

import (
	"errors"
	"time"
)

// ErrInvalidRange reports a range whose start falls after its end.
var ErrInvalidRange = errors.New("date range start is after end")

// DateRange bounds rows by transaction date. A nil side is unbounded.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return ErrInvalidRange
	}

	return nil
}

// Contains reports whether d falls within the range, both bounds inclusive.
func (r DateRange) Contains(d time.Time) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}

	if r.End != nil && d.After(*r.End) {
		return false
	}

	return true
}

// Filter retains rows whose date falls within the range, preserving the
// original relative order.
func Filter(rows []ConvertedRow, r DateRange) []ConvertedRow {
	kept := make([]ConvertedRow, 0, len(rows))

	for _, row := range rows {
		if r.Contains(row.Date) {
			kept = append(kept, row)
		}
	}

	return kept
}
