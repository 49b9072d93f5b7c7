package mapping

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDate reads a date cell deterministically. Three-part numeric dates
// separated by '-', '/' or '.' are supported in DMY, MDY and YMD orders.
// Under OrderAuto a value is accepted only when a single order can explain
// it; ambiguous day/month pairs and two-digit years fail instead of
// guessing.
func parseDate(s string, order DateOrder) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Some exports append a time component ("2024-03-15 00:00:00").
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}

	parts, err := splitDate(s)
	if err != nil {
		return time.Time{}, err
	}

	switch order {
	case OrderDMY:
		return makeDate(parts[2], parts[1], parts[0])
	case OrderMDY:
		return makeDate(parts[2], parts[0], parts[1])
	case OrderYMD:
		return makeDate(parts[0], parts[1], parts[2])
	}

	return autoDate(parts)
}

type datePart struct {
	value  int
	digits int
}

func splitDate(s string) ([3]datePart, error) {
	var parts [3]datePart

	sep := ""

	for _, c := range []string{"-", "/", "."} {
		if strings.Contains(s, c) {
			sep = c
			break
		}
	}

	if sep == "" {
		return parts, fmt.Errorf("unrecognized date %q", s)
	}

	fields := strings.Split(s, sep)
	if len(fields) != 3 {
		return parts, fmt.Errorf("unrecognized date %q", s)
	}

	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 {
			return parts, fmt.Errorf("unrecognized date %q", s)
		}

		parts[i] = datePart{value: v, digits: len(f)}
	}

	return parts, nil
}

// autoDate accepts a value only when exactly one order explains it:
// a four-digit first part is YMD, a four-digit last part is DMY or MDY
// with the day provable (>12 on one side, or day == month).
func autoDate(parts [3]datePart) (time.Time, error) {
	if parts[0].digits == 4 {
		return makeDate(parts[0], parts[1], parts[2])
	}

	if parts[2].digits != 4 {
		return time.Time{}, fmt.Errorf("ambiguous date: two-digit year")
	}

	a, b := parts[0], parts[1]

	switch {
	case a.value > 12 && b.value <= 12:
		return makeDate(parts[2], b, a)
	case b.value > 12 && a.value <= 12:
		return makeDate(parts[2], a, b)
	case a.value == b.value:
		// Same value either way round.
		return makeDate(parts[2], b, a)
	}

	return time.Time{}, fmt.Errorf("ambiguous date: day and month indistinguishable, set a date order on the mapping")
}

func makeDate(year, month, day datePart) (time.Time, error) {
	if year.digits != 4 {
		return time.Time{}, fmt.Errorf("ambiguous date: two-digit year")
	}

	t := time.Date(year.value, time.Month(month.value), day.value, 0, 0, 0, 0, time.UTC)

	// time.Date normalizes out-of-range values (Feb 31 -> Mar 2); reject
	// anything that did not survive the round trip.
	if t.Year() != year.value || int(t.Month()) != month.value || t.Day() != day.value {
		return time.Time{}, fmt.Errorf("invalid calendar date")
	}

	return t, nil
}
