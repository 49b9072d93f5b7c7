package rates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is what a Source reports when the feed simply has no
	// observation for the requested date. The resolver steps backward on it.
	ErrNotFound = errors.New("no rate observation for date")

	// ErrUnavailable means the bounded backward search was exhausted.
	// Distinct from SourceError: this is "data genuinely missing", not
	// "ask again later".
	ErrUnavailable = errors.New("rate unavailable within fallback window")
)

// SourceError wraps a transport or decoding failure from the rate feed.
// It always aborts a run; a broken feed must never turn into a rate of
// zero or one.
type SourceError struct {
	Currency string
	Date     time.Time
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("rate source failed for %s on %s: %v", e.Currency, e.Date.Format(time.DateOnly), e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Quote is the closing rate for converting one unit of Currency into the
// resolver's target currency as of AsOf.
type Quote struct {
	Currency string
	AsOf     time.Time
	Rate     decimal.Decimal
}

// Source fetches the closing rate for a currency on an exact date,
// reporting ErrNotFound when the feed has no observation for it.
type Source interface {
	Fetch(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error)
}

// maxLookback bounds the backward search over calendar days. Ten days
// covers any weekend/holiday cluster a central bank realistically closes for.
const maxLookback = 10

// Resolver turns (currency, transaction date) into a Quote. The business
// rule is fixed: a transaction always uses the closing rate of the last
// business day of the month before its own (a March transaction gets the
// end-of-February rate). Resolved quotes are cached per (currency, date)
// so a run never fetches the same observation twice.
type Resolver struct {
	target string
	source Source
	cache  *gocache.Cache
}

func NewResolver(target string, source Source) *Resolver {
	return &Resolver{
		target: strings.ToUpper(strings.TrimSpace(target)),
		source: source,
		cache:  gocache.New(time.Hour, 2*time.Hour),
	}
}

// Target returns the currency all quotes convert into.
func (r *Resolver) Target() string {
	return r.target
}

// PolicyDate returns the first date the resolver will ask the feed for,
// given a transaction date: the previous month's last day, rolled back
// over the weekend.
func PolicyDate(referenceDate time.Time) time.Time {
	return lastWeekday(previousMonthEnd(referenceDate))
}

// Resolve returns the quote for a transaction in the given currency dated
// referenceDate. Feed gaps (holidays, misaligned calendars) fall back one
// calendar day at a time, at most maxLookback attempts.
func (r *Resolver) Resolve(ctx context.Context, currency string, referenceDate time.Time) (Quote, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if currency == r.target {
		return Quote{Currency: currency, AsOf: referenceDate, Rate: decimal.NewFromInt(1)}, nil
	}

	date := PolicyDate(referenceDate)

	for attempt := 0; attempt < maxLookback; attempt++ {
		key := currency + "|" + date.Format(time.DateOnly)

		if cached, ok := r.cache.Get(key); ok {
			return Quote{Currency: currency, AsOf: date, Rate: cached.(decimal.Decimal)}, nil
		}

		rate, err := r.source.Fetch(ctx, currency, date)

		switch {
		case err == nil:
			r.cache.Set(key, rate, gocache.DefaultExpiration)
			return Quote{Currency: currency, AsOf: date, Rate: rate}, nil
		case errors.Is(err, ErrNotFound):
			date = date.AddDate(0, 0, -1)
		default:
			return Quote{}, &SourceError{Currency: currency, Date: date, Err: err}
		}
	}

	return Quote{}, fmt.Errorf("%s: no observation in the %d days before %s: %w",
		currency, maxLookback, PolicyDate(referenceDate).Format(time.DateOnly), ErrUnavailable)
}

func previousMonthEnd(d time.Time) time.Time {
	firstOfMonth := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 0, -1)
}

func lastWeekday(d time.Time) time.Time {
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}

	return d
}
