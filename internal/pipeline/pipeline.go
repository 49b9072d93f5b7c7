package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/rates"
	"github.com/eklundh/kontoutdrag/internal/statement"
	"github.com/eklundh/kontoutdrag/internal/table"
)

// maxConcurrentLookups bounds parallel rate fetches per run.
const maxConcurrentLookups = 4

// Options configures a single conversion run.
type Options struct {
	// TargetCurrency defaults to the resolver's target; setting anything
	// else is an error.
	TargetCurrency string
	// Overrides maps currency codes to caller-fixed rates. An override
	// bypasses the resolver entirely for that currency.
	Overrides map[string]decimal.Decimal
	Range     statement.DateRange
	// Strict turns any row parse failure into a run failure.
	Strict bool
}

// Result is the complete outcome of a run: the converted, filtered rows
// plus the rows the mapper had to skip. A Result is only produced when
// every currency resolution succeeded.
type Result struct {
	Rows    []statement.ConvertedRow
	Skipped []mapping.SkippedRow
}

type Pipeline struct {
	mapper   *mapping.Mapper
	resolver *rates.Resolver
}

func New(mapper *mapping.Mapper, resolver *rates.Resolver) *Pipeline {
	return &Pipeline{mapper: mapper, resolver: resolver}
}

// Run maps the table, converts every row into the target currency, filters
// by date range and returns the rows in input order. Rate lookups for
// distinct (currency, quote date) pairs run concurrently, but conversion
// only starts once all of them have completed.
func (p *Pipeline) Run(ctx context.Context, t *table.Table, cfg mapping.Mapping, opts Options) (*Result, error) {
	if err := opts.Range.Validate(); err != nil {
		return nil, err
	}

	target, err := p.targetCurrency(opts)
	if err != nil {
		return nil, err
	}

	overrides, err := normalizeOverrides(opts.Overrides)
	if err != nil {
		return nil, err
	}

	rows, skipped, err := p.mapper.Apply(t, cfg)
	if err != nil {
		return nil, err
	}

	if opts.Strict && len(skipped) > 0 {
		first := skipped[0]
		return nil, &mapping.RowParseError{Index: first.Index, Field: "row", Reason: first.Reason}
	}

	quotes, err := p.prefetchQuotes(ctx, rows, target, overrides)
	if err != nil {
		return nil, err
	}

	one := decimal.NewFromInt(1)
	converted := make([]statement.ConvertedRow, 0, len(rows))

	for _, row := range rows {
		switch {
		case row.Currency == target:
			converted = append(converted, statement.ConvertedRow{Row: row, RateUsed: one, RateDate: row.Date})
		case hasOverride(overrides, row.Currency):
			rate := overrides[row.Currency]
			out := row
			out.Amount = row.Amount.Mul(rate)
			converted = append(converted, statement.ConvertedRow{Row: out, RateUsed: rate, RateDate: row.Date})
		default:
			quote := quotes[quoteKey(row.Currency, row.Date)]
			out := row
			out.Amount = row.Amount.Mul(quote.Rate)
			converted = append(converted, statement.ConvertedRow{Row: out, RateUsed: quote.Rate, RateDate: quote.AsOf})
		}
	}

	return &Result{
		Rows:    statement.Filter(converted, opts.Range),
		Skipped: skipped,
	}, nil
}

// prefetchQuotes resolves every distinct (currency, quote date) pair the
// rows need, in parallel, and waits for all of them. Partial results are
// never used: the first failure cancels the rest and fails the run.
func (p *Pipeline) prefetchQuotes(ctx context.Context, rows []statement.Row, target string, overrides map[string]decimal.Decimal) (map[string]rates.Quote, error) {
	need := make(map[string]time.Time)

	for _, row := range rows {
		if row.Currency == target || hasOverride(overrides, row.Currency) {
			continue
		}

		key := quoteKey(row.Currency, row.Date)
		if _, ok := need[key]; !ok {
			need[key] = row.Date
		}
	}

	quotes := make(map[string]rates.Quote, len(need))

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	for key, refDate := range need {
		key, refDate := key, refDate
		currency := strings.SplitN(key, "|", 2)[0]

		g.Go(func() error {
			quote, err := p.resolver.Resolve(gctx, currency, refDate)
			if err != nil {
				return err
			}

			mu.Lock()
			quotes[key] = quote
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return quotes, nil
}

func (p *Pipeline) targetCurrency(opts Options) (string, error) {
	target := strings.ToUpper(strings.TrimSpace(opts.TargetCurrency))
	if target == "" {
		return p.resolver.Target(), nil
	}

	if target != p.resolver.Target() {
		return "", fmt.Errorf("target currency %s does not match rate resolver target %s", target, p.resolver.Target())
	}

	return target, nil
}

func normalizeOverrides(in map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, nil
	}

	out := make(map[string]decimal.Decimal, len(in))

	for currency, rate := range in {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("override rate for %s must be positive, got %s", currency, rate)
		}

		out[strings.ToUpper(strings.TrimSpace(currency))] = rate
	}

	return out, nil
}

func hasOverride(overrides map[string]decimal.Decimal, currency string) bool {
	_, ok := overrides[currency]
	return ok
}

// quoteKey dedupes lookups on the date the policy will actually query,
// not the transaction date, so a whole month of rows costs one fetch.
func quoteKey(currency string, refDate time.Time) string {
	return currency + "|" + rates.PolicyDate(refDate).Format(time.DateOnly)
}
