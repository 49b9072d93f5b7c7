package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/pipeline"
	"github.com/eklundh/kontoutdrag/internal/rates"
	"github.com/eklundh/kontoutdrag/internal/statement"
	"github.com/eklundh/kontoutdrag/internal/table"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y, m, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

type fakeSource struct {
	quotes map[string]decimal.Decimal
	calls  int
}

func (f *fakeSource) Fetch(_ context.Context, currency string, day time.Time) (decimal.Decimal, error) {
	f.calls++

	if rate, ok := f.quotes[currency+"|"+day.Format(time.DateOnly)]; ok {
		return rate, nil
	}

	return decimal.Decimal{}, rates.ErrNotFound
}

func newPipeline(src rates.Source) *pipeline.Pipeline {
	return pipeline.New(mapping.NewMapper(), rates.NewResolver("SEK", src))
}

func eurMapping() mapping.Mapping {
	return mapping.Mapping{
		DateColumn:        "Date",
		DescriptionColumn: "Desc",
		AmountColumn:      "Amount",
		CurrencyColumn:    "Currency",
	}
}

func TestRun_ConvertsForeignCurrency(t *testing.T) {
	// A March transaction uses February's closing rate. Feb 29 has no
	// observation, so the fallback lands on Feb 28.
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows:   [][]string{{"15/03/2024", "Lunch", "123,45", "EUR"}},
	}
	src := &fakeSource{quotes: map[string]decimal.Decimal{
		"EUR|2024-02-28": decimal.RequireFromString("11.20"),
	}}

	result, err := newPipeline(src).Run(context.Background(), tbl, eurMapping(), pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	row := result.Rows[0]
	assert.Equal(t, date(2024, 3, 15), row.Date)
	assert.Equal(t, "Lunch", row.Description)
	assert.Equal(t, "1382.64", row.Amount.StringFixed(2))
	assert.Equal(t, "11.2", row.RateUsed.String())
	assert.Equal(t, date(2024, 2, 28), row.RateDate)
}

func TestRun_OverrideBypassesResolver(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows: [][]string{
			{"2024-03-15", "Domestic", "100,00", "SEK"},
			{"2024-03-15", "Foreign", "100,00", "EUR"},
		},
	}
	src := &fakeSource{}

	opts := pipeline.Options{
		Overrides: map[string]decimal.Decimal{"EUR": decimal.RequireFromString("11.00")},
	}

	result, err := newPipeline(src).Run(context.Background(), tbl, eurMapping(), opts)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	domestic := result.Rows[0]
	assert.Equal(t, "100.00", domestic.Amount.StringFixed(2))
	assert.True(t, domestic.RateUsed.Equal(decimal.NewFromInt(1)))

	foreign := result.Rows[1]
	assert.Equal(t, "1100.00", foreign.Amount.StringFixed(2))
	assert.Equal(t, "11", foreign.RateUsed.String())
	assert.Equal(t, date(2024, 3, 15), foreign.RateDate)

	assert.Zero(t, src.calls, "override must keep the resolver out of it")
}

func TestRun_DateRangeInclusive(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows: [][]string{
			{"2024-02-28", "too early", "10,00", "SEK"},
			{"2024-03-01", "first", "10,00", "SEK"},
			{"2024-03-31", "last", "10,00", "SEK"},
			{"2024-04-01", "too late", "10,00", "SEK"},
		},
	}

	opts := pipeline.Options{
		Range: statement.DateRange{Start: datePtr(2024, 3, 1), End: datePtr(2024, 3, 31)},
	}

	result, err := newPipeline(&fakeSource{}).Run(context.Background(), tbl, eurMapping(), opts)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "first", result.Rows[0].Description)
	assert.Equal(t, "last", result.Rows[1].Description)
}

func TestRun_SkippedRowsReported(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows: [][]string{
			{"2024-03-15", "good", "10,00", "SEK"},
			{"2024-03-16", "bad", "N/A", "SEK"},
		},
	}

	result, err := newPipeline(&fakeSource{}).Run(context.Background(), tbl, eurMapping(), pipeline.Options{})
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "good", result.Rows[0].Description)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 1, result.Skipped[0].Index)
	assert.Contains(t, result.Skipped[0].Reason, "amount")
}

func TestRun_StrictModeAborts(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows: [][]string{
			{"2024-03-15", "good", "10,00", "SEK"},
			{"2024-03-16", "bad", "N/A", "SEK"},
		},
	}

	_, err := newPipeline(&fakeSource{}).Run(context.Background(), tbl, eurMapping(), pipeline.Options{Strict: true})

	var perr *mapping.RowParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Index)
}

func TestRun_RateUnavailableAbortsRun(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows: [][]string{
			{"2024-03-15", "domestic", "10,00", "SEK"},
			{"2024-03-15", "foreign", "10,00", "EUR"},
		},
	}

	result, err := newPipeline(&fakeSource{}).Run(context.Background(), tbl, eurMapping(), pipeline.Options{})

	assert.Nil(t, result, "no partial output on rate failure")
	assert.ErrorIs(t, err, rates.ErrUnavailable)
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, string, time.Time) (decimal.Decimal, error) {
	return decimal.Decimal{}, errors.New("503 service unavailable")
}

func TestRun_SourceErrorAbortsRun(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows: [][]string{
			{"2024-03-15", "domestic", "10,00", "SEK"},
			{"2024-03-15", "foreign", "10,00", "EUR"},
		},
	}

	result, err := newPipeline(failingSource{}).Run(context.Background(), tbl, eurMapping(), pipeline.Options{})

	assert.Nil(t, result, "no partial output on a broken feed")

	var serr *rates.SourceError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "EUR", serr.Currency)
}

func TestRun_DeduplicatesLookups(t *testing.T) {
	// Ten March rows in EUR need exactly one observation.
	tbl := &table.Table{Header: []string{"Date", "Desc", "Amount", "Currency"}}
	for d := 10; d < 20; d++ {
		tbl.Rows = append(tbl.Rows, []string{date(2024, 3, d).Format(time.DateOnly), "x", "1,00", "EUR"})
	}

	src := &fakeSource{quotes: map[string]decimal.Decimal{
		"EUR|2024-02-29": decimal.RequireFromString("11.25"),
	}}

	result, err := newPipeline(src).Run(context.Background(), tbl, eurMapping(), pipeline.Options{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 10)
	assert.Equal(t, 1, src.calls)
}

func TestRun_TargetMismatchRejected(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows:   [][]string{{"2024-03-15", "x", "1,00", "SEK"}},
	}

	_, err := newPipeline(&fakeSource{}).Run(context.Background(), tbl, eurMapping(), pipeline.Options{TargetCurrency: "EUR"})
	assert.Error(t, err)
}

func TestRun_NonPositiveOverrideRejected(t *testing.T) {
	tbl := &table.Table{
		Header: []string{"Date", "Desc", "Amount", "Currency"},
		Rows:   [][]string{{"2024-03-15", "x", "1,00", "EUR"}},
	}

	opts := pipeline.Options{Overrides: map[string]decimal.Decimal{"EUR": decimal.Zero}}

	_, err := newPipeline(&fakeSource{}).Run(context.Background(), tbl, eurMapping(), opts)
	assert.Error(t, err)
}
