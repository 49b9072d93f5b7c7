// Package riksbank fetches closing exchange rates from Riksbanken's SWEA
// API. Observations are published per series (one per SEK cross), so the
// client only supports the currencies it has a series ID for.
package riksbank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eklundh/kontoutdrag/internal/rates"
)

const DefaultBaseURL = "https://api.riksbank.se/swea/v1"

// series maps ISO 4217 codes to SWEA observation series for SEK crosses.
var series = map[string]string{
	"EUR": "SEKEURPMI",
	"USD": "SEKUSDPMI",
	"GBP": "SEKGBPPMI",
	"NOK": "SEKNOKPMI",
	"DKK": "SEKDKKPMI",
	"CHF": "SEKCHFPMI",
	"JPY": "SEKJPYPMI",
	"CAD": "SEKCADPMI",
	"AUD": "SEKAUDPMI",
	"NZD": "SEKNZDPMI",
	"PLN": "SEKPLNPMI",
	"CZK": "SEKCZKPMI",
	"HUF": "SEKHUFPMI",
	"TRY": "SEKTRYPMI",
	"CNY": "SEKCNYPMI",
	"HKD": "SEKHKDPMI",
	"SGD": "SEKSGDPMI",
	"THB": "SEKTHBPMI",
	"KRW": "SEKKRWPMI",
	"INR": "SEKINRPMI",
}

// Currencies returns the supported currency codes, sorted.
func Currencies() []string {
	codes := make([]string, 0, len(series))
	for code := range series {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// observation is a single SWEA data point. The API returns either a list
// of these or a bare object depending on the endpoint version.
type observation struct {
	Date  string      `json:"date"`
	Value json.Number `json:"value"`
}

// Fetch implements rates.Source. Currencies without a SWEA series and
// dates without an observation both report rates.ErrNotFound; transport
// and decoding failures surface as plain errors for the resolver to wrap.
func (c *Client) Fetch(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	id, ok := series[strings.ToUpper(currency)]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("no SWEA series for %s: %w", currency, rates.ErrNotFound)
	}

	url := fmt.Sprintf("%s/Observations/%s/%s", c.baseURL, id, date.Format(time.DateOnly))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return decimal.Decimal{}, rates.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return decimal.Decimal{}, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("reading response: %w", err)
	}

	obs, err := decodeObservations(body)
	if err != nil {
		return decimal.Decimal{}, err
	}

	if len(obs) == 0 || obs[0].Value == "" {
		return decimal.Decimal{}, rates.ErrNotFound
	}

	rate, err := decimal.NewFromString(obs[0].Value.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad rate value %q: %w", obs[0].Value, err)
	}

	return rate, nil
}

func decodeObservations(body []byte) ([]observation, error) {
	var list []observation
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var single observation
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return []observation{single}, nil
}
