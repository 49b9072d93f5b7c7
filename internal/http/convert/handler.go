package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/pipeline"
	"github.com/eklundh/kontoutdrag/internal/preset"
	"github.com/eklundh/kontoutdrag/internal/rates"
	"github.com/eklundh/kontoutdrag/internal/statement"
	"github.com/eklundh/kontoutdrag/internal/table"
)

const maxUploadBytes = 10 << 20

// Defaults carries the configured run behavior a request can override.
type Defaults struct {
	Strict  bool
	Dialect statement.Dialect
}

type Handler struct {
	source   table.Source
	pipe     *pipeline.Pipeline
	presets  *preset.Service
	defaults Defaults
}

func NewHandler(source table.Source, pipe *pipeline.Pipeline, presets *preset.Service, defaults Defaults) *Handler {
	return &Handler{
		source:   source,
		pipe:     pipe,
		presets:  presets,
		defaults: defaults,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.preview)
	r.Post("/download", h.download)
}

type rowResponse struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	RateUsed    string `json:"rate_used"`
	RateDate    string `json:"rate_date"`
}

type previewResponse struct {
	Rows    []rowResponse        `json:"rows"`
	Skipped []mapping.SkippedRow `json:"skipped"`
}

// preview runs the conversion and returns the rows plus the skip report as
// JSON, without producing a file.
func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	result, _, err := h.run(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	resp := previewResponse{
		Rows:    make([]rowResponse, 0, len(result.Rows)),
		Skipped: result.Skipped,
	}
	if resp.Skipped == nil {
		resp.Skipped = []mapping.SkippedRow{}
	}

	for _, row := range result.Rows {
		resp.Rows = append(resp.Rows, rowResponse{
			Date:        row.Date.Format(time.DateOnly),
			Description: row.Description,
			Amount:      row.Amount.StringFixed(2),
			Currency:    row.Currency,
			RateUsed:    row.RateUsed.String(),
			RateDate:    row.RateDate.Format(time.DateOnly),
		})
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// download runs the conversion and responds with the statement file. The
// CSV is fully built in memory first: a failed run never yields a partial
// download.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	result, dialect, err := h.run(r)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writer, err := statement.NewWriter(dialect)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := writer.Write(&buf, result.Rows); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("fortnox_import_%s.csv", time.Now().Format(time.DateOnly))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Skipped-Rows", fmt.Sprintf("%d", len(result.Skipped)))

	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to write csv response", "error", err)
	}
}

// run parses the multipart request and executes the pipeline.
func (h *Handler) run(r *http.Request) (*pipeline.Result, statement.Dialect, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", &badRequestError{fmt.Errorf("failed to parse form: %w", err)}
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, "", &badRequestError{fmt.Errorf("file field is required")}
	}
	defer file.Close()

	tbl, err := h.source.Read(file)
	if err != nil {
		return nil, "", &badRequestError{err}
	}

	cfg, err := h.requestMapping(r)
	if err != nil {
		return nil, "", err
	}

	opts, err := h.requestOptions(r)
	if err != nil {
		return nil, "", err
	}

	dialect := h.defaults.Dialect
	if v := r.FormValue("dialect"); v != "" {
		dialect = statement.Dialect(v)
	}

	result, err := h.pipe.Run(r.Context(), tbl, cfg, opts)
	if err != nil {
		return nil, "", err
	}

	return result, dialect, nil
}

// requestMapping loads the mapping from the "preset" field or from inline
// "mapping" JSON. Exactly one of the two must be supplied.
func (h *Handler) requestMapping(r *http.Request) (mapping.Mapping, error) {
	name := r.FormValue("preset")
	raw := r.FormValue("mapping")

	switch {
	case name != "" && raw != "":
		return mapping.Mapping{}, &badRequestError{fmt.Errorf("supply either preset or mapping, not both")}
	case name != "":
		return h.presets.Load(r.Context(), name)
	case raw != "":
		var m mapping.Mapping
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return mapping.Mapping{}, &badRequestError{fmt.Errorf("invalid mapping json: %w", err)}
		}

		return m, nil
	}

	return mapping.Mapping{}, &badRequestError{fmt.Errorf("preset or mapping field is required")}
}

func (h *Handler) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.Options{Strict: h.defaults.Strict}

	if v := r.FormValue("strict"); v != "" {
		opts.Strict = v == "true"
	}

	if v := r.FormValue("overrides"); v != "" {
		raw := map[string]string{}
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return opts, &badRequestError{fmt.Errorf("invalid overrides json: %w", err)}
		}

		opts.Overrides = make(map[string]decimal.Decimal, len(raw))

		for currency, value := range raw {
			rate, err := decimal.NewFromString(value)
			if err != nil {
				return opts, &badRequestError{fmt.Errorf("invalid override rate for %s: %q", currency, value)}
			}

			opts.Overrides[currency] = rate
		}
	}

	var err error
	if opts.Range.Start, err = formDate(r, "from"); err != nil {
		return opts, err
	}

	if opts.Range.End, err = formDate(r, "to"); err != nil {
		return opts, err
	}

	return opts, nil
}

func formDate(r *http.Request, field string) (*time.Time, error) {
	v := r.FormValue(field)
	if v == "" {
		return nil, nil
	}

	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, &badRequestError{fmt.Errorf("invalid %s date %q, want YYYY-MM-DD", field, v)}
	}

	return &t, nil
}

// badRequestError marks input errors so statusFor can tell them apart from
// pipeline failures.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func statusFor(err error) int {
	var (
		badReq    *badRequestError
		valErr    *mapping.ValidationError
		parseErr  *mapping.RowParseError
		sourceErr *rates.SourceError
	)

	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest
	case errors.Is(err, preset.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &sourceErr):
		return http.StatusBadGateway
	case errors.Is(err, rates.ErrUnavailable),
		errors.As(err, &valErr),
		errors.As(err, &parseErr),
		errors.Is(err, mapping.ErrMissingCurrency),
		errors.Is(err, statement.ErrInvalidRange):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}
