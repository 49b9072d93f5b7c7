package rates

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eklundh/kontoutdrag/internal/rates"
)

// Handler exposes the resolver so the UI can show the rate that will be
// applied before the user commits to a conversion.
type Handler struct {
	resolver   *rates.Resolver
	currencies []string
}

func NewHandler(resolver *rates.Resolver, currencies []string) *Handler {
	return &Handler{resolver: resolver, currencies: currencies}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{currency}", h.quote)
}

type currenciesResponse struct {
	Target     string   `json:"target"`
	Currencies []string `json:"currencies"`
}

func (h *Handler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, currenciesResponse{
		Target:     h.resolver.Target(),
		Currencies: h.currencies,
	})
}

type quoteResponse struct {
	Currency string `json:"currency"`
	Rate     string `json:"rate"`
	RateDate string `json:"rate_date"`
}

// quote resolves the rate a transaction dated ?date= would get. The date
// defaults to today, matching how the converter treats undated probes.
func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	currency := chi.URLParam(r, "currency")

	refDate := time.Now().UTC()

	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.Parse(time.DateOnly, v)
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		refDate = parsed
	}

	quote, err := h.resolver.Resolve(r.Context(), currency, refDate)
	if err != nil {
		var sourceErr *rates.SourceError

		switch {
		case errors.Is(err, rates.ErrUnavailable):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.As(err, &sourceErr):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}

		return
	}

	writeJSON(w, quoteResponse{
		Currency: quote.Currency,
		Rate:     quote.Rate.String(),
		RateDate: quote.AsOf.Format(time.DateOnly),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
