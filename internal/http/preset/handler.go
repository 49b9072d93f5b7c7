package preset

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/preset"
)

type Handler struct {
	svc *preset.Service
}

func NewHandler(svc *preset.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{name}", h.get)
	r.Put("/{name}", h.save)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.svc.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if summaries == nil {
		summaries = []preset.Summary{}
	}

	writeJSON(w, summaries)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	m, err := h.svc.Load(r.Context(), name)
	if err != nil {
		if errors.Is(err, preset.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	writeJSON(w, m)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var m mapping.Mapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Save(r.Context(), name, m); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
