package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/eklundh/kontoutdrag/internal/http/convert"
	"github.com/eklundh/kontoutdrag/internal/http/preset"
	"github.com/eklundh/kontoutdrag/internal/http/rates"
)

func New(
	convertV1 *convert.Handler,
	presetsV1 *preset.Handler,
	ratesV1 *rates.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/convert", convertV1.Routes)
		r.Route("/presets", presetsV1.Routes)
		r.Route("/rates", ratesV1.Routes)
	})

	return router
}
