package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/eklundh/kontoutdrag/internal/config"
	"github.com/eklundh/kontoutdrag/internal/database"
	kontoHttp "github.com/eklundh/kontoutdrag/internal/http"
	convertHandler "github.com/eklundh/kontoutdrag/internal/http/convert"
	presetHandler "github.com/eklundh/kontoutdrag/internal/http/preset"
	ratesHandler "github.com/eklundh/kontoutdrag/internal/http/rates"
	"github.com/eklundh/kontoutdrag/internal/mapping"
	"github.com/eklundh/kontoutdrag/internal/pipeline"
	"github.com/eklundh/kontoutdrag/internal/preset"
	presetStore "github.com/eklundh/kontoutdrag/internal/preset/store"
	"github.com/eklundh/kontoutdrag/internal/rates"
	"github.com/eklundh/kontoutdrag/internal/rates/riksbank"
	"github.com/eklundh/kontoutdrag/internal/statement"
	"github.com/eklundh/kontoutdrag/internal/table"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var store preset.Store

	if cfg.DB.URL != "" {
		db, err := database.Open(cfg.DB.URL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		store = presetStore.NewPostgres(db)
	} else {
		store = presetStore.NewFile(cfg.Presets.Path)
	}

	var (
		client        = riksbank.NewClient(cfg.Riksbank.BaseURL, cfg.Riksbank.Timeout)
		resolver      = rates.NewResolver(cfg.Statement.TargetCurrency, client)
		presetService = preset.NewService(store)
		pipe          = pipeline.New(mapping.NewMapper(), resolver)
	)

	var (
		convertH = convertHandler.NewHandler(table.NewCSVSource(), pipe, presetService, convertHandler.Defaults{
			Strict:  cfg.Statement.Strict,
			Dialect: statement.Dialect(cfg.Statement.Dialect),
		})
		presetH = presetHandler.NewHandler(presetService)
		ratesH  = ratesHandler.NewHandler(resolver, riksbank.Currencies())
	)

	router := kontoHttp.New(convertH, presetH, ratesH)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	slog.Info("starting server", "port", cfg.App.Port, "target_currency", cfg.Statement.TargetCurrency)

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
