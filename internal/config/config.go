package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"kontoutdrag"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	Statement struct {
		// TargetCurrency is the fixed accounting currency everything is
		// converted into.
		TargetCurrency string `envconfig:"TARGET_CURRENCY" default:"SEK"`
		Strict         bool   `envconfig:"STRICT" default:"false"`
		Dialect        string `envconfig:"CSV_DIALECT" default:"fortnox"`
	}

	Presets struct {
		Path string `envconfig:"PRESETS_PATH" default:"presets.yaml"`
	}

	DB struct {
		// URL switches the preset store from the YAML file to Postgres
		// when set.
		URL string `envconfig:"DATABASE_URL" default:""`
	}

	Riksbank struct {
		BaseURL string        `envconfig:"RIKSBANK_BASE_URL" default:"https://api.riksbank.se/swea/v1"`
		Timeout time.Duration `envconfig:"RIKSBANK_TIMEOUT" default:"10s"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
