package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type SettlerConfig struct {
	BaseURL     string        `env:"BETPRO_URL" envDefault:"http://localhost:8080"`
	AdminAPIKey string        `env:"ADMIN_API_KEY"`
	Interval    time.Duration `env:"SETTLE_INTERVAL" envDefault:"10s"`
	Outcome     string        `env:"SETTLE_OUTCOME" envDefault:"random"`
	WinRate     float64       `env:"SETTLE_WIN_RATE" envDefault:"0.45"`
	Batch       int           `env:"SETTLE_BATCH" envDefault:"50"`
}

func LoadSettler() (SettlerConfig, error) {
	var cfg SettlerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
