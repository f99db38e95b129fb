package fal

import (
	"time"

	"fitcheck-workers/internal/common/config"
)

const ProviderName = "fal"

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

func NewConfig(cfg config.FalConfig) *Config {
	return &Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		Timeout:    config.GetDuration(cfg.Timeout),
		MaxRetries: cfg.MaxRetries,
	}
}
