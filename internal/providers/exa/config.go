package exa

import (
	"time"

	"fitcheck-workers/internal/common/config"
)

const ProviderName = "exa"

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

func NewConfig(cfg config.ExaConfig) *Config {
	return &Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    config.GetDuration(cfg.Timeout),
		MaxRetries: cfg.MaxRetries,
	}
}
