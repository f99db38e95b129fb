package gemini

import (
	"time"

	"fitcheck-workers/internal/common/config"
)

const ProviderName = "gemini"

type Config struct {
	BaseURL     string
	APIKey      string
	VisionModel string
	FlashModel  string
	ImageModel  string
	TextModel   string
	Timeout     time.Duration
	MaxRetries  int
}

func NewConfig(cfg config.GeminiConfig) *Config {
	return &Config{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		VisionModel: cfg.VisionModel,
		FlashModel:  cfg.FlashModel,
		ImageModel:  cfg.ImageModel,
		TextModel:   cfg.TextModel,
		Timeout:     config.GetDuration(cfg.Timeout),
		MaxRetries:  cfg.MaxRetries,
	}
}
