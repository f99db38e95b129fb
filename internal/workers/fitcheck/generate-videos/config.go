package generatevideos

import (
	"time"

	"fitcheck-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &Config{Timeout: timeout}
}
