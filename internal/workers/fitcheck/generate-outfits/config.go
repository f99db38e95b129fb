package generateoutfits

import (
	"time"

	"fitcheck-workers/internal/common/config"
	"fitcheck-workers/internal/engines/visual"
)

type Config struct {
	Timeout     time.Duration
	DefaultMode visual.Mode
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Config{
		Timeout:     timeout,
		DefaultMode: visual.ModeDescriptive,
	}
}
