package recommendshoes

import (
	"time"

	"fitcheck-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Target  int
}

func LoadConfig(wcfg config.WorkerConfig, pipeline config.PipelineConfig) *Config {
	timeout := config.GetDuration(wcfg.Timeout)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Config{
		Timeout: timeout,
		Target:  pipeline.RecommendCount,
	}
}
