// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var canonicalAngles = map[string]bool{"front": true, "back": true, "left": true, "right": true}

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay is optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if provider keys are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.Gemini.APIKey == "" {
		cfg.APIs.Gemini.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.APIs.Fal.APIKey == "" {
		cfg.APIs.Fal.APIKey = os.Getenv("FAL_KEY")
	}
	if cfg.APIs.Exa.APIKey == "" {
		cfg.APIs.Exa.APIKey = os.Getenv("EXA_API_KEY")
	}
	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = os.Getenv("REDIS_ADDRESS")
	}
	if cfg.Artifacts.S3.Bucket == "" {
		cfg.Artifacts.S3.Bucket = os.Getenv("ARTIFACTS_BUCKET")
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "fitcheck"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{
			"http://localhost:5173",
			"http://localhost:5174",
			"http://localhost:3000",
			"http://localhost:8080",
		}
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 16 << 20
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 900000
	}

	// Pipeline defaults
	p := &cfg.Pipeline
	if p.RecommendCount == 0 {
		p.RecommendCount = 2
	}
	if p.VisualizeCount == 0 {
		p.VisualizeCount = 4
	}
	if len(p.Angles) == 0 {
		p.Angles = []string{"front", "back", "left", "right"}
	}
	if p.SearchLimit == 0 {
		p.SearchLimit = 2
	}
	if p.SearchGroupCap == 0 {
		p.SearchGroupCap = 2
	}
	if p.VisualWorkers == 0 {
		p.VisualWorkers = 4
	}
	if p.UnitTimeout == 0 {
		p.UnitTimeout = 180000
	}
	if p.VideoTimeout == 0 {
		p.VideoTimeout = 600000
	}
	if p.MaxImageSize == 0 {
		p.MaxImageSize = 1024
	}
	if p.VizMaxImageSize == 0 {
		p.VizMaxImageSize = 768
	}
	if p.VizWidth == 0 {
		p.VizWidth = 512
	}
	if p.VizHeight == 0 {
		p.VizHeight = 768
	}

	// Artifact defaults
	a := &cfg.Artifacts
	if a.Backend == "" {
		a.Backend = "fs"
	}
	if a.UploadDir == "" {
		a.UploadDir = "uploads"
	}
	if a.GeneratedDir == "" {
		a.GeneratedDir = "generated"
	}
	if a.VideoDir == "" {
		a.VideoDir = "generated_videos"
	}
	if a.TempDir == "" {
		a.TempDir = a.UploadDir
	}
	if len(a.AllowedExtensions) == 0 {
		a.AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "webp"}
	}
	if a.S3.Region == "" {
		a.S3.Region = "us-east-1"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Cache defaults
	if cfg.Cache.SearchTTL == 0 {
		cfg.Cache.SearchTTL = 3600000
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "fitcheck:search:"
	}

	// Breaker defaults
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 1
	}
	if cfg.Breaker.Interval == 0 {
		cfg.Breaker.Interval = 60000
	}
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = 30000
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Concurrency == 0 {
			worker.Concurrency = worker.MaxJobsActive
		}
		if worker.Timeout == 0 {
			worker.Timeout = cfg.Pipeline.VideoTimeout
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	applyProviderDefaults(&cfg.APIs)
}

func applyProviderDefaults(apis *APIsConfig) {
	g := &apis.Gemini
	if g.BaseURL == "" {
		g.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if g.VisionModel == "" {
		g.VisionModel = "gemini-2.5-pro"
	}
	if g.FlashModel == "" {
		g.FlashModel = "gemini-2.5-flash"
	}
	if g.ImageModel == "" {
		g.ImageModel = "gemini-2.5-flash-image-preview"
	}
	if g.TextModel == "" {
		g.TextModel = "gemini-pro"
	}
	if g.Timeout == 0 {
		g.Timeout = 120000
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = 2
	}

	f := &apis.Fal
	if f.BaseURL == "" {
		f.BaseURL = "https://fal.run"
	}
	if f.Model == "" {
		f.Model = "fal-ai/veo3/fast/image-to-video"
	}
	if f.Timeout == 0 {
		f.Timeout = 600000
	}
	if f.MaxRetries == 0 {
		f.MaxRetries = 1
	}

	e := &apis.Exa
	if e.BaseURL == "" {
		e.BaseURL = "https://api.exa.ai"
	}
	if e.Timeout == 0 {
		e.Timeout = 10000
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = 2
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Pipeline.VisualWorkers <= 0 {
		return fmt.Errorf("pipeline.visual_workers must be positive")
	}
	if cfg.Pipeline.RecommendCount <= 0 {
		return fmt.Errorf("pipeline.recommend_count must be positive")
	}
	for _, angle := range cfg.Pipeline.Angles {
		if !canonicalAngles[angle] {
			return fmt.Errorf("pipeline.angles contains unknown angle %q", angle)
		}
	}

	switch cfg.Artifacts.Backend {
	case "fs":
	case "s3":
		if cfg.Artifacts.S3.Bucket == "" {
			return fmt.Errorf("artifacts.s3.bucket is required when backend is s3")
		}
	default:
		return fmt.Errorf("artifacts.backend must be fs or s3, got %q", cfg.Artifacts.Backend)
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Cache.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when cache is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Concurrency:   5,
		Timeout:       cfg.Pipeline.VideoTimeout,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
