// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Server    ServerConfig            `mapstructure:"server"`
	Pipeline  PipelineConfig          `mapstructure:"pipeline"`
	Artifacts ArtifactsConfig         `mapstructure:"artifacts"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Cache     CacheConfig             `mapstructure:"cache"`
	Breaker   BreakerConfig           `mapstructure:"breaker"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	APIs      APIsConfig              `mapstructure:"apis"`
	Logging   LoggingConfig           `mapstructure:"logging"`
	Registry  RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address        string   `mapstructure:"address"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
}

// PipelineConfig drives the recommendation/visualization/video/search fan-out.
type PipelineConfig struct {
	RecommendCount  int      `mapstructure:"recommend_count"`
	VisualizeCount  int      `mapstructure:"visualize_count"`
	Angles          []string `mapstructure:"angles"`
	SearchLimit     int      `mapstructure:"search_limit"`
	SearchGroupCap  int      `mapstructure:"search_group_cap"`
	VisualWorkers   int      `mapstructure:"visual_workers"`
	UnitTimeout     int      `mapstructure:"unit_timeout"`  // milliseconds
	VideoTimeout    int      `mapstructure:"video_timeout"` // milliseconds
	MaxImageSize    int      `mapstructure:"max_image_size"`
	VizMaxImageSize int      `mapstructure:"viz_max_image_size"`
	VizWidth        int      `mapstructure:"viz_width"`
	VizHeight       int      `mapstructure:"viz_height"`
}

type ArtifactsConfig struct {
	Backend           string   `mapstructure:"backend"` // fs | s3
	UploadDir         string   `mapstructure:"upload_dir"`
	GeneratedDir      string   `mapstructure:"generated_dir"`
	VideoDir          string   `mapstructure:"video_dir"`
	TempDir           string   `mapstructure:"temp_dir"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	S3                S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	Prefix   string `mapstructure:"prefix"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SearchTTL int    `mapstructure:"search_ttl"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

// BreakerConfig is shared by every provider circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32 `mapstructure:"max_requests"`
	Interval         int    `mapstructure:"interval"` // milliseconds
	Timeout          int    `mapstructure:"timeout"`  // milliseconds
	FailureThreshold uint32 `mapstructure:"failure_threshold"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Concurrency   int  `mapstructure:"concurrency"` // handler goroutines, defaults to max_jobs_active
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for external AI and search providers.
type APIsConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	Fal    FalConfig    `mapstructure:"fal"`
	Exa    ExaConfig    `mapstructure:"exa"`
}

type GeminiConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	VisionModel string `mapstructure:"vision_model"`
	FlashModel  string `mapstructure:"flash_model"`
	ImageModel  string `mapstructure:"image_model"`
	TextModel   string `mapstructure:"text_model"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
	MaxRetries  int    `mapstructure:"max_retries"`
}

type FalConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

type ExaConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RegistryConfig points at the activity registry describing the job workers.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}
