package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: fitcheck-test\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "fitcheck-test", cfg.App.Name)
	assert.Equal(t, 2, cfg.Pipeline.RecommendCount)
	assert.Equal(t, 4, cfg.Pipeline.VisualWorkers)
	assert.Equal(t, 2, cfg.Pipeline.SearchLimit)
	assert.Equal(t, []string{"front", "back", "left", "right"}, cfg.Pipeline.Angles)
	assert.Equal(t, 512, cfg.Pipeline.VizWidth)
	assert.Equal(t, 768, cfg.Pipeline.VizHeight)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "fs", cfg.Artifacts.Backend)
	assert.ElementsMatch(t, []string{"png", "jpg", "jpeg", "gif", "webp"}, cfg.Artifacts.AllowedExtensions)
	assert.Equal(t, "gemini-2.5-pro", cfg.APIs.Gemini.VisionModel)
	assert.Equal(t, "gemini-2.5-flash-image-preview", cfg.APIs.Gemini.ImageModel)
	assert.Equal(t, "fal-ai/veo3/fast/image-to-video", cfg.APIs.Fal.Model)
	assert.Equal(t, "https://api.exa.ai", cfg.APIs.Exa.BaseURL)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	t.Setenv("FITCHECK_TEST_GEMINI_KEY", "secret-key")
	path := writeConfig(t, "apis:\n  gemini:\n    api_key: ${FITCHECK_TEST_GEMINI_KEY}\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.APIs.Gemini.APIKey)
}

func TestLoadFromFile_ProviderKeyOverride(t *testing.T) {
	t.Setenv("EXA_API_KEY", "exa-from-env")
	path := writeConfig(t, "app:\n  name: x\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "exa-from-env", cfg.APIs.Exa.APIKey)
}

func TestLoadFromFile_WorkerDefaults(t *testing.T) {
	body := "workers:\n  generate-videos:\n    enabled: true\n    max_jobs_active: 3\n  search-products:\n    enabled: true\n    max_jobs_active: 8\n    concurrency: 2\n"

	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	videos := GetWorkerConfig(cfg, "generate-videos")
	assert.Equal(t, 3, videos.MaxJobsActive)
	assert.Equal(t, 3, videos.Concurrency)
	assert.Equal(t, cfg.Pipeline.VideoTimeout, videos.Timeout)
	assert.Equal(t, 3, videos.MaxRetries)

	search := GetWorkerConfig(cfg, "search-products")
	assert.Equal(t, 8, search.MaxJobsActive)
	assert.Equal(t, 2, search.Concurrency)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown angle",
			body:    "pipeline:\n  angles: [front, top]\n",
			wantErr: "unknown angle",
		},
		{
			name:    "bad backend",
			body:    "artifacts:\n  backend: ftp\n",
			wantErr: "artifacts.backend",
		},
		{
			name:    "s3 without bucket",
			body:    "artifacts:\n  backend: s3\n  s3:\n    bucket: \"\"\n",
			wantErr: "artifacts.s3.bucket",
		},
		{
			name:    "camunda enabled without broker",
			body:    "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address",
		},
		{
			name:    "negative pool width",
			body:    "pipeline:\n  visual_workers: -1\n",
			wantErr: "visual_workers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ARTIFACTS_BUCKET", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{Pipeline: PipelineConfig{VideoTimeout: 1000}}
	wc := GetWorkerConfig(cfg, "generate-videos")

	assert.True(t, wc.Enabled)
	assert.Equal(t, 5, wc.MaxJobsActive)
	assert.Equal(t, 5, wc.Concurrency)
	assert.Equal(t, 1000, wc.Timeout)
	assert.True(t, IsWorkerEnabled(cfg, "anything"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, int64(1500), GetDuration(1500).Milliseconds())
}
