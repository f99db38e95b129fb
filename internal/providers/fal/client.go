// Package fal binds the video generation capability to the fal.ai synchronous run API.
package fal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/breaker"
	"fitcheck-workers/internal/common/config"
	apperrors "fitcheck-workers/internal/common/errors"
	commonhttp "fitcheck-workers/internal/common/http"
	"fitcheck-workers/internal/common/logger"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

// videos are a few megabytes; anything far larger is not a clip we asked for
const maxVideoBytes = 256 << 20

type Client struct {
	config  *Config
	http    *commonhttp.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  logger.Logger
}

var _ capabilities.VideoGenerator = (*Client)(nil)

func NewClient(cfg *Config, breakerCfg config.BreakerConfig, log logger.Logger) *Client {
	log = log.WithFields(map[string]interface{}{"provider": ProviderName})
	return &Client{
		config:  cfg,
		http:    commonhttp.NewClient(cfg.Timeout, commonhttp.WithMaxRetries(cfg.MaxRetries)),
		breaker: breaker.New[*http.Response](ProviderName, breakerCfg, log),
		logger:  log,
	}
}

func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// Generate blocks until fal returns the finished clip URL.
func (c *Client) Generate(ctx context.Context, req capabilities.VideoRequest) (*capabilities.GeneratedVideo, error) {
	if !c.Configured() {
		return nil, apperrors.NewProviderNotConfiguredError(ProviderName)
	}

	body, err := json.Marshal(generateRequest{
		Prompt:        req.Prompt,
		ImageURL:      req.ImageDataURI,
		Duration:      req.Duration,
		GenerateAudio: req.GenerateAudio,
		Resolution:    req.Resolution,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/%s", strings.TrimRight(c.config.BaseURL, "/"), strings.TrimLeft(c.config.Model, "/"))

	resp, err := c.execute(ctx, func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("Authorization", "Key "+c.config.APIKey)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewProviderResponseInvalidError(ProviderName, fmt.Sprintf("decode: %v", err))
	}
	if out.Video.URL == "" {
		return nil, apperrors.NewProviderResponseInvalidError(ProviderName, "no video url in response")
	}

	c.logger.Info("Video generated", map[string]interface{}{"model": c.config.Model})
	return &capabilities.GeneratedVideo{URL: out.Video.URL}, nil
}

// Fetch downloads the clip produced by Generate.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.execute(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVideoBytes))
	if err != nil {
		return nil, breaker.ClassifyError(ProviderName, err)
	}
	if len(data) == 0 {
		return nil, apperrors.NewProviderResponseInvalidError(ProviderName, "empty video download")
	}
	return data, nil
}

func (c *Client) execute(ctx context.Context, build func(context.Context) (*http.Request, error)) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.DoWithRetry(ctx, build)
	})
	if err != nil {
		c.logger.Warn("fal request failed", map[string]interface{}{"error": err.Error()})
		return nil, breaker.ClassifyError(ProviderName, err)
	}
	return resp, nil
}
