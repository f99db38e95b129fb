// Package exa binds the web search capability to the Exa search API.
package exa

import (
	"bytes"
	"context"
	"fmt"
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

type Client struct {
	config  *Config
	http    *commonhttp.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  logger.Logger
}

var _ capabilities.WebSearch = (*Client)(nil)

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

func (c *Client) Search(ctx context.Context, query string, numResults int) ([]capabilities.SearchHit, error) {
	if !c.Configured() {
		return nil, apperrors.NewProviderNotConfiguredError(ProviderName)
	}

	body, err := json.Marshal(searchRequest{
		Query:      query,
		Type:       "auto",
		NumResults: numResults,
		Contents:   contentsOptions{Text: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + "/search"

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("x-api-key", c.config.APIKey)
			return r, nil
		})
	})
	if err != nil {
		c.logger.Warn("Exa search failed", map[string]interface{}{"query": query, "error": err.Error()})
		return nil, breaker.ClassifyError(ProviderName, err)
	}
	defer resp.Body.Close()

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewProviderResponseInvalidError(ProviderName, fmt.Sprintf("decode: %v", err))
	}

	hits := make([]capabilities.SearchHit, 0, len(out.Results))
	for _, r := range out.Results {
		hits = append(hits, capabilities.SearchHit{URL: r.URL, Title: r.Title, Text: r.Text})
	}
	c.logger.Debug("Exa search completed", map[string]interface{}{"query": query, "results": len(hits)})
	return hits, nil
}
