// Package gemini binds the vision, describer, text and image-edit capabilities
// to the Gemini generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
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

var (
	_ capabilities.VisionRecommender = (*Client)(nil)
	_ capabilities.TextDescriber     = (*Client)(nil)
	_ capabilities.TextGenerator     = (*Client)(nil)
	_ capabilities.ImageEditor       = (*Client)(nil)
)

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

// Analyze sends the image and prompt with schema declared as a callable function.
func (c *Client) Analyze(ctx context.Context, image []byte, mimeType, prompt string, schema capabilities.FunctionSchema) (*capabilities.Analysis, error) {
	req := &generateRequest{
		Contents: []content{userContent(image, mimeType, prompt)},
		Tools: []tool{{FunctionDeclarations: []functionDeclaration{{
			Name:        schema.Name,
			Description: schema.Description,
			Parameters:  schema.Parameters,
		}}}},
		ToolConfig: &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: "AUTO"}},
	}

	resp, err := c.generate(ctx, c.config.VisionModel, req)
	if err != nil {
		return nil, err
	}

	analysis := &capabilities.Analysis{}
	var text strings.Builder
	for _, p := range resp.parts() {
		if p.FunctionCall != nil && p.FunctionCall.Name == schema.Name {
			analysis.StructuredArgs = p.FunctionCall.Args
		}
		text.WriteString(p.Text)
	}
	analysis.Text = text.String()

	if analysis.StructuredArgs == nil && analysis.Text == "" {
		return nil, apperrors.NewProviderResponseInvalidError(ProviderName, "empty response")
	}
	return analysis, nil
}

func (c *Client) Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	resp, err := c.generate(ctx, c.config.FlashModel, &generateRequest{
		Contents: []content{userContent(image, mimeType, prompt)},
	})
	if err != nil {
		return "", err
	}
	return textOf(resp)
}

func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.generate(ctx, c.config.TextModel, &generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}
	return textOf(resp)
}

// Edit opens a server-sent event stream of interleaved image and text parts.
func (c *Client) Edit(ctx context.Context, image []byte, mimeType, instruction string) (capabilities.ChunkStream, error) {
	req := &generateRequest{
		Contents:         []content{userContent(image, mimeType, instruction)},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}
	resp, err := c.send(ctx, c.config.ImageModel, "streamGenerateContent?alt=sse", req)
	if err != nil {
		return nil, err
	}
	return newSSEStream(resp.Body), nil
}

func (c *Client) generate(ctx context.Context, model string, req *generateRequest) (*generateResponse, error) {
	resp, err := c.send(ctx, model, "generateContent", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewProviderResponseInvalidError(ProviderName, fmt.Sprintf("decode: %v", err))
	}
	return &out, nil
}

func (c *Client) send(ctx context.Context, model, method string, req *generateRequest) (*http.Response, error) {
	if !c.Configured() {
		return nil, apperrors.NewProviderNotConfiguredError(ProviderName)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:%s", strings.TrimRight(c.config.BaseURL, "/"), model, method)

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.DoWithRetry(ctx, func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return nil, err
			}
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("x-goog-api-key", c.config.APIKey)
			return r, nil
		})
	})
	if err != nil {
		c.logger.Warn("Gemini request failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		return nil, breaker.ClassifyError(ProviderName, err)
	}
	return resp, nil
}

func userContent(image []byte, mimeType, prompt string) content {
	return content{
		Role: "user",
		Parts: []part{
			{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
			{Text: prompt},
		},
	}
}

func textOf(resp *generateResponse) (string, error) {
	var sb strings.Builder
	for _, p := range resp.parts() {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", apperrors.NewProviderResponseInvalidError(ProviderName, "no text in response")
	}
	return sb.String(), nil
}
