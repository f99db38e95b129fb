package exa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"fitcheck-workers/internal/common/config"
	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/logger"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig(baseURL string) *Config {
	return &Config{BaseURL: baseURL, APIKey: "exa-key", Timeout: 2 * time.Second, MaxRetries: 2}
}

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "exa-key", r.Header.Get("x-api-key"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Nike Dunk Low shoes buy online", req.Query)
		assert.Equal(t, "auto", req.Type)
		assert.Equal(t, 2, req.NumResults)
		assert.True(t, req.Contents.Text)

		fmt.Fprint(w, `{"results":[
			{"url":"https://www.nike.com/dunk","title":"Dunk Low","text":"Iconic"},
			{"url":"https://stockx.com/dunk","title":"StockX Dunk"}
		]}`)
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), config.BreakerConfig{FailureThreshold: 100}, logger.NewTestLogger(t))
	hits, err := client.Search(context.Background(), "Nike Dunk Low shoes buy online", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "https://www.nike.com/dunk", hits[0].URL)
	assert.Equal(t, "Iconic", hits[0].Text)
	assert.Empty(t, hits[1].Text)
}

func TestSearch_RetriesThenFails(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(createTestConfig(server.URL), config.BreakerConfig{FailureThreshold: 100}, logger.NewTestLogger(t))
	_, err := client.Search(context.Background(), "q", 2)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeProviderUnavailable, apperrors.AsStandardError(err).Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSearch_NotConfigured(t *testing.T) {
	client := NewClient(&Config{}, config.BreakerConfig{}, logger.NewNoOpLogger())
	assert.False(t, client.Configured())
	_, err := client.Search(context.Background(), "q", 2)
	assert.Equal(t, apperrors.ErrCodeProviderNotConfigured, apperrors.AsStandardError(err).Code)
}
