// Package cache keeps successful web search results in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/database"
	"fitcheck-workers/internal/common/logger"
)

type cachedHit struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

// SearchCache is safe to use through a nil pointer, which behaves as an
// always-missing cache.
type SearchCache struct {
	redis  *database.RedisClient
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

func NewSearchCache(redis *database.RedisClient, ttl time.Duration, prefix string, log logger.Logger) *SearchCache {
	return &SearchCache{
		redis:  redis,
		ttl:    ttl,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "search-cache"}),
	}
}

func (c *SearchCache) Key(query string, numResults int) string {
	return fmt.Sprintf("%s%d:%s", c.prefix, numResults, strings.ToLower(strings.TrimSpace(query)))
}

// Get reports a hit only for a present, decodable entry. Redis errors are
// logged and treated as misses.
func (c *SearchCache) Get(ctx context.Context, query string, numResults int) ([]capabilities.SearchHit, bool) {
	if c == nil {
		return nil, false
	}
	key := c.Key(query, numResults)

	var cached []cachedHit
	if err := c.redis.GetJSON(ctx, key, &cached); err != nil {
		switch {
		case errors.Is(err, database.ErrCacheMiss):
		case errors.Is(err, database.ErrCorruptEntry):
			c.logger.Warn("Discarded corrupt search cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		default:
			c.logger.Warn("Search cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		return nil, false
	}

	hits := make([]capabilities.SearchHit, len(cached))
	for i, h := range cached {
		hits[i] = capabilities.SearchHit{URL: h.URL, Title: h.Title, Text: h.Text}
	}
	return hits, true
}

func (c *SearchCache) Put(ctx context.Context, query string, numResults int, hits []capabilities.SearchHit) {
	if c == nil || len(hits) == 0 {
		return
	}
	cached := make([]cachedHit, len(hits))
	for i, h := range hits {
		cached[i] = cachedHit{URL: h.URL, Title: h.Title, Text: h.Text}
	}

	key := c.Key(query, numResults)
	if err := c.redis.SetJSON(ctx, key, cached, c.ttl); err != nil {
		c.logger.Warn("Search cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
