// Package search finds shopping links for recommended shoes.
package search

import (
	"context"
	"math/rand/v2"
	"net/url"
	"strings"

	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/cache"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/metrics"
	"fitcheck-workers/internal/models"
)

const (
	engineName     = "search"
	DefaultLimit   = 2
	maxDescription = 200
	fallbackSize   = 2
)

// Retailers is the static pool sampled when the provider cannot answer.
var Retailers = []models.SearchResult{
	{URL: "https://www.nike.com", Title: "Nike Official Store", Description: "Shop the latest Nike shoes and sneakers", Source: "nike.com"},
	{URL: "https://www.adidas.com", Title: "Adidas Official Store", Description: "Discover Adidas shoes and athletic footwear", Source: "adidas.com"},
	{URL: "https://www.zappos.com", Title: "Zappos - Shoes & Clothing", Description: "Free shipping on shoes, clothing and more", Source: "zappos.com"},
	{URL: "https://www.footlocker.com", Title: "Foot Locker", Description: "Athletic shoes, sneakers and apparel", Source: "footlocker.com"},
	{URL: "https://www.amazon.com/s?k=shoes", Title: "Amazon - Shoes", Description: "Shop shoes on Amazon with fast delivery", Source: "amazon.com"},
	{URL: "https://www.dsw.com", Title: "DSW Designer Shoe Warehouse", Description: "Designer shoes at great prices", Source: "dsw.com"},
}

type Engine struct {
	provider capabilities.WebSearch
	cache    *cache.SearchCache
	limit    int
	logger   logger.Logger
}

// NewEngine accepts a nil cache.
func NewEngine(provider capabilities.WebSearch, searchCache *cache.SearchCache, limit int, log logger.Logger) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{
		provider: provider,
		cache:    searchCache,
		limit:    limit,
		logger:   log.WithFields(map[string]interface{}{"component": "search-engine"}),
	}
}

// SearchShoe searches for shoe and tags every result with it.
func (e *Engine) SearchShoe(ctx context.Context, shoe models.ShoeRecommendation) models.SearchOutcome {
	out := e.Search(ctx, shoe.SearchQuery(), e.limit)
	for i := range out.Results {
		out.Results[i].Shoe = shoe
	}
	return out
}

// Search never fails and never returns an empty list when the provider is
// down: it falls back to a random sample of Retailers.
func (e *Engine) Search(ctx context.Context, query string, limit int) models.SearchOutcome {
	done := metrics.TrackUnit(engineName)
	if limit <= 0 {
		limit = e.limit
	}

	if e.provider == nil || !e.provider.Configured() {
		e.logger.Info("Search provider not configured, using fallback results", map[string]interface{}{"query": query})
		metrics.RecordDegraded(engineName, "not_configured")
		done(metrics.OutcomeDegraded)
		return models.SearchOutcome{
			Results:  Fallback(query),
			Degraded: models.Degraded{Degraded: true, Cause: "search provider not configured"},
		}
	}

	hits, ok := e.cache.Get(ctx, query, limit)
	if !ok {
		var err error
		hits, err = e.provider.Search(ctx, query, limit)
		if err != nil {
			e.logger.Warn("Search failed, using fallback results", map[string]interface{}{"query": query, "error": err.Error()})
			metrics.RecordDegraded(engineName, "provider_error")
			done(metrics.OutcomeDegraded)
			return models.SearchOutcome{Results: Fallback(query), Degraded: models.Degrade(err)}
		}
		e.cache.Put(ctx, query, limit, hits)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, h := range hits {
		if len(results) == limit {
			break
		}
		results = append(results, models.SearchResult{
			URL:         h.URL,
			Title:       h.Title,
			Description: describe(h.Text),
			Source:      SourceDomain(h.URL),
			SearchQuery: query,
		})
	}
	e.logger.Debug("Search completed", map[string]interface{}{"query": query, "results": len(results), "cached": ok})
	done(metrics.OutcomeOK)
	return models.SearchOutcome{Results: results}
}

// Fallback samples min(2, len(Retailers)) retailers without replacement.
func Fallback(query string) []models.SearchResult {
	n := min(fallbackSize, len(Retailers))
	out := make([]models.SearchResult, 0, n)
	for _, i := range rand.Perm(len(Retailers))[:n] {
		r := Retailers[i]
		r.SearchQuery = query
		out = append(out, r)
	}
	return out
}

// SourceDomain is the URL host without a leading "www.".
func SourceDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "Unknown"
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func describe(text string) string {
	if text == "" {
		return "No description available"
	}
	runes := []rune(text)
	if len(runes) > maxDescription {
		runes = runes[:maxDescription]
	}
	return string(runes) + "..."
}
