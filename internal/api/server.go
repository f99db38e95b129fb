// Package api exposes the recommendation pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/config"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/engines/visual"
	"fitcheck-workers/internal/models"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline is the orchestrator surface used by the handlers.
type Pipeline interface {
	Recommend(ctx context.Context, imageID string, target int) (models.RecommendationSet, error)
	Visualize(ctx context.Context, imageID string, shoes []models.ShoeRecommendation, angles []models.Angle, mode visual.Mode) ([]models.ShoeVisualizationResult, error)
	Videos(ctx context.Context, imageID string, shoes []models.ShoeRecommendation) ([]models.ShoeVideoResult, error)
	Search(ctx context.Context, shoes []models.ShoeRecommendation) ([]models.ShoeSearchResult, error)
}

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type Options struct {
	Pipeline          Pipeline
	Store             artifacts.Store
	TextModel         capabilities.TextGenerator
	ModelName         string
	Search            capabilities.WebSearch
	Readiness         map[string]ReadinessCheck
	Server            config.ServerConfig
	RecommendCount    int
	AllowedExtensions []string
}

type Server struct {
	pipeline   Pipeline
	store      artifacts.Store
	textModel  capabilities.TextGenerator
	modelName  string
	search     capabilities.WebSearch
	readiness  map[string]ReadinessCheck
	server     config.ServerConfig
	target     int
	extensions []string
	logger     logger.Logger
}

func NewServer(opts Options, log logger.Logger) *Server {
	target := opts.RecommendCount
	if target <= 0 {
		target = 2
	}
	if opts.Server.MaxUploadBytes <= 0 {
		opts.Server.MaxUploadBytes = 16 << 20
	}
	return &Server{
		pipeline:   opts.Pipeline,
		store:      opts.Store,
		textModel:  opts.TextModel,
		modelName:  opts.ModelName,
		search:     opts.Search,
		readiness:  opts.Readiness,
		server:     opts.Server,
		target:     target,
		extensions: opts.AllowedExtensions,
		logger:     log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.server.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/upload", s.handleUpload)
	r.Post("/generate-outfits", s.handleGenerateOutfits(visual.ModeDescriptive))
	r.Post("/generate-outfits-ai", s.handleGenerateOutfits(visual.ModeGenerative))
	r.Post("/generate-videos", s.handleGenerateVideos)
	r.Post("/search-products", s.handleSearchProducts)

	r.Get("/test-gemini", s.handleTestGemini)
	r.Get("/test-exa", s.handleTestExa)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("HTTP request", map[string]interface{}{
			"requestId": chimiddleware.GetReqID(r.Context()),
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    ww.Status(),
			"bytes":     ww.BytesWritten(),
			"duration":  time.Since(start).String(),
		})
	})
}
