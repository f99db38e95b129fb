package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"fitcheck-workers/internal/artifacts"
	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/validation"
	"fitcheck-workers/internal/engines/visual"
	"fitcheck-workers/internal/models"
)

const (
	jsonBodyLimit  = 1 << 20
	geminiTestText = "Say 'Gemini API is working!' in exactly 5 words."
	exaTestQuery   = "test shoes"
	readyTimeout   = 3 * time.Second
)

type visualizeRequest struct {
	ImageID string                      `json:"image_id" validate:"required"`
	Shoes   []models.ShoeRecommendation `json:"shoes" validate:"required,min=1,dive"`
	Angles  []string                    `json:"angles" validate:"omitempty,dive,oneof=front back left right"`
}

type videosRequest struct {
	ImageID string                      `json:"image_id" validate:"required"`
	Shoes   []models.ShoeRecommendation `json:"shoes" validate:"required,min=1,dive"`
}

type searchRequest struct {
	Shoes []models.ShoeRecommendation `json:"shoes" validate:"required,min=1,dive"`
}

type uploadResponse struct {
	Success         bool                        `json:"success"`
	ImageID         string                      `json:"image_id"`
	Recommendations []models.ShoeRecommendation `json:"recommendations"`
	models.Degraded
}

type resultsResponse[T any] struct {
	Success bool `json:"success"`
	Results []T  `json:"results"`
}

type selfTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Model   string `json:"model,omitempty"`
	Count   *int   `json:"test_results_count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "FitCheck backend is running",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.readiness))
	for name := range s.readiness {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.readiness[name](ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	s.respondJSON(w, status, map[string]interface{}{"status": state, "checks": checks})
}

// handleUpload stores the multipart "image" field and returns recommendations for it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.respondError(w, apperrors.NewImageTooLargeError(limit))
		case errors.Is(err, http.ErrMissingFile):
			s.respondError(w, apperrors.NewValidationError("No image file provided"))
		default:
			s.respondError(w, apperrors.NewValidationError("invalid multipart form: "+err.Error()))
		}
		return
	}
	defer file.Close()

	if header.Filename == "" {
		s.respondError(w, apperrors.NewValidationError("No file selected"))
		return
	}
	if !artifacts.AllowedExtension(header.Filename, s.extensions) {
		s.respondError(w, apperrors.NewInvalidFileTypeError(header.Filename))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, apperrors.NewValidationError("could not read upload: "+err.Error()))
		return
	}

	name := artifacts.UploadName(header.Filename)
	if _, err := s.store.Save(r.Context(), artifacts.KindUpload, name, data, artifacts.MimeFromName(name)); err != nil {
		s.respondError(w, apperrors.NewArtifactWriteFailedError(name, err))
		return
	}

	set, err := s.pipeline.Recommend(r.Context(), name, s.target)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{
		Success:         true,
		ImageID:         name,
		Recommendations: set.Recommendations,
		Degraded:        set.Degraded,
	})
}

func (s *Server) handleGenerateOutfits(mode visual.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req visualizeRequest
		if err := decodeJSON(w, r, jsonBodyLimit, &req); err != nil {
			s.respondError(w, err)
			return
		}
		if err := validation.ValidateStruct(&req); err != nil {
			s.respondError(w, err)
			return
		}
		angles, err := models.ParseAngles(req.Angles)
		if err != nil {
			s.respondError(w, apperrors.NewValidationError(err.Error()))
			return
		}

		results, err := s.pipeline.Visualize(r.Context(), req.ImageID, req.Shoes, angles, mode)
		if err != nil {
			s.respondError(w, err)
			return
		}
		s.respondJSON(w, http.StatusOK, resultsResponse[models.ShoeVisualizationResult]{Success: true, Results: results})
	}
}

func (s *Server) handleGenerateVideos(w http.ResponseWriter, r *http.Request) {
	var req videosRequest
	if err := decodeJSON(w, r, jsonBodyLimit, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		s.respondError(w, err)
		return
	}

	results, err := s.pipeline.Videos(r.Context(), req.ImageID, req.Shoes)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resultsResponse[models.ShoeVideoResult]{Success: true, Results: results})
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, jsonBodyLimit, &req); err != nil {
		s.respondError(w, err)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		s.respondError(w, err)
		return
	}

	results, err := s.pipeline.Search(r.Context(), req.Shoes)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resultsResponse[models.ShoeSearchResult]{Success: true, Results: results})
}

func (s *Server) handleTestGemini(w http.ResponseWriter, r *http.Request) {
	if s.textModel == nil {
		s.respondJSON(w, http.StatusInternalServerError, selfTestResponse{Error: "Gemini is not configured"})
		return
	}
	text, err := s.textModel.GenerateText(r.Context(), geminiTestText)
	if err != nil {
		s.respondJSON(w, http.StatusInternalServerError, selfTestResponse{Error: err.Error()})
		return
	}
	s.respondJSON(w, http.StatusOK, selfTestResponse{Success: true, Message: text, Model: s.modelName})
}

func (s *Server) handleTestExa(w http.ResponseWriter, r *http.Request) {
	if s.search == nil || !s.search.Configured() {
		s.respondJSON(w, http.StatusInternalServerError, selfTestResponse{Error: "Exa API key not configured"})
		return
	}
	hits, err := s.search.Search(r.Context(), exaTestQuery, 1)
	if err != nil {
		s.respondJSON(w, http.StatusInternalServerError, selfTestResponse{Error: err.Error()})
		return
	}
	count := len(hits)
	s.respondJSON(w, http.StatusOK, selfTestResponse{Success: true, Message: "Exa API is working!", Count: &count})
}
