package recommendshoes

import "fitcheck-workers/internal/models"

type Input struct {
	ImageID string `json:"imageId" validate:"required"`
	Target  int    `json:"target" validate:"omitempty,min=1,max=10"`
}

type Output struct {
	ImageID         string                      `json:"imageId"`
	Recommendations []models.ShoeRecommendation `json:"recommendations"`
	Degraded        bool                        `json:"recommendationsDegraded"`
	Cause           string                      `json:"recommendationsCause,omitempty"`
}
