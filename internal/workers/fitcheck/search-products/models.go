package searchproducts

import "fitcheck-workers/internal/models"

type Input struct {
	Shoes []models.ShoeRecommendation `json:"recommendations" validate:"required,min=1,dive"`
}

type Output struct {
	SearchResults []models.ShoeSearchResult `json:"searchResults"`
	LinkCount     int                       `json:"searchLinkCount"`
}
