package generateoutfits

import "fitcheck-workers/internal/models"

type Input struct {
	ImageID string                      `json:"imageId" validate:"required"`
	Shoes   []models.ShoeRecommendation `json:"recommendations" validate:"required,min=1,dive"`
	Angles  []string                    `json:"angles" validate:"omitempty,dive,oneof=front back left right"`
	Mode    string                      `json:"mode" validate:"omitempty,oneof=descriptive generative"`
}

// AngleRef names the stored image for one angle. Job variables carry
// artifact names, never image bytes.
type AngleRef struct {
	Angle    models.Angle `json:"angle"`
	Artifact string       `json:"artifact"`
	models.Degraded
}

type ShoeVisualizationRef struct {
	Index          int                       `json:"index"`
	Shoe           models.ShoeRecommendation `json:"shoe"`
	Visualizations []AngleRef                `json:"visualizations"`
	Error          string                    `json:"error,omitempty"`
}

type Output struct {
	Visualizations []ShoeVisualizationRef `json:"visualizations"`
	FailedUnits    int                    `json:"visualizationFailures"`
}

func toRefs(results []models.ShoeVisualizationResult) []ShoeVisualizationRef {
	refs := make([]ShoeVisualizationRef, len(results))
	for i, r := range results {
		angles := make([]AngleRef, len(r.Visualizations))
		for j, v := range r.Visualizations {
			angles[j] = AngleRef{Angle: v.Angle, Artifact: v.ArtifactName, Degraded: v.Degraded}
		}
		refs[i] = ShoeVisualizationRef{Index: r.Index, Shoe: r.Shoe, Visualizations: angles, Error: r.Error}
	}
	return refs
}
