package generatevideos

import "fitcheck-workers/internal/models"

type Input struct {
	ImageID string                      `json:"imageId" validate:"required"`
	Shoes   []models.ShoeRecommendation `json:"recommendations" validate:"required,min=1,dive"`
}

// VideoRef names the stored clip. The inline data URI stays on the HTTP path.
type VideoRef struct {
	Angle    models.Angle       `json:"angle"`
	Artifact string             `json:"artifact,omitempty"`
	Status   models.VideoStatus `json:"status"`
	Cause    string             `json:"cause,omitempty"`
}

type ShoeVideoRef struct {
	Index  int                       `json:"index"`
	Shoe   models.ShoeRecommendation `json:"shoe"`
	Videos []VideoRef                `json:"videos"`
	Error  string                    `json:"error,omitempty"`
}

type Output struct {
	Videos    []ShoeVideoRef `json:"videos"`
	Completed int            `json:"videosCompleted"`
	Failed    int            `json:"videosFailed"`
}

func toRefs(results []models.ShoeVideoResult) []ShoeVideoRef {
	refs := make([]ShoeVideoRef, len(results))
	for i, r := range results {
		videos := make([]VideoRef, len(r.Videos))
		for j, v := range r.Videos {
			videos[j] = VideoRef{Angle: v.Angle, Artifact: v.Artifact, Status: v.Status, Cause: v.Cause}
		}
		refs[i] = ShoeVideoRef{Index: r.Index, Shoe: r.Shoe, Videos: videos, Error: r.Error}
	}
	return refs
}
