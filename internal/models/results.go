// internal/models/results.go
package models

// AngleVisualization is one synthesized image for a (shoe, angle) pair.
type AngleVisualization struct {
	Angle        Angle  `json:"angle"`
	Image        string `json:"image"` // data URI
	ArtifactName string `json:"artifact,omitempty"`
	Degraded
}

type ShoeVisualizationResult struct {
	Index          int                  `json:"index"`
	Shoe           ShoeRecommendation   `json:"shoe"`
	Visualizations []AngleVisualization `json:"visualizations"`
	Error          string               `json:"error,omitempty"`
}

type VideoStatus string

const (
	// VideoStatusProcessing is reserved for asynchronous polling and is not emitted.
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusFailed     VideoStatus = "failed"
)

type VideoResult struct {
	Angle    Angle       `json:"angle"`
	VideoURL string      `json:"video_url"`
	Artifact string      `json:"artifact,omitempty"`
	Status   VideoStatus `json:"status"`
	Cause    string      `json:"cause,omitempty"`
}

type ShoeVideoResult struct {
	Index  int                `json:"index"`
	Shoe   ShoeRecommendation `json:"shoe"`
	Videos []VideoResult      `json:"videos"`
	Error  string             `json:"error,omitempty"`
}

type SearchResult struct {
	URL         string             `json:"url"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Source      string             `json:"source"`
	SearchQuery string             `json:"search_query"`
	Shoe        ShoeRecommendation `json:"-"`
}

// SearchOutcome is the always-successful output of the search engine.
type SearchOutcome struct {
	Results []SearchResult `json:"results"`
	Degraded
}

type ShoeSearchResult struct {
	Shoe          ShoeRecommendation `json:"shoe"`
	SearchResults []SearchResult     `json:"search_results"`
}
