package fal

type generateRequest struct {
	Prompt        string `json:"prompt"`
	ImageURL      string `json:"image_url"`
	Duration      string `json:"duration"`
	GenerateAudio bool   `json:"generate_audio"`
	Resolution    string `json:"resolution"`
}

type generateResponse struct {
	Video struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type,omitempty"`
	} `json:"video"`
}
