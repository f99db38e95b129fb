package exa

type contentsOptions struct {
	Text bool `json:"text"`
}

type searchRequest struct {
	Query      string          `json:"query"`
	Type       string          `json:"type"`
	NumResults int             `json:"numResults"`
	Contents   contentsOptions `json:"contents"`
}

type searchResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}
