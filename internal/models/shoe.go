// internal/models/shoe.go
package models

import (
	"fmt"
	"strings"
)

// ShoeRecommendation is a single shoe suggestion. It is never mutated after
// the recommendation engine returns it.
type ShoeRecommendation struct {
	Name   string `json:"name" validate:"required"`
	Brand  string `json:"brand" validate:"required"`
	Color  string `json:"color"`
	Style  string `json:"style"`
	Reason string `json:"reason"`
}

// Description is the phrase used in prompts, e.g. "Nike Air Max 90 in White".
func (s ShoeRecommendation) Description() string {
	return fmt.Sprintf("%s %s in %s", s.Brand, s.Name, s.Color)
}

// GroupKey identifies a shoe for search result merging.
func (s ShoeRecommendation) GroupKey() string {
	return s.Brand + " " + s.Name
}

// SearchQuery joins the non-empty descriptive fields with shopping intent keywords.
func (s ShoeRecommendation) SearchQuery() string {
	parts := make([]string, 0, 7)
	for _, p := range []string{s.Brand, s.Name, s.Color, s.Style} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	parts = append(parts, "shoes", "buy", "online")
	return strings.Join(parts, " ")
}

// Degraded marks a value that substitutes a fallback for a failed provider call.
type Degraded struct {
	Degraded bool   `json:"degraded,omitempty"`
	Cause    string `json:"cause,omitempty"`
}

func Degrade(cause error) Degraded {
	if cause == nil {
		return Degraded{Degraded: true}
	}
	return Degraded{Degraded: true, Cause: cause.Error()}
}

// RecommendationSet is the always-successful output of the recommendation engine.
type RecommendationSet struct {
	Recommendations []ShoeRecommendation `json:"recommendations"`
	Degraded
}
