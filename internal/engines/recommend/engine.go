// Package recommend turns an outfit photo into a fixed-size list of shoe recommendations.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/metrics"
	"fitcheck-workers/internal/common/validation"
	"fitcheck-workers/internal/models"

	"github.com/goccy/go-json"
)

const engineName = "recommend"

const promptTemplate = `You are a fashion expert AI assistant. Analyze the outfit in this image and recommend exactly %d shoes that would perfectly complement the style.

Consider:
- The outfit's style, colors, and formality level
- Current fashion trends
- Versatility and practicality
- The overall aesthetic and vibe

Return exactly %d shoe recommendations that would work well with this outfit. Use the recommend_shoes function to provide your recommendations.`

const itemSchema = `{
  "type": "object",
  "properties": {
    "name":   {"type": "string", "description": "The shoe model name"},
    "brand":  {"type": "string", "description": "The brand name"},
    "color":  {"type": "string", "description": "The primary color(s)"},
    "style":  {"type": "string", "description": "The type of shoe"},
    "reason": {"type": "string", "description": "Why this shoe works with the outfit"}
  },
  "required": ["name", "brand", "color", "style", "reason"]
}`

// FunctionSchema is offered to the vision model as the recommend_shoes function.
var FunctionSchema = capabilities.FunctionSchema{
	Name:        "recommend_shoes",
	Description: "Recommend shoes based on the outfit in the image",
	Parameters: json.RawMessage(`{
  "type": "object",
  "properties": {
    "recommendations": {"type": "array", "items": ` + itemSchema + `}
  },
  "required": ["recommendations"]
}`),
}

var recommendationSchema = validation.MustCompileSchema(itemSchema)

// Fallback is returned whole when the model call fails or yields nothing.
var Fallback = []models.ShoeRecommendation{
	{Name: "Air Jordan 1", Brand: "Nike", Color: "Black/Red", Style: "sneakers", Reason: "Classic streetwear staple"},
	{Name: "Chuck Taylor All Star", Brand: "Converse", Color: "White", Style: "sneakers", Reason: "Timeless casual option"},
}

// DefaultPool backfills short lists.
var DefaultPool = []models.ShoeRecommendation{
	{Name: "Air Force 1", Brand: "Nike", Color: "White", Style: "sneakers", Reason: "Classic versatile choice"},
	{Name: "Chelsea Boot", Brand: "Dr. Martens", Color: "Black", Style: "boots", Reason: "Timeless and stylish"},
}

type Engine struct {
	vision  capabilities.VisionRecommender
	maxSize int
	logger  logger.Logger
}

func NewEngine(vision capabilities.VisionRecommender, maxImageSize int, log logger.Logger) *Engine {
	return &Engine{
		vision:  vision,
		maxSize: maxImageSize,
		logger:  log.WithFields(map[string]interface{}{"component": "recommend-engine"}),
	}
}

// Recommend never fails: provider problems yield Fallback, and the result
// always holds exactly target items.
func (e *Engine) Recommend(ctx context.Context, image []byte, target int) models.RecommendationSet {
	done := metrics.TrackUnit(engineName)

	shoes, degraded := e.analyze(ctx, image, target)
	set := models.RecommendationSet{
		Recommendations: EnsureCount(shoes, target),
		Degraded:        degraded,
	}

	if set.Degraded.Degraded {
		metrics.RecordDegraded(engineName, "fallback")
		done(metrics.OutcomeDegraded)
	} else {
		done(metrics.OutcomeOK)
	}
	return set
}

func (e *Engine) analyze(ctx context.Context, image []byte, target int) ([]models.ShoeRecommendation, models.Degraded) {
	prepared, err := artifacts.Prepare(image, e.maxSize)
	if err != nil {
		e.logger.Warn("Image preparation failed, using fallback", map[string]interface{}{"error": err.Error()})
		return copyOf(Fallback), models.Degrade(err)
	}

	prompt := fmt.Sprintf(promptTemplate, target, target)
	analysis, err := e.vision.Analyze(ctx, prepared, "image/jpeg", prompt, FunctionSchema)
	if err != nil {
		e.logger.Warn("Recommendation call failed, using fallback", map[string]interface{}{"error": err.Error()})
		return copyOf(Fallback), models.Degrade(err)
	}

	shoes := e.extract(analysis)
	if len(shoes) == 0 {
		e.logger.Warn("No recommendations extracted, using fallback", nil)
		return copyOf(Fallback), models.Degraded{Degraded: true, Cause: "no recommendations in response"}
	}
	return shoes, models.Degraded{}
}

// extract reads structured function-call args first, then falls back to
// scanning the free text for a JSON list or {recommendations: [...]} object.
func (e *Engine) extract(analysis *capabilities.Analysis) []models.ShoeRecommendation {
	if len(analysis.StructuredArgs) > 0 {
		var args struct {
			Recommendations []json.RawMessage `json:"recommendations"`
		}
		if err := json.Unmarshal(analysis.StructuredArgs, &args); err == nil {
			if shoes := e.validItems(args.Recommendations); len(shoes) > 0 {
				return shoes
			}
		}
	}

	if analysis.Text == "" {
		return nil
	}
	return e.validItems(parseText(analysis.Text))
}

func parseText(text string) []json.RawMessage {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		text, _, _ = strings.Cut(after, "```")
	} else if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		text = text[start : end+1]
	}
	text = strings.TrimSpace(text)

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list
	}
	var obj struct {
		Recommendations []json.RawMessage `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj.Recommendations
	}
	return nil
}

// validItems keeps items that satisfy the five-field schema.
func (e *Engine) validItems(raw []json.RawMessage) []models.ShoeRecommendation {
	out := make([]models.ShoeRecommendation, 0, len(raw))
	for i, item := range raw {
		if result := recommendationSchema.ValidateJSON(item); !result.Valid {
			e.logger.Debug("Dropping invalid recommendation", map[string]interface{}{
				"index":  i,
				"errors": result.Errors,
			})
			continue
		}
		var shoe models.ShoeRecommendation
		if err := json.Unmarshal(item, &shoe); err != nil {
			continue
		}
		out = append(out, shoe)
	}
	return out
}

// EnsureCount truncates to target or appends DefaultPool entries indexed by
// the current length modulo the pool size.
func EnsureCount(shoes []models.ShoeRecommendation, target int) []models.ShoeRecommendation {
	if target < 0 {
		target = 0
	}
	out := make([]models.ShoeRecommendation, 0, target)
	for i := 0; i < len(shoes) && i < target; i++ {
		out = append(out, shoes[i])
	}
	for len(out) < target {
		out = append(out, DefaultPool[len(out)%len(DefaultPool)])
	}
	return out
}

func copyOf(in []models.ShoeRecommendation) []models.ShoeRecommendation {
	out := make([]models.ShoeRecommendation, len(in))
	copy(out, in)
	return out
}
