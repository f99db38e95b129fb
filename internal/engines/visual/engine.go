// Package visual renders one image per (shoe, angle) pair, either by asking a
// model to describe the look and drawing that description onto a canvas, or by
// streaming a true image edit.
package visual

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/metrics"
	"fitcheck-workers/internal/models"
)

const engineName = "visual"

type Mode string

const (
	ModeDescriptive Mode = "descriptive"
	ModeGenerative  Mode = "generative"
)

const describePrompt = `Based on this image of a person, I need you to describe in detail how they would look wearing %[1]s from a %[2]s view angle.

Describe:
1. How the shoes would complement their outfit
2. The overall appearance from the %[2]s angle
3. How the shoes change the outfit's aesthetic
4. The visual harmony between the shoes and the existing outfit

Be specific about colors, styles, and visual details.`

const editPrompt = `Generate a realistic image of this person wearing %[1]s from a %[2]s view angle.

Requirements:
- Show the person wearing the exact shoes described: %[1]s
- Maintain the same outfit, pose, and background as the original image
- Ensure the shoes are clearly visible and match the description
- Keep the same lighting and overall aesthetic
- The image should look natural and realistic
- Focus on the %[2]s angle view as requested

Make sure the shoes complement the outfit perfectly and the overall look is cohesive.`

var errNoImage = errors.New("image stream returned no image")

type Config struct {
	MaxImageSize int
	Width        int
	Height       int
}

type Engine struct {
	store     artifacts.Store
	describer capabilities.TextDescriber
	editor    capabilities.ImageEditor
	config    Config
	logger    logger.Logger
}

func NewEngine(store artifacts.Store, describer capabilities.TextDescriber, editor capabilities.ImageEditor, cfg Config, log logger.Logger) *Engine {
	return &Engine{
		store:     store,
		describer: describer,
		editor:    editor,
		config:    cfg,
		logger:    log.WithFields(map[string]interface{}{"component": "visual-engine"}),
	}
}

type rendered struct {
	data     []byte
	mimeType string
	degraded models.Degraded
}

// Synthesize never fails. Any error along the way yields the error placeholder,
// marked degraded.
func (e *Engine) Synthesize(ctx context.Context, source []byte, shoe models.ShoeRecommendation, angle models.Angle, mode Mode) models.AngleVisualization {
	done := metrics.TrackUnit(engineName)
	log := e.logger.WithFields(map[string]interface{}{
		"shoe":  shoe.GroupKey(),
		"angle": string(angle),
		"mode":  string(mode),
	})

	out, err := e.synthesize(ctx, source, shoe, angle, mode, log)
	if err != nil {
		log.Warn("Visualization failed, using error placeholder", map[string]interface{}{"error": err.Error()})
		metrics.RecordDegraded(engineName, "error_placeholder")
		done(metrics.OutcomeDegraded)
		return e.errorPlaceholder(ctx, angle, err, log)
	}

	// output is persisted even past the unit deadline
	name := artifacts.GeneratedName(string(angle))
	if _, err := e.store.Save(context.WithoutCancel(ctx), artifacts.KindGenerated, name, out.data, out.mimeType); err != nil {
		log.Warn("Failed to persist visualization", map[string]interface{}{"error": err.Error()})
		metrics.RecordDegraded(engineName, "error_placeholder")
		done(metrics.OutcomeDegraded)
		return e.errorPlaceholder(ctx, angle, err, log)
	}

	if out.degraded.Degraded {
		metrics.RecordDegraded(engineName, "descriptive_fallback")
		done(metrics.OutcomeDegraded)
	} else {
		done(metrics.OutcomeOK)
	}
	return models.AngleVisualization{
		Angle:        angle,
		Image:        artifacts.DataURI(out.mimeType, out.data),
		ArtifactName: name,
		Degraded:     out.degraded,
	}
}

func (e *Engine) synthesize(ctx context.Context, source []byte, shoe models.ShoeRecommendation, angle models.Angle, mode Mode, log logger.Logger) (*rendered, error) {
	working, cleanup, err := e.prepare(ctx, source, log)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	switch mode {
	case ModeGenerative:
		out, err := e.generate(ctx, working, shoe, angle, log)
		if errors.Is(err, errNoImage) {
			log.Info("No image in edit stream, falling back to descriptive mode", nil)
			out, err = e.describe(ctx, working, shoe, angle)
			if err != nil {
				return nil, err
			}
			out.degraded = models.Degrade(errNoImage)
		}
		return out, err
	case ModeDescriptive, "":
		return e.describe(ctx, working, shoe, angle)
	default:
		return nil, fmt.Errorf("unknown visualization mode %q", mode)
	}
}

// prepare writes the resized source as a temp working file and reads it back.
// The returned cleanup removes it.
func (e *Engine) prepare(ctx context.Context, source []byte, log logger.Logger) ([]byte, func(), error) {
	prepared, err := artifacts.Prepare(source, e.config.MaxImageSize)
	if err != nil {
		return nil, nil, err
	}

	name := artifacts.TempName()
	if _, err := e.store.Save(ctx, artifacts.KindTemp, name, prepared, "image/jpeg"); err != nil {
		return nil, nil, fmt.Errorf("save working file: %w", err)
	}
	cleanup := func() {
		if err := e.store.Remove(context.WithoutCancel(ctx), artifacts.KindTemp, name); err != nil {
			log.Warn("Failed to remove working file", map[string]interface{}{"name": name, "error": err.Error()})
		}
	}

	working, err := e.store.Read(ctx, artifacts.KindTemp, name)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("read working file: %w", err)
	}
	return working, cleanup, nil
}

func (e *Engine) describe(ctx context.Context, working []byte, shoe models.ShoeRecommendation, angle models.Angle) (*rendered, error) {
	desc := shoe.Description()
	text, err := e.describer.Describe(ctx, working, "image/jpeg", fmt.Sprintf(describePrompt, desc, angle))
	if err != nil {
		return nil, err
	}

	data, err := artifacts.RenderDescriptive(e.config.Width, e.config.Height, desc, string(angle), text)
	if err != nil {
		return nil, err
	}
	return &rendered{data: data, mimeType: "image/jpeg"}, nil
}

// generate consumes the edit stream until the first inline image.
func (e *Engine) generate(ctx context.Context, working []byte, shoe models.ShoeRecommendation, angle models.Angle, log logger.Logger) (*rendered, error) {
	stream, err := e.editor.Edit(ctx, working, "image/jpeg", fmt.Sprintf(editPrompt, shoe.Description(), angle))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	for {
		chunk, err := stream.Next()
		if err == io.EOF {
			return nil, errNoImage
		}
		if err != nil {
			return nil, fmt.Errorf("read edit stream: %w", err)
		}
		if len(chunk.Data) > 0 {
			mimeType := chunk.MimeType
			if mimeType == "" {
				mimeType = "image/jpeg"
			}
			return &rendered{data: chunk.Data, mimeType: mimeType}, nil
		}
		if chunk.Text != "" {
			log.Debug("Edit stream text", map[string]interface{}{"text": chunk.Text})
		}
	}
}

func (e *Engine) errorPlaceholder(ctx context.Context, angle models.Angle, cause error, log logger.Logger) models.AngleVisualization {
	viz := models.AngleVisualization{Angle: angle, Degraded: models.Degrade(cause)}

	data, err := artifacts.RenderError(e.config.Width, e.config.Height)
	if err != nil {
		log.Error("Failed to render error placeholder", map[string]interface{}{"error": err.Error()})
		return viz
	}
	viz.Image = artifacts.DataURI("image/jpeg", data)

	name := artifacts.ErrorName()
	if _, err := e.store.Save(context.WithoutCancel(ctx), artifacts.KindGenerated, name, data, "image/jpeg"); err != nil {
		log.Error("Failed to persist error placeholder", map[string]interface{}{"error": err.Error()})
		return viz
	}
	viz.ArtifactName = name
	return viz
}
