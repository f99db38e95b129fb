// Package video turns a generated outfit image into a short fit-check clip.
package video

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitcheck-workers/internal/artifacts"
	"fitcheck-workers/internal/capabilities"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/metrics"
	"fitcheck-workers/internal/models"
)

const engineName = "video"

const promptTemplate = "A cinematic video of a person doing a casual fit check in front of a mirror. The camera smoothly rotates to capture front, back, left, and right views. The environment is bright, well-lit, and stylish. The focus is primarily on the sneakers: close-up shots, slow pans, zooms, and dramatic angles highlight how the sneakers pair with the outfit. Do not change anything about the shoe — its design, color, and details must remain exactly the same. They are wearing %s. The rest of the clothing remains secondary, slightly blurred or framed to keep attention on the sneakers. Natural gestures, like adjusting pants or shifting weight, emphasize the sneakers as the centerpiece of the drip."

const (
	clipDuration   = "8s"
	clipResolution = "720p"
)

var errEmptySource = errors.New("source image is empty")

type Engine struct {
	store     artifacts.Store
	generator capabilities.VideoGenerator
	logger    logger.Logger
	now       func() time.Time
}

func NewEngine(store artifacts.Store, generator capabilities.VideoGenerator, log logger.Logger) *Engine {
	return &Engine{
		store:     store,
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"component": "video-engine"}),
		now:       time.Now,
	}
}

// Synthesize renders a clip from the generated image artifact named imageName.
// It blocks until the provider finishes. Failures come back as a failed
// VideoResult with an empty URL.
func (e *Engine) Synthesize(ctx context.Context, imageName string, shoe models.ShoeRecommendation, angle models.Angle) models.VideoResult {
	done := metrics.TrackUnit(engineName)
	log := e.logger.WithFields(map[string]interface{}{"shoe": shoe.GroupKey(), "angle": string(angle)})

	uri, name, err := e.synthesize(ctx, imageName, shoe, angle, log)
	if err != nil {
		log.Warn("Video generation failed", map[string]interface{}{"image": imageName, "error": err.Error()})
		done(metrics.OutcomeFailed)
		return Failed(angle, err)
	}

	done(metrics.OutcomeOK)
	return models.VideoResult{Angle: angle, VideoURL: uri, Artifact: name, Status: models.VideoStatusCompleted}
}

// Failed builds the failure marker used whenever a clip cannot be produced.
func Failed(angle models.Angle, cause error) models.VideoResult {
	r := models.VideoResult{Angle: angle, Status: models.VideoStatusFailed}
	if cause != nil {
		r.Cause = cause.Error()
	}
	return r
}

func (e *Engine) synthesize(ctx context.Context, imageName string, shoe models.ShoeRecommendation, angle models.Angle, log logger.Logger) (uri, name string, err error) {
	if imageName == "" {
		return "", "", errEmptySource
	}
	image, err := e.store.Read(ctx, artifacts.KindGenerated, imageName)
	if err != nil {
		return "", "", fmt.Errorf("read source %s: %w", imageName, err)
	}
	if len(image) == 0 {
		return "", "", errEmptySource
	}

	start := time.Now()
	log.Info("Submitting video generation", map[string]interface{}{"image": imageName, "bytes": len(image)})

	result, err := e.generator.Generate(ctx, capabilities.VideoRequest{
		ImageDataURI:  artifacts.DataURI(artifacts.SniffMime(imageName, image), image),
		Prompt:        fmt.Sprintf(promptTemplate, shoe.Description()),
		Duration:      clipDuration,
		Resolution:    clipResolution,
		GenerateAudio: false,
	})
	if err != nil {
		return "", "", err
	}

	clip, err := e.generator.Fetch(ctx, result.URL)
	if err != nil {
		return "", "", fmt.Errorf("download clip: %w", err)
	}

	name = artifacts.VideoName(string(angle), e.now())
	if _, err := e.store.Save(context.WithoutCancel(ctx), artifacts.KindVideo, name, clip, "video/mp4"); err != nil {
		return "", "", fmt.Errorf("save clip: %w", err)
	}

	log.Info("Video generated", map[string]interface{}{
		"artifact": name,
		"bytes":    len(clip),
		"duration": time.Since(start).String(),
	})
	return artifacts.DataURI("video/mp4", clip), name, nil
}
