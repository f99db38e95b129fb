package generateoutfits

import (
	"context"

	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/validation"
	"fitcheck-workers/internal/engines/visual"
	"fitcheck-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

const (
	TaskType = "generate-outfits"
)

type Visualizer interface {
	Visualize(ctx context.Context, imageID string, shoes []models.ShoeRecommendation, angles []models.Angle, mode visual.Mode) ([]models.ShoeVisualizationResult, error)
}

type Handler struct {
	config       *Config
	visualizer   Visualizer
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, visualizer Visualizer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		visualizer:   visualizer,
		errorHandler: apperrors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, apperrors.NewValidationError("parse input: "+err.Error()))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

// execute renders every requested angle. Failed units are counted, never fatal.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validation.ValidateStruct(input); err != nil {
		return nil, err
	}
	angles, err := models.ParseAngles(input.Angles)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	mode := h.config.DefaultMode
	if input.Mode != "" {
		mode = visual.Mode(input.Mode)
	}

	results, err := h.visualizer.Visualize(ctx, input.ImageID, input.Shoes, angles, mode)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	h.logger.Info("visualizations generated", map[string]interface{}{
		"imageId": input.ImageID,
		"mode":    string(mode),
		"shoes":   len(results),
		"failed":  failed,
	})

	return &Output{Visualizations: toRefs(results), FailedUnits: failed}, nil
}
