package generatevideos

import (
	"context"

	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/logger"
	"fitcheck-workers/internal/common/validation"
	"fitcheck-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

const (
	TaskType = "generate-videos"
)

type VideoPipeline interface {
	Videos(ctx context.Context, imageID string, shoes []models.ShoeRecommendation) ([]models.ShoeVideoResult, error)
}

type Handler struct {
	config       *Config
	pipeline     VideoPipeline
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, pipeline VideoPipeline, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		pipeline:     pipeline,
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validation.ValidateStruct(input); err != nil {
		return nil, err
	}

	results, err := h.pipeline.Videos(ctx, input.ImageID, input.Shoes)
	if err != nil {
		return nil, err
	}

	out := &Output{Videos: toRefs(results)}
	for _, r := range results {
		for _, v := range r.Videos {
			if v.Status == models.VideoStatusCompleted {
				out.Completed++
			} else {
				out.Failed++
			}
		}
	}

	h.logger.Info("videos generated", map[string]interface{}{
		"imageId":   input.ImageID,
		"completed": out.Completed,
		"failed":    out.Failed,
	})
	return out, nil
}
