// internal/common/errors/handler.go
package errors

import (
	"context"

	"fitcheck-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

const (
	ActionFail  = "fail"
	ActionThrow = "throw"
)

// ErrorHandler reports worker failures back to the broker. Provider problems
// never reach it because the engines degrade instead; what arrives here is
// bad job input, a missing upload or a storage failure.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError fails the job with retries for retryable codes, otherwise throws a BPMN error.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := AsStandardError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	action := Action(stdErr, job.Retries)
	h.logError(job, stdErr, bpmnErr, action)
	metrics.JobErrors.WithLabelValues(job.Type, string(stdErr.Code), action).Inc()

	vars := errorVariables(bpmnErr)
	if action == ActionFail {
		cmd := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(remainingRetries(job.Retries, bpmnErr.Retries)).
			ErrorMessage(bpmnErr.Message)
		if vars != "" {
			if withVars, err := cmd.VariablesFromString(vars); err == nil {
				_, _ = withVars.Send(ctx)
				return
			}
		}
		_, _ = cmd.Send(ctx)
		return
	}

	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)
	if vars != "" {
		if withVars, err := cmd.VariablesFromString(vars); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

// Action decides between retrying the job and raising a BPMN error.
func Action(stdErr *StandardError, jobRetries int32) string {
	if stdErr.Retryable && GetRetryCount(stdErr.Code) > 0 && jobRetries > 0 {
		return ActionFail
	}
	return ActionThrow
}

// remainingRetries never raises the engine's remaining retry budget.
func remainingRetries(jobRetries int32, maxRetries int) int32 {
	if jobRetries > 0 && int(jobRetries) < maxRetries {
		return jobRetries - 1
	}
	return int32(maxRetries - 1)
}

func errorVariables(bpmnErr *BPMNError) string {
	data, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return ""
	}
	return string(data)
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError, action string) {
	h.logger.Error("Job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"taskType":           job.Type,
		"errorCode":          string(stdErr.Code),
		"bpmnErrorCode":      bpmnErr.Code,
		"message":            bpmnErr.Message,
		"details":            stdErr.Details,
		"action":             action,
		"errorCategory":      GetErrorCategory(stdErr.Code),
		"processInstanceKey": job.ProcessInstanceKey,
	})
}
