// Package registry loads the activity registry that documents each job
// worker's contract and guards incoming job variables against it.
package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	apperrors "fitcheck-workers/internal/common/errors"
	"fitcheck-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/goccy/go-json"
)

// ActivityRegistry is the contract file for every job worker the process
// can start.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one task type. InputSchema is enforced by Guard;
// OutputSchema documents the variables the worker completes with.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Tags                 []string               `json:"tags"`
}

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// Find returns the activity bound to taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// Missing lists the task types that have no registry entry.
func (r *ActivityRegistry) Missing(taskTypes []string) []string {
	var out []string
	for _, tt := range taskTypes {
		if _, ok := r.Find(tt); !ok {
			out = append(out, tt)
		}
	}
	return out
}

// CompileInput compiles the activity's input schema. A nil schema means no constraint.
func (a *Activity) CompileInput() (*validation.Schema, error) {
	if len(a.InputSchema) == 0 {
		return nil, nil
	}
	doc, err := json.Marshal(a.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("activity %s: %w", a.ID, err)
	}
	return validation.CompileSchema(doc)
}

// TimeoutDuration parses Timeout, falling back to def when unset or invalid.
func (a *Activity) TimeoutDuration(def time.Duration) time.Duration {
	if a.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate checks that every activity is complete and unique and that its
// schemas compile and its timeout parses.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for i := range r.Activities {
		a := &r.Activities[i]
		switch {
		case a.ID == "":
			return fmt.Errorf("activity missing required field: ID")
		case a.DisplayName == "":
			return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
		case a.TaskType == "":
			return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
		case a.Category == "":
			return fmt.Errorf("activity %s missing required field: Category", a.ID)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true

		if _, err := a.CompileInput(); err != nil {
			return fmt.Errorf("activity %s input schema: %w", a.ID, err)
		}
		if len(a.OutputSchema) > 0 {
			doc, err := json.Marshal(a.OutputSchema)
			if err != nil {
				return fmt.Errorf("activity %s output schema: %w", a.ID, err)
			}
			if _, err := validation.CompileSchema(doc); err != nil {
				return fmt.Errorf("activity %s output schema: %w", a.ID, err)
			}
		}
		for _, code := range a.ErrorCodes {
			if !knownErrorCode(code) {
				return fmt.Errorf("activity %s declares unknown error code %s", a.ID, code)
			}
		}
		if a.Timeout != "" {
			if d, err := time.ParseDuration(a.Timeout); err != nil || d <= 0 {
				return fmt.Errorf("activity %s has invalid timeout %q", a.ID, a.Timeout)
			}
		}
	}
	return nil
}

// knownErrorCode reports whether code can be thrown as a BPMN error.
func knownErrorCode(code string) bool {
	for _, bpmn := range apperrors.BPMNErrorMapping {
		if bpmn == code {
			return true
		}
	}
	return false
}

// ErrorReporter is satisfied by *errors.ErrorHandler.
type ErrorReporter interface {
	HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error)
}

// Guard wraps next so that jobs whose variables violate the activity's
// input schema are rejected before reaching the handler.
func (r *ActivityRegistry) Guard(taskType string, next worker.JobHandler, reporter ErrorReporter) (worker.JobHandler, error) {
	activity, ok := r.Find(taskType)
	if !ok {
		return next, nil
	}
	schema, err := activity.CompileInput()
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return next, nil
	}

	return func(client worker.JobClient, job entities.Job) {
		if err := CheckVariables(schema, job.Variables); err != nil {
			reporter.HandleJobError(context.Background(), client, job, err)
			return
		}
		next(client, job)
	}, nil
}

// CheckVariables validates raw job variables against schema.
func CheckVariables(schema *validation.Schema, variables string) error {
	if variables == "" {
		variables = "{}"
	}
	return schema.ValidateJSON([]byte(variables)).ToError()
}

var _ ErrorReporter = (*apperrors.ErrorHandler)(nil)
