// Package errors provides standardized error handling shared by the HTTP API and the job workers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Input validation: rejected before any engine runs.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeImageNotFound    ErrorCode = "IMAGE_NOT_FOUND"
	ErrCodeInvalidFileType  ErrorCode = "INVALID_FILE_TYPE"
	ErrCodeImageTooLarge    ErrorCode = "IMAGE_TOO_LARGE"

	// Provider errors: absorbed into degraded results, surfaced only as causes.
	ErrCodeProviderUnavailable     ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrCodeProviderTimeout         ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeProviderResponseInvalid ErrorCode = "PROVIDER_RESPONSE_INVALID"
	ErrCodeProviderNotConfigured   ErrorCode = "PROVIDER_NOT_CONFIGURED"

	ErrCodeArtifactWriteFailed ErrorCode = "ARTIFACT_WRITE_FAILED"
	ErrCodeArtifactReadFailed  ErrorCode = "ARTIFACT_READ_FAILED"

	// Aggregation-level errors recorded on a unit's result entry.
	ErrCodeUnitFailed  ErrorCode = "UNIT_FAILED"
	ErrCodeUnitTimeout ErrorCode = "UNIT_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports a malformed or incomplete request.
func NewValidationError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Request validation failed", details, false)
}

// NewImageNotFoundError reports an image_id that does not resolve to a stored upload.
func NewImageNotFoundError(imageID string) *StandardError {
	return newError(ErrCodeImageNotFound, "Original image not found", fmt.Sprintf("image_id: %s", imageID), false)
}

func NewInvalidFileTypeError(filename string) *StandardError {
	return newError(ErrCodeInvalidFileType, "Invalid file type", fmt.Sprintf("filename: %s", filename), false)
}

func NewImageTooLargeError(limit int64) *StandardError {
	return newError(ErrCodeImageTooLarge, "Image exceeds maximum upload size", fmt.Sprintf("limit: %d bytes", limit), false)
}

// NewProviderUnavailableError wraps a transport or status failure from an AI/search provider.
func NewProviderUnavailableError(provider string, err error) *StandardError {
	return newError(ErrCodeProviderUnavailable, "Provider request failed", fmt.Sprintf("provider: %s, error: %v", provider, err), true).
		WithMetadata("provider", provider)
}

func NewProviderTimeoutError(provider string) *StandardError {
	return newError(ErrCodeProviderTimeout, "Provider request timed out", fmt.Sprintf("provider: %s", provider), true).
		WithMetadata("provider", provider)
}

func NewProviderResponseInvalidError(provider string, details string) *StandardError {
	return newError(ErrCodeProviderResponseInvalid, "Provider returned an unusable response", fmt.Sprintf("provider: %s, %s", provider, details), true).
		WithMetadata("provider", provider)
}

func NewProviderNotConfiguredError(provider string) *StandardError {
	return newError(ErrCodeProviderNotConfigured, "Provider is not configured", fmt.Sprintf("provider: %s", provider), false).
		WithMetadata("provider", provider)
}

func NewArtifactWriteFailedError(name string, err error) *StandardError {
	return newError(ErrCodeArtifactWriteFailed, "Artifact write failed", fmt.Sprintf("artifact: %s, error: %v", name, err), true)
}

func NewArtifactReadFailedError(name string, err error) *StandardError {
	return newError(ErrCodeArtifactReadFailed, "Artifact read failed", fmt.Sprintf("artifact: %s, error: %v", name, err), true)
}

func NewUnitFailedError(index int, cause interface{}) *StandardError {
	return newError(ErrCodeUnitFailed, "Unit of work failed", fmt.Sprintf("unit: %d, cause: %v", index, cause), false)
}

func NewUnitTimeoutError(index int, timeout time.Duration) *StandardError {
	return newError(ErrCodeUnitTimeout, "Unit of work exceeded its deadline", fmt.Sprintf("unit: %d, timeout: %s", index, timeout), false)
}

// NewExternalServiceError creates a retryable error for infrastructure services (Zeebe, Redis, S3).
func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeProviderUnavailable, "External service error", fmt.Sprintf("service: %s, error: %v", service, err), true).
		WithMetadata("service", service)
}

// NewTimeoutError creates a retryable timeout error for infrastructure services.
func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeProviderTimeout, "Service timeout", fmt.Sprintf("service: %s, error: %v", service, err), true).
		WithMetadata("service", service)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidationFailed:        "VALIDATION_FAILED",
	ErrCodeImageNotFound:           "IMAGE_NOT_FOUND",
	ErrCodeInvalidFileType:         "INVALID_FILE_TYPE",
	ErrCodeImageTooLarge:           "IMAGE_TOO_LARGE",
	ErrCodeProviderUnavailable:     "PROVIDER_UNAVAILABLE",
	ErrCodeProviderTimeout:         "PROVIDER_TIMEOUT",
	ErrCodeProviderResponseInvalid: "PROVIDER_RESPONSE_INVALID",
	ErrCodeProviderNotConfigured:   "PROVIDER_NOT_CONFIGURED",
	ErrCodeArtifactWriteFailed:     "ARTIFACT_WRITE_FAILED",
	ErrCodeArtifactReadFailed:      "ARTIFACT_READ_FAILED",
	ErrCodeUnitFailed:              "UNIT_FAILED",
	ErrCodeUnitTimeout:             "UNIT_TIMEOUT",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeProviderUnavailable,
		ErrCodeArtifactWriteFailed,
		ErrCodeArtifactReadFailed:
		return 3

	case ErrCodeProviderTimeout,
		ErrCodeProviderResponseInvalid:
		return 2

	case ErrCodeUnitTimeout:
		return 1

	default:
		return 0 // validation and business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	var stdErr *StandardError
	if !errors.As(err, &stdErr) {
		return false
	}
	return GetErrorCategory(stdErr.Code) == "VALIDATION"
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// HTTPStatus maps an error code to the response status used by the HTTP API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeImageNotFound:
		return http.StatusNotFound
	case ErrCodeImageTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeValidationFailed, ErrCodeInvalidFileType:
		return http.StatusBadRequest
	case ErrCodeProviderUnavailable, ErrCodeProviderNotConfigured:
		return http.StatusBadGateway
	case ErrCodeProviderTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeImageNotFound || code == ErrCodeImageTooLarge ||
		strings.Contains(codeStr, "INVALID_FILE") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.HasPrefix(codeStr, "PROVIDER"):
		return "PROVIDER"
	case strings.HasPrefix(codeStr, "ARTIFACT"):
		return "ARTIFACT"
	case strings.HasPrefix(codeStr, "UNIT"):
		return "AGGREGATION"
	default:
		return "OTHER"
	}
}
