package api

import (
	"errors"
	"net/http"

	apperrors "fitcheck-workers/internal/common/errors"

	"github.com/goccy/go-json"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		s.logger.Error("Failed to marshal JSON response", map[string]interface{}{"error": err.Error()})
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Failed to write JSON response", map[string]interface{}{"error": err.Error()})
	}
}

// respondError maps err to a status via its StandardError code.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandardError(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	fields := map[string]interface{}{
		"code":    string(stdErr.Code),
		"status":  status,
		"details": stdErr.Details,
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", fields)
	} else {
		s.logger.Info("Request rejected", fields)
	}

	s.respondJSON(w, status, errorResponse{
		Error: errorBody{Code: string(stdErr.Code), Message: stdErr.Message, Details: stdErr.Details},
	})
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewImageTooLargeError(limit)
		}
		return apperrors.NewValidationError("invalid JSON body: " + err.Error())
	}
	return nil
}
