package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/opora-ai/docforge/pkg/apperrors"
)

// ApiResponse wraps data in the format expected by the frontend.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ServiceError maps a service-layer error to its HTTP representation and
// writes it. Unknown errors become 500 with the given operation code.
func ServiceError(w http.ResponseWriter, logger *zap.Logger, operation string, err error) {
	status := http.StatusInternalServerError
	code := operation + "_failed"

	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		status, code = http.StatusNotFound, "session_not_found"
	case errors.Is(err, apperrors.ErrDocumentNotFound):
		status, code = http.StatusNotFound, "document_not_found"
	case errors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrUnknownQuestion):
		status, code = http.StatusBadRequest, "unknown_question"
	case errors.Is(err, apperrors.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, apperrors.ErrTemplateUnreadable):
		status, code = http.StatusUnprocessableEntity, "template_unreadable"
	case errors.Is(err, apperrors.ErrRenderFailure):
		status, code = http.StatusInternalServerError, "render_failed"
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("operation", operation), zap.Error(err))
	}
	if err := ErrorResponse(w, status, code, err.Error()); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
