package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/crawl-api/internal/api/shared"
	"github.com/phrazzld/crawl-api/internal/artifact"
	"github.com/phrazzld/crawl-api/internal/domain"
	"github.com/phrazzld/crawl-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, artifact.ErrInvalidName):
		return http.StatusBadRequest

	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, task.ErrTaskExists):
		return http.StatusConflict

	case errors.Is(err, task.ErrExecutorClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. Validation errors keep their field message,
// which never contains submitted values.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, domain.ErrValidation):
		return "Invalid request"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, shared.ErrBodyTooLarge):
		return "Request body too large"
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, task.ErrTaskExists):
		return "Task already exists"
	case errors.Is(err, task.ErrExecutorClosed):
		return "Server is shutting down"
	case errors.Is(err, artifact.ErrInvalidName):
		return "Invalid file name"
	case errors.Is(err, artifact.ErrNotFound):
		return "File not found"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status code and safe message for err and logs
// the redacted detail.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
