package handler

import (
	"errors"
	"net/http"

	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/transport/http/response"
)

// statusFor maps a service error to an HTTP status and envelope code.
func statusFor(err error) (int, int) {
	switch {
	case errors.Is(err, app.ErrNotConfigured):
		return http.StatusBadRequest, response.CodeNotConfigured
	case errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest, response.CodeBadRequest
	case errors.Is(err, app.ErrSessionNotFound):
		return http.StatusNotFound, response.CodeSessionNotFound
	case errors.Is(err, app.ErrDocumentNotFound):
		return http.StatusNotFound, response.CodeDocumentNotFound
	case errors.Is(err, app.ErrNoActiveSession):
		return http.StatusNotFound, response.CodeNoActiveSession
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound, response.CodeNotFound
	case errors.Is(err, app.ErrDependency):
		return http.StatusBadGateway, response.CodeDependency
	default:
		return http.StatusInternalServerError, response.CodeInternalServer
	}
}

// publicMessage hides internal error text behind a generic message.
func publicMessage(err error, status int, fallback string) string {
	if status == http.StatusInternalServerError {
		return fallback
	}
	return err.Error()
}
