package api

import (
	"errors"
	"net/http"

	"presto-adapter/internal/domain"
)

// statusFromError maps domain error types to HTTP status codes.
func statusFromError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var unavailable *domain.UnavailableError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
