package feedback

import (
	"errors"
	"net/http"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
	"github.com/sahithi-mandalapu/feedback-market/internal/llm"
)

// Domain errors for feedback operations.
var (
	ErrInvalidRequest = errors.New("invalid feedback request")
	ErrEmptyText      = errors.New("feedback text is required")
)

// MapHTTPStatus maps feedback and extraction errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrRequest), errors.Is(err, llm.ErrEmptyResponse):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
