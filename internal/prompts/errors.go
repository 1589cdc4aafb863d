package prompts

import (
	"errors"
	"net/http"

	"github.com/sahithi-mandalapu/feedback-market/internal/extraction"
)

// Domain errors for prompt operations.
var (
	ErrNotFound     = errors.New("prompt not found")
	ErrDuplicate    = errors.New("prompt name already exists")
	ErrInvalidStage = errors.New("stage must be extract")
	ErrInvalid      = errors.New("prompt name and instructions are required")
	ErrEmptySample  = errors.New("preview text is required")
)

// MapHTTPStatus maps prompt domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidStage) || errors.Is(err, ErrInvalid) || errors.Is(err, ErrEmptySample) {
		return http.StatusBadRequest
	}
	if errors.Is(err, extraction.ErrExtractionFailed) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
