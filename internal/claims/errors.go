package claims

import (
	"errors"
	"net/http"
)

// Domain errors for claim operations.
var (
	ErrNotFound      = errors.New("claim not found")
	ErrDuplicate     = errors.New("claim already exists")
	ErrInvalidClaim  = errors.New("invalid claim")
	ErrInvalidAction = errors.New("invalid claim action")
)

// MapHTTPStatus maps claim domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidClaim), errors.Is(err, ErrInvalidAction):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
