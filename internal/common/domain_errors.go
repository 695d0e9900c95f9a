package common

import (
	"errors"
	"net/http"
)

// HTTPError is implemented by domain errors that carry their own wire shape.
// RenderError switches on it so this package needs no imports from the
// packages that define those errors.
type HTTPError interface {
	error
	Code() string
	Status() int
	Message() string
	Details() map[string]any
}

// RenderError maps domain errors onto the canonical JSON error shape. All of
// these are recoverable validation failures; anything unrecognised is a 500.
func RenderError(w http.ResponseWriter, err error) {
	var (
		httpErr HTTPError
		appErr  *AppError
	)
	switch {
	case errors.As(err, &httpErr):
		JSONError(w, httpErr.Status(), httpErr.Code(), httpErr.Message(), httpErr.Details())
	case errors.As(err, &appErr):
		JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
	default:
		JSONError(w, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	}
}
