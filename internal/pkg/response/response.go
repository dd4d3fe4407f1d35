// Package response provides JSON response helpers for API handlers.
//
// Success bodies are written as-is, without an envelope, so clients receive
// exactly the documented shape. Error bodies are the APIError itself.
package response

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/vnprr/SnapDish/internal/pkg/errors"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(data)
}

// Error writes an error response.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierrors.AsAPIError(err)
	JSON(w, apiErr.StatusCode, apiErr)
}

// OK writes a 200 OK response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, apierrors.ErrBadRequest.WithMessage(message))
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	Error(w, apierrors.ErrUnauthorized.WithMessage(message))
}

// Forbidden writes a 403 Forbidden error response.
func Forbidden(w http.ResponseWriter, message string) {
	Error(w, apierrors.ErrForbidden.WithMessage(message))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, apierrors.NewNotFoundError(resource))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter) {
	Error(w, apierrors.ErrInternal)
}

// ValidationError writes a 400 validation error response.
func ValidationError(w http.ResponseWriter, field, message string) {
	Error(w, apierrors.NewValidationError(field, message))
}

// ValidationErrors writes a 400 validation error response with multiple field errors.
func ValidationErrors(w http.ResponseWriter, errors map[string]string) {
	Error(w, apierrors.NewValidationErrors(errors))
}
