package models

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every non-2xx response: {"error": "..."}.
type Error struct {
	// Message is the human-readable reason.
	Message string `json:"error"`

	// Status is the HTTP status code. Not serialized.
	Status int `json:"-"`

	// RequestID is echoed in the X-Request-Id header. Not serialized.
	RequestID string `json:"-"`
}

// NewError creates an error response.
func NewError(status int, requestID, message string) *Error {
	return &Error{Message: message, Status: status, RequestID: requestID}
}

// Write writes the error as JSON to the ResponseWriter.
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if e.RequestID != "" {
		w.Header().Set("X-Request-Id", e.RequestID)
	}
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(e)
}

// NewForbidden creates a 403 Forbidden error.
func NewForbidden(requestID, message string) *Error {
	return NewError(http.StatusForbidden, requestID, message)
}

// NewTooManyRequests creates a 429 Too Many Requests error.
func NewTooManyRequests(requestID, message string) *Error {
	return NewError(http.StatusTooManyRequests, requestID, message)
}

// NewInternalError creates a 500 Internal Server Error.
func NewInternalError(requestID, message string) *Error {
	return NewError(http.StatusInternalServerError, requestID, message)
}
