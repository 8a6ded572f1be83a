package apiclient

import (
	"fmt"
)

// APIError represents an error response from the broker.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsNotFound returns true if this is a not found error.
func (e *APIError) IsNotFound() bool {
	return e.Code == "NOT_FOUND"
}

// IsConflict returns true if this is a conflict error.
func (e *APIError) IsConflict() bool {
	return e.Code == "CONFLICT"
}

// IsForbidden returns true if this is a forbidden error.
func (e *APIError) IsForbidden() bool {
	return e.Code == "FORBIDDEN"
}

// IsInvalidInput returns true if this is a validation error.
func (e *APIError) IsInvalidInput() bool {
	return e.Code == "INVALID_INPUT"
}
