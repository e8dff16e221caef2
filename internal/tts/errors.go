package tts

import (
	"errors"
	"fmt"
)

// ErrUnavailable indicates a synthesis backend is not reachable.
var ErrUnavailable = errors.New("tts: backend unavailable")

// ErrTimeout indicates a synthesis backend took too long to respond.
var ErrTimeout = errors.New("tts: backend timeout")

// APIError represents an error status returned by a synthesis backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts: backend error (status %d): %s", e.StatusCode, e.Message)
}

// IsAPIError checks if an error is an APIError.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}
