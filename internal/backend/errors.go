package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches 401/403 responses.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("backend: not found")
	// ErrUnavailable wraps transport failures and 5xx responses.
	ErrUnavailable = errors.New("backend: unavailable")
)

// APIError is a failed backend call: a non-2xx status or success:false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is classify an APIError by status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// Message returns the backend's own message for err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
