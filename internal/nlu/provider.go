package nlu

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Request is one call to the language model.
type Request struct {
	// Prompt is the user-side text.
	Prompt string
	// Schema is the system instruction; empty for free-text drafting.
	Schema string
	// Context holds prior turns, oldest first.
	Context []Turn
}

// Provider is the language model collaborator.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// APIError is a provider failure with an HTTP status.
type APIError struct {
	Status int
	Err    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider status %d: %v", e.Status, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// transient reports whether one more attempt could plausibly succeed.
// Authentication and request errors are final.
func transient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests ||
			apiErr.Status == http.StatusRequestTimeout ||
			apiErr.Status >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return !errors.Is(err, context.Canceled)
}
