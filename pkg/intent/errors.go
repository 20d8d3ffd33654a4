package intent

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput means nothing was left to interpret after normalization.
	ErrEmptyInput = errors.New("empty input")

	// ErrCancelled means the user cancelled before an action was created.
	ErrCancelled = errors.New("cancelled")
)

// ProviderUnavailableError means the language model could not be reached.
type ProviderUnavailableError struct {
	Err error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("language model unavailable: %v", e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// ExecutionError wraps the failure of a collaborator while executing an action.
type ExecutionError struct {
	Kind Kind
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsProviderUnavailable reports whether err is a ProviderUnavailableError.
func IsProviderUnavailable(err error) bool {
	var pe *ProviderUnavailableError
	return errors.As(err, &pe)
}
