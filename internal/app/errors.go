package app

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package matches exactly one
// of them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrDependency = errors.New("dependency error")
)

var (
	ErrInvalidRole      = fmt.Errorf("%w: role must be user or assistant", ErrValidation)
	ErrEmptyQuestion    = fmt.Errorf("%w: question is empty", ErrValidation)
	ErrEmptySessionID   = fmt.Errorf("%w: session id is required", ErrValidation)
	ErrEmptyFile        = fmt.Errorf("%w: file is empty", ErrValidation)
	ErrMissingAPIKey    = fmt.Errorf("%w: api key is required", ErrValidation)
	ErrUnknownProvider  = fmt.Errorf("%w: unknown llm provider", ErrValidation)
	ErrNoContent        = fmt.Errorf("%w: document produced no chunks", ErrValidation)
	ErrNotConfigured    = fmt.Errorf("%w: no llm is configured, set an api key first", ErrValidation)
	ErrNoActiveSession  = fmt.Errorf("%w: no document is linked to this session", ErrNotFound)
	ErrSessionNotFound  = fmt.Errorf("%w: session not found", ErrNotFound)
	ErrDocumentNotFound = fmt.Errorf("%w: document not found", ErrNotFound)
)

// DependencyError wraps a failure of an embedding, index or generation backend.
type DependencyError struct {
	Provider string
	Op       string
	Err      error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

func dependencyError(provider, op string, err error) error {
	return &DependencyError{Provider: provider, Op: op, Err: err}
}
