package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrNotReady          = errors.New("job not completed")
	ErrArtifactMissing   = errors.New("artifact missing")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateJob      = errors.New("duplicate job")
	ErrProviderFailure   = errors.New("provider failure")
	ErrRateLimited       = errors.New("rate limited")
)

// ValidationError reports a malformed or incomplete content request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// GenerationError wraps a failure in one step of a generation pipeline.
type GenerationError struct {
	Step string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StepError wraps err as a GenerationError for step. A nil err stays nil.
func StepError(step string, err error) error {
	if err == nil {
		return nil
	}
	return &GenerationError{Step: step, Err: err}
}
