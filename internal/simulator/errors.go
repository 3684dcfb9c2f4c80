package simulator

import (
	"errors"
	"fmt"
)

// SimError represents a request the simulator refused to run.
type SimError struct {
	// Code identifies the error category.
	Code SimErrorCode

	// Model is the requested model name, when known.
	Model string

	// Message is a human-readable description.
	Message string
}

// SimErrorCode categorizes simulator errors.
type SimErrorCode string

const (
	// ErrCodeUnknownModel indicates the model name is not registered.
	ErrCodeUnknownModel SimErrorCode = "UNKNOWN_MODEL"

	// ErrCodeBadTheta indicates a malformed or physically invalid parameter vector.
	ErrCodeBadTheta SimErrorCode = "BAD_THETA"

	// ErrCodeOutOfBounds indicates theta lies outside the model's bounds
	// while strict bounds checking is enabled.
	ErrCodeOutOfBounds SimErrorCode = "OUT_OF_BOUNDS"

	// ErrCodeBadOptions indicates invalid sample count or time-grid options.
	ErrCodeBadOptions SimErrorCode = "BAD_OPTIONS"
)

// Error implements the error interface.
func (e *SimError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a SimError with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code SimErrorCode) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func newError(code SimErrorCode, model, format string, args ...any) *SimError {
	return &SimError{
		Code:    code,
		Model:   model,
		Message: fmt.Sprintf(format, args...),
	}
}
