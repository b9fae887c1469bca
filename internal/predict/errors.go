package predict

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every error returned from this package.
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports a malformed score vector or an invalid k.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NonFiniteError reports a NaN or Inf score that would leave the ranking undefined.
type NonFiniteError struct {
	Index int
	Value float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("invalid input: non-finite score %v at index %d", e.Value, e.Index)
}

func (e *NonFiniteError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(format string, args ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, args...)}
}
