package model

import "errors"

var (
	// ErrNotLoaded is returned by Forward before any checkpoint has loaded.
	ErrNotLoaded = errors.New("model not loaded")
	// ErrLoad marks checkpoint load failures.
	ErrLoad = errors.New("model load failed")
	// ErrInference marks forward pass failures.
	ErrInference = errors.New("inference failed")
	// ErrInputShape is returned when an input does not match the model's input tensor.
	ErrInputShape = errors.New("input does not match model shape")
)

// LoadError wraps a checkpoint load failure with its source.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return "failed to load model from " + e.Source + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}
