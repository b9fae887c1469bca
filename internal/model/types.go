package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Metadata describes the exported network: tensor shapes, tensor names, the
// class list and the preprocessing it was trained with.
type Metadata struct {
	InputShape  []int64   `json:"input_shape"`
	OutputShape []int64   `json:"output_shape"`
	InputName   string    `json:"input_name,omitempty"`
	OutputName  string    `json:"output_name,omitempty"`
	Classes     []string  `json:"classes,omitempty"`
	ImageSize   int       `json:"image_size"`
	Mean        []float32 `json:"mean,omitempty"`
	Std         []float32 `json:"std,omitempty"`
}

// Defaults for exports that do not name their tensors.
const (
	DefaultInputName  = "input"
	DefaultOutputName = "output"
)

// LoadMetadata reads and validates a metadata JSON file.
func LoadMetadata(path string) (Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if metadata.InputName == "" {
		metadata.InputName = DefaultInputName
	}
	if metadata.OutputName == "" {
		metadata.OutputName = DefaultOutputName
	}

	if err := metadata.Validate(); err != nil {
		return Metadata{}, err
	}
	return metadata, nil
}

// Validate checks that the shapes are fixed and consistent with the image size.
func (m Metadata) Validate() error {
	if len(m.InputShape) == 0 || len(m.OutputShape) == 0 {
		return errors.New("metadata: input_shape and output_shape are required")
	}
	for _, dim := range append(append([]int64{}, m.InputShape...), m.OutputShape...) {
		if dim <= 0 {
			return fmt.Errorf("metadata: dimensions must be positive, got %v -> %v", m.InputShape, m.OutputShape)
		}
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("metadata: invalid image_size %d", m.ImageSize)
	}
	if want := 3 * m.ImageSize * m.ImageSize; m.InputSize() != want {
		return fmt.Errorf("metadata: input_shape %v holds %d values, image_size %d needs %d",
			m.InputShape, m.InputSize(), m.ImageSize, want)
	}
	if (len(m.Mean) != 0 && len(m.Mean) != 3) || (len(m.Std) != 0 && len(m.Std) != 3) {
		return errors.New("metadata: mean and std must have 3 channels")
	}
	for _, s := range m.Std {
		if s == 0 {
			return errors.New("metadata: std must be non-zero")
		}
	}
	return nil
}

// InputSize is the number of float32 values one input tensor holds.
func (m Metadata) InputSize() int {
	return product(m.InputShape)
}

// OutputSize is the number of float32 values one output tensor holds.
func (m Metadata) OutputSize() int {
	return product(m.OutputShape)
}

func product(shape []int64) int {
	n := 1
	for _, dim := range shape {
		n *= int(dim)
	}
	return n
}
