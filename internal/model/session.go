package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// InitRuntime initializes the process-wide ONNX Runtime environment. An empty
// libraryPath uses the platform default shared library.
func InitRuntime(libraryPath string) error {
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// ShutdownRuntime releases the ONNX Runtime environment.
func ShutdownRuntime() {
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
}

// Session runs an ONNX network over pre-allocated tensors. Forward calls are
// serialized because the tensors are shared between runs.
type Session struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// ONNXLoader opens ONNX Runtime sessions. InitRuntime must have succeeded first.
type ONNXLoader struct{}

// LoadFile opens a session from a checkpoint on disk.
func (ONNXLoader) LoadFile(path string, metadata Metadata) (Model, error) {
	return newSession(metadata, func(in, out []ort.ArbitraryTensor) (*ort.AdvancedSession, error) {
		return ort.NewAdvancedSession(path,
			[]string{metadata.InputName}, []string{metadata.OutputName},
			in, out, nil)
	})
}

// LoadBytes opens a session from an in-memory checkpoint.
func (ONNXLoader) LoadBytes(data []byte, metadata Metadata) (Model, error) {
	return newSession(metadata, func(in, out []ort.ArbitraryTensor) (*ort.AdvancedSession, error) {
		return ort.NewAdvancedSessionWithONNXData(data,
			[]string{metadata.InputName}, []string{metadata.OutputName},
			in, out, nil)
	})
}

type sessionFactory func(inputs, outputs []ort.ArbitraryTensor) (*ort.AdvancedSession, error)

func newSession(metadata Metadata, open sessionFactory) (*Session, error) {
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := open([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor})
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// Forward runs one input through the network and returns a copy of the raw
// output tensor.
func (s *Session) Forward(inputData []float32) ([]float32, error) {
	if len(inputData) != s.metadata.InputSize() {
		return nil, fmt.Errorf("%w: expected %d values, got %d",
			ErrInputShape, s.metadata.InputSize(), len(inputData))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), inputData)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	outputData := s.outputTensor.GetData()
	out := make([]float32, len(outputData))
	copy(out, outputData)
	return out, nil
}

// Close releases the session and its tensors.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}
