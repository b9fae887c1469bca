package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/foodvision/food-vision/internal/metrics"
)

// Model is a loaded network that maps one preprocessed input to raw scores.
type Model interface {
	Forward(input []float32) ([]float32, error)
	Close()
}

// Loader opens checkpoints into runnable models.
type Loader interface {
	LoadFile(path string, metadata Metadata) (Model, error)
	LoadBytes(data []byte, metadata Metadata) (Model, error)
}

// Fetcher retrieves remote checkpoints such as s3://bucket/key.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Load sources reported in Status and metrics.
const (
	SourceFile   = "file"
	SourceObject = "object"
	SourceUpload = "upload"
)

// Status describes the currently loaded model.
type Status struct {
	Loaded   bool      `json:"loaded"`
	Source   string    `json:"source,omitempty"`
	Name     string    `json:"name,omitempty"`
	LoadedAt time.Time `json:"loaded_at,omitzero"`
}

// Manager owns the model lifecycle: it loads a checkpoint once, serves
// forward passes from it, and swaps it when a new checkpoint arrives.
type Manager struct {
	loader   Loader
	fetcher  Fetcher
	metadata Metadata
	logger   *zap.Logger

	group singleflight.Group

	mu      sync.RWMutex
	current Model
	status  Status
}

// NewManager creates a manager with no model loaded. fetcher may be nil, in
// which case object store paths fail to load.
func NewManager(loader Loader, metadata Metadata, fetcher Fetcher, logger *zap.Logger) *Manager {
	return &Manager{
		loader:   loader,
		fetcher:  fetcher,
		metadata: metadata,
		logger:   logger,
	}
}

// LoadPath loads a checkpoint from a local path or an s3:// URI and makes it
// current. Concurrent loads of the same path share one attempt.
func (m *Manager) LoadPath(ctx context.Context, path string) error {
	_, err, shared := m.group.Do(path, func() (interface{}, error) {
		source := SourceFile
		var (
			loaded Model
			err    error
		)

		if IsObjectURI(path) {
			source = SourceObject
			loaded, err = m.loadObject(ctx, path)
		} else {
			loaded, err = m.loader.LoadFile(path, m.metadata)
		}

		metrics.ModelLoads.WithLabelValues(source, metrics.Outcome(err)).Inc()
		if err != nil {
			return nil, &LoadError{Source: path, Err: err}
		}

		m.swap(loaded, source, path)
		return nil, nil
	})

	if shared {
		m.logger.Debug("Joined in-flight model load", zap.String("path", path))
	}
	return err
}

func (m *Manager) loadObject(ctx context.Context, uri string) (Model, error) {
	if m.fetcher == nil {
		return nil, fmt.Errorf("no object store configured for %s", uri)
	}
	data, err := m.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	return m.loader.LoadBytes(data, m.metadata)
}

// LoadBytes loads an uploaded checkpoint and makes it current.
func (m *Manager) LoadBytes(name string, data []byte) error {
	loaded, err := m.loader.LoadBytes(data, m.metadata)
	metrics.ModelLoads.WithLabelValues(SourceUpload, metrics.Outcome(err)).Inc()
	if err != nil {
		return &LoadError{Source: name, Err: err}
	}

	m.swap(loaded, SourceUpload, name)
	return nil
}

// swap installs next as the current model once in-flight forwards finish,
// then closes the previous one.
func (m *Manager) swap(next Model, source, name string) {
	m.mu.Lock()
	previous := m.current
	m.current = next
	m.status = Status{
		Loaded:   true,
		Source:   source,
		Name:     name,
		LoadedAt: time.Now().UTC(),
	}
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	metrics.ModelLoaded.Set(1)

	m.logger.Info("Model loaded",
		zap.String("source", source),
		zap.String("name", name),
	)
}

// Forward runs input through the current model.
func (m *Manager) Forward(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, ErrNotLoaded
	}

	start := time.Now()
	out, err := m.current.Forward(input)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	return out, err
}

// Status reports what is currently loaded.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Close unloads the current model.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Close()
		m.current = nil
	}
	m.status = Status{}
	metrics.ModelLoaded.Set(0)
}
