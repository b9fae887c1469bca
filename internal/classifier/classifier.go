// Package classifier runs the full photo -> ranked food prediction flow.
package classifier

import (
	"context"
	"fmt"
	"image"

	"github.com/foodvision/food-vision/internal/labels"
	"github.com/foodvision/food-vision/internal/metrics"
	"github.com/foodvision/food-vision/internal/model"
	"github.com/foodvision/food-vision/internal/predict"
	"github.com/foodvision/food-vision/internal/preprocess"
)

// Forwarder runs a preprocessed input through the current model.
type Forwarder interface {
	Forward(ctx context.Context, input []float32) ([]float32, error)
}

// Ranked is one labelled entry of a prediction.
type Ranked struct {
	Index      int     `json:"index"`
	Label      string  `json:"label"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Result is the best class plus the top-k breakdown.
type Result struct {
	Ranked
	TopK []Ranked `json:"top_k"`
}

// Metric kinds.
const (
	KindImage  = "image"
	KindTensor = "tensor"
	KindScores = "scores"
)

// Classifier combines preprocessing, the model and the postprocessor.
type Classifier struct {
	models       Forwarder
	metadata     model.Metadata
	labels       *labels.Table
	preprocessor *preprocess.Preprocessor
	topK         int
}

// New creates a classifier. topK is used when callers pass k == 0.
func New(models Forwarder, metadata model.Metadata, table *labels.Table, topK int) *Classifier {
	return &Classifier{
		models:       models,
		metadata:     metadata,
		labels:       table,
		preprocessor: preprocess.New(metadata),
		topK:         topK,
	}
}

// Classify preprocesses img and classifies it.
func (c *Classifier) Classify(ctx context.Context, img image.Image, k int) (*Result, error) {
	result, err := c.forward(ctx, c.preprocessor.Tensor(img), k)
	metrics.Predictions.WithLabelValues(KindImage, metrics.Outcome(err)).Inc()
	return result, err
}

// ClassifyTensor classifies an already preprocessed input.
func (c *Classifier) ClassifyTensor(ctx context.Context, input []float32, k int) (*Result, error) {
	result, err := c.classifyTensor(ctx, input, k)
	metrics.Predictions.WithLabelValues(KindTensor, metrics.Outcome(err)).Inc()
	return result, err
}

func (c *Classifier) classifyTensor(ctx context.Context, input []float32, k int) (*Result, error) {
	if expected := c.metadata.InputSize(); len(input) != expected {
		return nil, fmt.Errorf("%w: expected %d values, got %d", model.ErrInputShape, expected, len(input))
	}
	return c.forward(ctx, input, k)
}

// ClassifyScores ranks raw logits without running the model.
func (c *Classifier) ClassifyScores(scores []float32, k int) (*Result, error) {
	result, err := c.rank(scores, k)
	metrics.Predictions.WithLabelValues(KindScores, metrics.Outcome(err)).Inc()
	return result, err
}

func (c *Classifier) forward(ctx context.Context, input []float32, k int) (*Result, error) {
	output, err := c.models.Forward(ctx, input)
	if err != nil {
		return nil, err
	}

	scores, err := predict.Flatten(output, c.metadata.OutputShape)
	if err != nil {
		return nil, err
	}
	return c.rank(scores, k)
}

func (c *Classifier) rank(scores []float32, k int) (*Result, error) {
	if k == 0 {
		k = c.topK
	}

	best, err := predict.Single(scores)
	if err != nil {
		return nil, err
	}
	top, err := predict.TopK(scores, k)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Ranked: c.label(best),
		TopK:   make([]Ranked, len(top)),
	}
	for i, p := range top {
		result.TopK[i] = c.label(p)
	}

	metrics.TopConfidence.Observe(best.Confidence)
	return result, nil
}

func (c *Classifier) label(p predict.Prediction) Ranked {
	return Ranked{
		Index:      p.Index,
		Label:      c.labels.Name(p.Index),
		Class:      c.labels.Display(p.Index),
		Confidence: p.Confidence,
	}
}
