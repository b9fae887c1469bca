// Package predict turns raw classifier scores into ranked predictions.
//
// Every function is pure and safe for concurrent use. Probabilities are
// computed in float64 from the float32 logits a model produces.
package predict

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Prediction is a class index paired with its softmax probability.
type Prediction struct {
	Index      int     `json:"index"`
	Confidence float64 `json:"confidence"`
}

// Softmax normalizes scores into a probability distribution.
// The maximum score is subtracted before exponentiation.
func Softmax(scores []float32) ([]float64, error) {
	if len(scores) == 0 {
		return nil, invalid("empty score vector")
	}

	probs := make([]float64, len(scores))
	for i, s := range scores {
		v := float64(s)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &NonFiniteError{Index: i, Value: v}
		}
		probs[i] = v
	}

	maxScore := floats.Max(probs)
	for i, v := range probs {
		probs[i] = math.Exp(v - maxScore)
	}
	floats.Scale(1/floats.Sum(probs), probs)

	return probs, nil
}

// Single returns the most probable class. On an exact tie the lowest index wins.
func Single(scores []float32) (Prediction, error) {
	probs, err := Softmax(scores)
	if err != nil {
		return Prediction{}, err
	}

	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}

	return Prediction{Index: best, Confidence: probs[best]}, nil
}

// TopK returns the k most probable classes ordered by descending probability,
// ties broken by ascending index. A k larger than the number of classes is
// clamped to that number; k <= 0 is rejected.
func TopK(scores []float32, k int) ([]Prediction, error) {
	if k <= 0 {
		return nil, invalid("k must be positive, got %d", k)
	}

	probs, err := Softmax(scores)
	if err != nil {
		return nil, err
	}

	ranked := make([]Prediction, len(probs))
	for i, p := range probs {
		ranked[i] = Prediction{Index: i, Confidence: p}
	}
	slices.SortFunc(ranked, func(a, b Prediction) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	k = min(k, len(ranked))
	return ranked[:k:k], nil
}

// Flatten extracts the score vector of a single input from a model output of
// shape [N] or [1, N].
func Flatten(data []float32, shape []int64) ([]float32, error) {
	var n int64
	switch len(shape) {
	case 1:
		n = shape[0]
	case 2:
		if shape[0] != 1 {
			return nil, invalid("expected batch of 1, got %d", shape[0])
		}
		n = shape[1]
	default:
		return nil, invalid("expected output rank 1 or 2, got %d", len(shape))
	}

	if n <= 0 {
		return nil, invalid("empty score vector")
	}
	if int64(len(data)) < n {
		return nil, invalid("output has %d values, shape needs %d", len(data), n)
	}

	return data[:n:n], nil
}
