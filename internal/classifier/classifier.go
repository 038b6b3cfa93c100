// Package classifier maps raw model output to a Healthy/Damaged label and a
// confidence score.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"go-produce-inspector/internal/preprocess"
)

var (
	// ErrInferenceUnavailable means the model never loaded.
	ErrInferenceUnavailable = errors.New("inference unavailable")
	// ErrShape means the model produced an output the adapter cannot read.
	ErrShape = errors.New("unsupported model output shape")
)

// sigmoidThreshold splits Damaged from Healthy; a score equal to it is Healthy.
const sigmoidThreshold = 0.5

// OutputKind records how the raw output was interpreted.
type OutputKind string

const (
	OutputSigmoid OutputKind = "sigmoid"
	OutputSoftmax OutputKind = "softmax"
)

// Model is a loaded classifier that returns its raw output vector for one
// prepared image.
type Model interface {
	Predict(ctx context.Context, tensor *preprocess.Tensor) ([]float32, error)
	Close() error
}

// Provider hands out the shared model, loading it on first use.
type Provider interface {
	Get() (Model, error)
}

// Prediction is the interpreted model output.
type Prediction struct {
	Label       Label      `json:"label"`
	Confidence  float64    `json:"confidence"`
	ProbHealthy float64    `json:"prob_healthy"`
	ProbDamaged float64    `json:"prob_damaged"`
	Kind        OutputKind `json:"output_kind"`
}

// Decide interprets a raw output vector. A single value is a sigmoid score
// for Damaged; two values are a softmax over {Healthy, Damaged}.
func Decide(output []float32) (Prediction, error) {
	values := make([]float64, len(output))
	for i, v := range output {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Prediction{Label: Unavailable}, fmt.Errorf("%w: non-finite value at index %d", ErrShape, i)
		}
		values[i] = f
	}

	switch len(values) {
	case 1:
		score := values[0]
		if score < 0 || score > 1 {
			return Prediction{Label: Unavailable}, fmt.Errorf("%w: sigmoid score %v outside [0,1]", ErrShape, score)
		}
		p := Prediction{
			Kind:        OutputSigmoid,
			ProbHealthy: 1 - score,
			ProbDamaged: score,
		}
		if score > sigmoidThreshold {
			p.Label, p.Confidence = Damaged, score
		} else {
			p.Label, p.Confidence = Healthy, 1-score
		}
		return p, nil

	case len(classOrder):
		// MaxIdx returns the first index on ties, so equal probabilities are Healthy.
		idx := floats.MaxIdx(values)
		return Prediction{
			Label:       classOrder[idx],
			Confidence:  values[idx],
			ProbHealthy: values[0],
			ProbDamaged: values[1],
			Kind:        OutputSoftmax,
		}, nil

	default:
		return Prediction{Label: Unavailable}, fmt.Errorf("%w: got %d values, want 1 or 2", ErrShape, len(values))
	}
}

// Predict runs m on tensor and returns the label and confidence. A nil model
// yields the Unavailable sentinel with zero confidence instead of an error,
// and so does any inference failure; callers must check for the sentinel.
func Predict(ctx context.Context, m Model, tensor *preprocess.Tensor) (Label, float64) {
	if m == nil {
		return Unavailable, 0
	}
	out, err := m.Predict(ctx, tensor)
	if err != nil {
		return Unavailable, 0
	}
	p, err := Decide(out)
	if err != nil {
		return Unavailable, 0
	}
	return p.Label, p.Confidence
}

// Classifier couples a model provider with the decision policy.
type Classifier struct {
	provider Provider
}

// New creates a classifier backed by provider.
func New(provider Provider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify runs inference and interprets the result. When the model is not
// available the returned Prediction carries the Unavailable sentinel along
// with an error wrapping ErrInferenceUnavailable.
func (c *Classifier) Classify(ctx context.Context, tensor *preprocess.Tensor) (Prediction, error) {
	unavailable := Prediction{Label: Unavailable}

	if c == nil || c.provider == nil {
		return unavailable, ErrInferenceUnavailable
	}
	m, err := c.provider.Get()
	if err != nil {
		if errors.Is(err, ErrInferenceUnavailable) {
			return unavailable, err
		}
		return unavailable, fmt.Errorf("%w: %v", ErrInferenceUnavailable, err)
	}
	if m == nil {
		return unavailable, ErrInferenceUnavailable
	}

	if err := tensor.Validate(); err != nil {
		return unavailable, fmt.Errorf("invalid input tensor: %w", err)
	}

	out, err := m.Predict(ctx, tensor)
	if err != nil {
		return unavailable, fmt.Errorf("model predict: %w", err)
	}
	p, err := Decide(out)
	if err != nil {
		return unavailable, err
	}
	return p, nil
}

// Static wraps an already-loaded model as a Provider.
func Static(m Model) Provider {
	return staticProvider{m: m}
}

type staticProvider struct{ m Model }

func (s staticProvider) Get() (Model, error) {
	if s.m == nil {
		return nil, ErrInferenceUnavailable
	}
	return s.m, nil
}
