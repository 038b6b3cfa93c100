package models

import (
	"time"

	"go-produce-inspector/internal/classifier"
)

// ClassificationResult is the outcome for one image. It is created once and
// never modified.
type ClassificationResult struct {
	Source           string                `json:"source"`
	Label            classifier.Label      `json:"label"`
	Confidence       float64               `json:"confidence"`
	ProbHealthy      float64               `json:"prob_healthy"`
	ProbDamaged      float64               `json:"prob_damaged"`
	OutputKind       classifier.OutputKind `json:"output_kind"`
	Width            int                   `json:"width"`
	Height           int                   `json:"height"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`

	// Thumbnail is a data URI for display only; reports never include it.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// ItemFailure records an image that could not be classified.
type ItemFailure struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Batch is the set of images submitted together, in upload order.
type Batch struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Results   []ClassificationResult `json:"results"`
	Failures  []ItemFailure          `json:"failures,omitempty"`
}

// IsSingle reports whether the batch holds exactly one result.
func (b *Batch) IsSingle() bool {
	return b != nil && len(b.Results) == 1
}

// Empty reports whether nothing was classified.
func (b *Batch) Empty() bool {
	return b == nil || len(b.Results) == 0
}

// Statistics summarises a batch. Percentages are in [0,100].
type Statistics struct {
	Total             int     `json:"total"`
	HealthyCount      int     `json:"healthy_count"`
	DamagedCount      int     `json:"damaged_count"`
	HealthyPercentage float64 `json:"healthy_percentage"`
	DamagedPercentage float64 `json:"damaged_percentage"`
	FailedCount       int     `json:"failed_count"`
}
