package repository

import (
	"context"
	"time"

	"go-produce-inspector/pkg/models"
)

// Session is the result holder for one browser cookie or one chat.
type Session struct {
	ID        string        `json:"id"`
	Batch     *models.Batch `json:"batch"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SessionRepository defines the interface for session state
type SessionRepository interface {
	// Get returns the session or ErrSessionNotFound
	Get(ctx context.Context, id string) (*Session, error)

	// Replace stores batch as the session's current batch
	Replace(ctx context.Context, id string, batch *models.Batch) error

	// Append adds results and failures to the current batch, starting one
	// with newBatch if the session has none
	Append(ctx context.Context, id string, results []models.ClassificationResult, failures []models.ItemFailure, newBatch func() *models.Batch) (*models.Batch, error)

	// Delete forgets the session
	Delete(ctx context.Context, id string) error

	// Prune drops sessions not updated since cutoff and returns how many
	Prune(ctx context.Context, cutoff time.Time) int
}
