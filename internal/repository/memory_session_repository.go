package repository

import (
	"context"
	"sync"
	"time"

	"go-produce-inspector/pkg/models"
)

// MemorySessionRepository keeps sessions in process memory
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty in-memory store
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Get returns a copy of the session so callers cannot mutate stored state
func (r *MemorySessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSessionID
	}

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// Replace swaps the whole batch; the previous one is discarded
func (r *MemorySessionRepository) Replace(ctx context.Context, id string, batch *models.Batch) error {
	if id == "" {
		return ErrInvalidSessionID
	}

	r.mu.Lock()
	r.sessions[id] = &Session{ID: id, Batch: batch, UpdatedAt: r.now()}
	r.mu.Unlock()

	return nil
}

// Append extends the current batch without touching slices other
// readers may hold
func (r *MemorySessionRepository) Append(ctx context.Context, id string, results []models.ClassificationResult, failures []models.ItemFailure, newBatch func() *models.Batch) (*models.Batch, error) {
	if id == "" {
		return nil, ErrInvalidSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var current *models.Batch
	if s, ok := r.sessions[id]; ok && s.Batch != nil {
		current = s.Batch
	} else {
		current = newBatch()
	}

	next := &models.Batch{
		ID:        current.ID,
		CreatedAt: current.CreatedAt,
		Results:   make([]models.ClassificationResult, 0, len(current.Results)+len(results)),
		Failures:  make([]models.ItemFailure, 0, len(current.Failures)+len(failures)),
	}
	next.Results = append(append(next.Results, current.Results...), results...)
	next.Failures = append(append(next.Failures, current.Failures...), failures...)

	r.sessions[id] = &Session{ID: id, Batch: next, UpdatedAt: r.now()}
	return next, nil
}

// Delete forgets the session; unknown ids are not an error
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// Prune removes sessions idle since before cutoff
func (r *MemorySessionRepository) Prune(ctx context.Context, cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions
func (r *MemorySessionRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

var _ SessionRepository = (*MemorySessionRepository)(nil)
