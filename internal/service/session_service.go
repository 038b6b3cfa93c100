package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "go-produce-inspector/internal/errors"
	"go-produce-inspector/internal/logger"
	"go-produce-inspector/internal/report"
	"go-produce-inspector/internal/repository"
	"go-produce-inspector/internal/storage"
	"go-produce-inspector/pkg/models"
)

// SessionService keeps the latest batch of every session and exports it
type SessionService struct {
	inspector InspectionService
	sessions  repository.SessionRepository
	reports   *report.Builder
	archive   storage.ReportArchive
}

// NewSessionService wires the session layer; archive may be nil
func NewSessionService(
	inspector InspectionService,
	sessions repository.SessionRepository,
	reports *report.Builder,
	archive storage.ReportArchive,
) *SessionService {
	return &SessionService{
		inspector: inspector,
		sessions:  sessions,
		reports:   reports,
		archive:   archive,
	}
}

// Inspector exposes the underlying inspection service
func (s *SessionService) Inspector() InspectionService {
	return s.inspector
}

// Run classifies uploads and makes the result the session's batch
func (s *SessionService) Run(ctx context.Context, sessionID string, uploads []Upload) (*models.Batch, error) {
	batch, err := s.inspector.ClassifyBatch(ctx, uploads)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Replace(ctx, sessionID, batch); err != nil {
		return nil, apperrors.NewInternalError("failed to store batch", err)
	}
	return batch, nil
}

// RunURLs is Run for remote images
func (s *SessionService) RunURLs(ctx context.Context, sessionID string, urls []string) (*models.Batch, error) {
	batch, err := s.inspector.ClassifyURLs(ctx, urls)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Replace(ctx, sessionID, batch); err != nil {
		return nil, apperrors.NewInternalError("failed to store batch", err)
	}
	return batch, nil
}

// Add classifies one image and appends it to the session's open batch.
// A per-image failure is recorded in the batch and also returned.
func (s *SessionService) Add(ctx context.Context, sessionID string, upload Upload) (*models.ClassificationResult, *models.Batch, error) {
	result, err := s.inspector.ClassifyOne(ctx, upload)

	var (
		results  []models.ClassificationResult
		failures []models.ItemFailure
	)
	switch {
	case err == nil:
		results = []models.ClassificationResult{*result}
	case fatal(err):
		return nil, nil, err
	default:
		failures = []models.ItemFailure{{Source: upload.Name, Kind: failureKind(err), Message: failureMessage(err)}}
	}

	batch, appendErr := s.sessions.Append(ctx, sessionID, results, failures, newBatch)
	if appendErr != nil {
		return nil, nil, apperrors.NewInternalError("failed to store result", appendErr)
	}
	return result, batch, err
}

func newBatch() *models.Batch {
	return &models.Batch{ID: uuid.NewString(), CreatedAt: time.Now()}
}

// Current returns the session's batch
func (s *SessionService) Current(ctx context.Context, sessionID string) (*models.Batch, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrInvalidSessionID) {
			return nil, apperrors.NewNotFoundError("No results yet", err)
		}
		return nil, apperrors.NewInternalError("failed to load session", err)
	}
	if sess.Batch == nil {
		return nil, apperrors.NewNotFoundError("No results yet", repository.ErrSessionNotFound)
	}
	return sess.Batch, nil
}

// Reset drops the session's batch
func (s *SessionService) Reset(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

// Export renders the session's batch as CSV and archives a copy when an
// archive is configured. Archive failures are logged, not returned.
func (s *SessionService) Export(ctx context.Context, sessionID string) (*report.Report, error) {
	batch, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	r, err := s.reports.Build(batch)
	if err != nil {
		if errors.Is(err, report.ErrNothingToExport) {
			return nil, apperrors.NewNotFoundError("No classified images to export", err)
		}
		return nil, apperrors.NewInternalError("failed to build report", err)
	}

	log := logger.ForBatch(batch.ID).WithFields(logrus.Fields{
		"report": r.Name,
		"rows":   len(r.Rows),
	})
	if s.archive != nil {
		where, err := s.archive.Store(ctx, r.Name, r.Data)
		if err != nil {
			log.WithError(err).Warn("Report archive failed")
		} else {
			log = log.WithField("archived_to", where)
		}
	}
	log.Info("Report exported")

	return r, nil
}

// Prune forgets sessions idle for longer than ttl
func (s *SessionService) Prune(ctx context.Context, ttl time.Duration) int {
	n := s.sessions.Prune(ctx, time.Now().Add(-ttl))
	if n > 0 {
		logger.WithField("sessions", n).Debug("Pruned idle sessions")
	}
	return n
}
