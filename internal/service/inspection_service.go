package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-produce-inspector/internal/classifier"
	apperrors "go-produce-inspector/internal/errors"
	"go-produce-inspector/internal/logger"
	"go-produce-inspector/internal/observer"
	"go-produce-inspector/internal/preprocess"
	"go-produce-inspector/internal/storage"
	"go-produce-inspector/pkg/models"
	"go-produce-inspector/pkg/validation"
)

// ErrEmptyUpload is wrapped by the error returned for a batch with no images.
var ErrEmptyUpload = errors.New("no images uploaded")

// Upload is one raw image as received from a client.
type Upload struct {
	Name string
	Data []byte
}

// InspectionService classifies images in the order they were submitted
type InspectionService interface {
	// ClassifyOne runs a single image through prepare, classify and thumbnail
	ClassifyOne(ctx context.Context, upload Upload) (*models.ClassificationResult, error)

	// ClassifyBatch processes uploads serially; per-image failures are
	// reported in Batch.Failures instead of aborting the batch
	ClassifyBatch(ctx context.Context, uploads []Upload) (*models.Batch, error)

	// ClassifyURLs downloads each URL and classifies it like an upload
	ClassifyURLs(ctx context.Context, urls []string) (*models.Batch, error)
}

// Options carries the optional collaborators of the inspection service.
type Options struct {
	Uploads   *validation.UploadValidator
	URLs      *validation.URLValidator
	Fetcher   storage.ImageFetcher
	Publisher observer.Subject

	// FetchWorkers bounds concurrent URL downloads
	FetchWorkers int
}

// DefaultFetchWorkers is used when Options.FetchWorkers is not set.
const DefaultFetchWorkers = 4

type inspectionService struct {
	classifier *classifier.Classifier
	opts       Options
	now        func() time.Time
}

// NewInspectionService creates a new inspection service
func NewInspectionService(c *classifier.Classifier, opts Options) InspectionService {
	return &inspectionService{
		classifier: c,
		opts:       opts,
		now:        time.Now,
	}
}

func (s *inspectionService) ClassifyOne(ctx context.Context, upload Upload) (*models.ClassificationResult, error) {
	start := time.Now()

	if s.opts.Uploads != nil {
		if err := s.opts.Uploads.ValidateFile(upload.Name, upload.Data); err != nil {
			return nil, err
		}
	}

	prepared, err := preprocess.Prepare(upload.Data)
	if err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("%s could not be decoded", upload.Name), err)
	}

	prediction, err := s.classifier.Classify(ctx, prepared.Tensor)
	if err != nil {
		return nil, classifyError(ctx, err)
	}

	thumb, err := preprocess.ThumbnailDataURI(prepared.Original)
	if err != nil {
		logger.WithError(err).WithField("file", upload.Name).Warn("Thumbnail encoding failed")
	}

	bounds := prepared.Original.Bounds()
	return &models.ClassificationResult{
		Source:           upload.Name,
		Label:            prediction.Label,
		Confidence:       prediction.Confidence,
		ProbHealthy:      prediction.ProbHealthy,
		ProbDamaged:      prediction.ProbDamaged,
		OutputKind:       prediction.Kind,
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Thumbnail:        thumb,
	}, nil
}

func classifyError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, classifier.ErrInferenceUnavailable):
		return apperrors.NewInferenceUnavailableError("model is not loaded", err)
	case errors.Is(err, classifier.ErrShape):
		return apperrors.NewShapeError("model output is not a 1-unit sigmoid or 2-unit softmax", err)
	case ctx.Err() != nil:
		return apperrors.NewTimeoutError("classification cancelled", ctx.Err())
	default:
		return apperrors.NewProcessingError("inference failed", err)
	}
}

// fatal errors stop the whole batch because every later item would fail
// the same way.
func fatal(err error) bool {
	return apperrors.IsType(err, apperrors.ErrorTypeInferenceUnavailable) ||
		apperrors.IsType(err, apperrors.ErrorTypeShape) ||
		apperrors.IsType(err, apperrors.ErrorTypeTimeout)
}

// item is one unit of work whose bytes may still need fetching.
type item struct {
	name string
	load func(ctx context.Context) (Upload, error)
}

func (s *inspectionService) ClassifyBatch(ctx context.Context, uploads []Upload) (*models.Batch, error) {
	if len(uploads) == 0 {
		return nil, apperrors.NewValidationError("No images uploaded", ErrEmptyUpload)
	}
	if s.opts.Uploads != nil {
		if err := s.opts.Uploads.ValidateCount(len(uploads)); err != nil {
			return nil, err
		}
	}

	items := make([]item, len(uploads))
	for i, u := range uploads {
		u := u
		items[i] = item{name: u.Name, load: func(context.Context) (Upload, error) { return u, nil }}
	}
	return s.run(ctx, items)
}

func (s *inspectionService) ClassifyURLs(ctx context.Context, urls []string) (*models.Batch, error) {
	if len(urls) == 0 {
		return nil, apperrors.NewValidationError("No images uploaded", ErrEmptyUpload)
	}
	if s.opts.Fetcher == nil {
		return nil, apperrors.NewInternalError("URL classification is not configured", nil)
	}
	if s.opts.URLs != nil {
		if err := s.opts.URLs.ValidateURLs(urls); err != nil {
			return nil, err
		}
	}

	fetched := s.prefetch(ctx, urls)

	items := make([]item, len(urls))
	for i, u := range urls {
		f := fetched[i]
		items[i] = item{name: u, load: func(context.Context) (Upload, error) {
			if f.err != nil {
				return Upload{}, apperrors.NewNetworkError("failed to fetch image", f.err)
			}
			return Upload{Name: f.img.Name, Data: f.img.Data}, nil
		}}
	}
	return s.run(ctx, items)
}

type fetchResult struct {
	img *storage.RemoteImage
	err error
}

// prefetch downloads every URL on a bounded pool. Results keep the input
// order; classification itself stays serial.
func (s *inspectionService) prefetch(ctx context.Context, urls []string) []fetchResult {
	workers := s.opts.FetchWorkers
	if workers <= 0 {
		workers = DefaultFetchWorkers
	}
	pool := NewWorkerPool(min(workers, len(urls)))
	pool.Start()
	defer pool.Close()

	results := make([]fetchResult, len(urls))
	for i, u := range urls {
		i, u := i, u
		pool.Submit(func() {
			img, err := s.opts.Fetcher.FetchImage(ctx, u)
			results[i] = fetchResult{img: img, err: err}
		})
	}
	pool.Wait()
	return results
}

func (s *inspectionService) run(ctx context.Context, items []item) (*models.Batch, error) {
	batch := &models.Batch{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		Results:   make([]models.ClassificationResult, 0, len(items)),
	}
	log := logger.ForBatch(batch.ID)
	start := time.Now()

	log.WithField("items", len(items)).Info("Classifying batch")
	s.notify(ctx, observer.InspectionEvent{EventType: observer.BatchStarted, BatchID: batch.ID, Success: true,
		Metadata: map[string]interface{}{"items": len(items)}})

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewTimeoutError("batch cancelled", err)
		}

		itemStart := time.Now()
		result, err := s.classifyItem(ctx, it)
		if err != nil {
			if fatal(err) {
				log.WithError(err).WithField("file", it.name).Error("Batch aborted")
				return nil, err
			}
			failure := models.ItemFailure{Source: it.name, Kind: failureKind(err), Message: failureMessage(err)}
			batch.Failures = append(batch.Failures, failure)
			s.notify(ctx, observer.InspectionEvent{
				EventType:      observer.ItemFailed,
				BatchID:        batch.ID,
				Source:         it.name,
				Label:          classifier.Unavailable,
				ProcessingTime: time.Since(itemStart),
				ErrorMessage:   err.Error(),
			})
			continue
		}

		batch.Results = append(batch.Results, *result)
		s.notify(ctx, observer.InspectionEvent{
			EventType:      observer.ItemClassified,
			BatchID:        batch.ID,
			Source:         result.Source,
			Label:          result.Label,
			Confidence:     result.Confidence,
			ProcessingTime: time.Since(itemStart),
			Success:        true,
		})
	}

	log.WithFields(logrus.Fields{
		"classified":         len(batch.Results),
		"failed":             len(batch.Failures),
		"processing_time_ms": time.Since(start).Milliseconds(),
	}).Info("Batch classified")
	s.notify(ctx, observer.InspectionEvent{
		EventType:      observer.BatchCompleted,
		BatchID:        batch.ID,
		ProcessingTime: time.Since(start),
		Success:        len(batch.Failures) == 0,
	})

	return batch, nil
}

func (s *inspectionService) classifyItem(ctx context.Context, it item) (*models.ClassificationResult, error) {
	upload, err := it.load(ctx)
	if err != nil {
		return nil, err
	}
	if upload.Name == "" {
		upload.Name = it.name
	}
	return s.ClassifyOne(ctx, upload)
}

func (s *inspectionService) notify(ctx context.Context, event observer.InspectionEvent) {
	if s.opts.Publisher != nil {
		s.opts.Publisher.NotifyObservers(ctx, event)
	}
}

func failureKind(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return string(apperrors.ErrorTypeProcessing)
}

func failureMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
