package container

import (
	"context"
	"fmt"
	"net/http"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/config"
	"go-produce-inspector/internal/factory"
	"go-produce-inspector/internal/logger"
	"go-produce-inspector/internal/model"
	"go-produce-inspector/internal/observer"
	"go-produce-inspector/internal/report"
	"go-produce-inspector/internal/repository"
	"go-produce-inspector/internal/service"
	"go-produce-inspector/internal/storage"
	"go-produce-inspector/internal/telegram"
	"go-produce-inspector/internal/transport"
	"go-produce-inspector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config    *config.Config
	loader    *model.Loader
	fetcher   *storage.HTTPImageFetcher
	publisher *observer.EventPublisher
	metrics   *observer.MetricsObserver
	sessions  *service.SessionService
	handler   http.Handler
}

// NewContainer creates a new dependency injection container. The model is
// not loaded here; call LoadModel or let the first request do it.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	return newContainer(ctx, cfg, factory.NewComponentFactory())
}

func newContainer(ctx context.Context, cfg *config.Config, components *factory.ComponentFactory) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger.SetLevel(cfg.LogLevel)

	loader, err := components.ModelFactory.CreateLoader(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create model loader: %w", err)
	}
	archive, err := components.ArchiveFactory.CreateArchive(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create report archive: %w", err)
	}

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	fetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout)
	inspector := service.NewInspectionService(classifier.New(loader), service.Options{
		Uploads:   validation.NewUploadValidator(cfg.MaxUploadFiles, cfg.MaxRequestBodySize),
		URLs:      validation.NewURLValidator(cfg.MaxUploadFiles),
		Fetcher:   fetcher,
		Publisher: publisher,
	})
	sessions := service.NewSessionService(
		inspector,
		repository.NewMemorySessionRepository(),
		report.NewBuilder(cfg.ReportPrefix),
		archive,
	)

	c := &Container{
		config:    cfg,
		loader:    loader,
		fetcher:   fetcher,
		publisher: publisher,
		metrics:   metrics,
		sessions:  sessions,
	}

	handler, err := transport.NewHandler(transport.Dependencies{
		Config:   cfg,
		Sessions: sessions,
		Metrics:  metrics,
		Status:   c.modelStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build handler: %w", err)
	}
	c.handler = handler

	return c, nil
}

func (c *Container) modelStatus() (bool, string) {
	_, err := c.loader.Get()
	return err == nil, c.config.ModelBackend
}

// LoadModel forces the model load and reports its error
func (c *Container) LoadModel() error {
	_, err := c.loader.Get()
	return err
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Sessions returns the session service shared by every front end
func (c *Container) Sessions() *service.SessionService {
	return c.sessions
}

// Metrics returns the in-process counters
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// TelegramBot creates the chat front end; it returns nil when no token is set
func (c *Container) TelegramBot() (*telegram.Bot, error) {
	if !c.config.TelegramEnabled() {
		return nil, nil
	}
	return telegram.NewBot(c.config.TelegramToken, c.sessions, c.fetcher)
}

// Close waits for pending events and releases the model
func (c *Container) Close() error {
	c.publisher.Wait()
	return c.loader.Close()
}
