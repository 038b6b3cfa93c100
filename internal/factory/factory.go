// Package factory builds the pluggable backends selected by configuration.
package factory

import (
	"context"
	"fmt"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/config"
	"go-produce-inspector/internal/model"
	"go-produce-inspector/internal/storage"
)

// ModelFactory creates the loader for the configured inference backend
type ModelFactory interface {
	CreateLoader(cfg *config.Config) (*model.Loader, error)
}

// ArchiveFactory creates the report archive; a nil archive means exports
// are not kept
type ArchiveFactory interface {
	CreateArchive(ctx context.Context, cfg *config.Config) (storage.ReportArchive, error)
}

// modelFactory implements ModelFactory
type modelFactory struct{}

// NewModelFactory creates a new model factory
func NewModelFactory() ModelFactory {
	return &modelFactory{}
}

// CreateLoader returns a lazy loader. The model file is not touched until
// the first Get.
func (f *modelFactory) CreateLoader(cfg *config.Config) (*model.Loader, error) {
	switch cfg.ModelBackend {
	case config.BackendONNX:
		return model.NewLoader(config.BackendONNX, func() (classifier.Model, error) {
			return model.NewONNXModel(model.ONNXConfig{
				ModelPath:   cfg.ModelPath,
				LibraryPath: cfg.ONNXRuntimeLib,
			})
		}), nil
	case config.BackendOpenCV:
		if !model.GoCVAvailable() {
			return nil, fmt.Errorf("backend %q requires a build with -tags gocv", cfg.ModelBackend)
		}
		return model.NewLoader(config.BackendOpenCV, func() (classifier.Model, error) {
			return model.NewGoCVModel(cfg.ModelPath)
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model backend: %s", cfg.ModelBackend)
	}
}

// archiveFactory implements ArchiveFactory
type archiveFactory struct{}

// NewArchiveFactory creates a new archive factory
func NewArchiveFactory() ArchiveFactory {
	return &archiveFactory{}
}

// CreateArchive creates the archive named by REPORT_ARCHIVE
func (f *archiveFactory) CreateArchive(ctx context.Context, cfg *config.Config) (storage.ReportArchive, error) {
	switch cfg.ReportArchive {
	case config.ArchiveNone, "":
		return nil, nil
	case config.ArchiveLocal:
		a, err := storage.NewLocalArchive(cfg.ReportDir)
		if err != nil {
			return nil, err
		}
		return a, nil
	case config.ArchiveAzure:
		a, err := storage.NewAzureArchive(cfg.AzureAccount, cfg.AzureKey, cfg.AzureContainer)
		if err != nil {
			return nil, err
		}
		if err := a.EnsureContainer(ctx); err != nil {
			return nil, fmt.Errorf("azure container %s: %w", cfg.AzureContainer, err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported report archive: %s", cfg.ReportArchive)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	ModelFactory   ModelFactory
	ArchiveFactory ArchiveFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{
		ModelFactory:   NewModelFactory(),
		ArchiveFactory: NewArchiveFactory(),
	}
}
