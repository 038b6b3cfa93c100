package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Host:               "127.0.0.1",
		Port:               "8080",
		RequestTimeout:     5 * time.Second,
		ImageFetchTimeout:  time.Second,
		MaxRequestBodySize: 1 << 20,
		MaxUploadFiles:     5,
		SessionTTL:         time.Hour,
		ModelPath:          filepath.Join(t.TempDir(), "missing.onnx"),
		ModelBackend:       config.BackendONNX,
		ReportPrefix:       "identification_report",
		ReportArchive:      config.ArchiveNone,
		LogLevel:           "error",
	}
}

func TestNewContainer_MissingModel(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer c.Close()

	err = c.LoadModel()
	assert.ErrorIs(t, err, classifier.ErrInferenceUnavailable)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	bot, err := c.TelegramBot()
	assert.NoError(t, err)
	assert.Nil(t, bot)
	assert.NotNil(t, c.Sessions())
	assert.NotNil(t, c.Metrics())
}

func TestNewContainer_LocalArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReportArchive = config.ArchiveLocal
	cfg.ReportDir = filepath.Join(t.TempDir(), "reports")

	c, err := NewContainer(context.Background(), cfg)
	require.NoError(t, err)
	assert.Same(t, cfg, c.Config())
	assert.DirExists(t, cfg.ReportDir)
}

func TestNewContainer_Errors(t *testing.T) {
	_, err := NewContainer(context.Background(), nil)
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.ModelBackend = "tflite"
	_, err = NewContainer(context.Background(), cfg)
	assert.Error(t, err)
}
