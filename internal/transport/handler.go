package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-produce-inspector/internal/config"
	apperrors "go-produce-inspector/internal/errors"
	"go-produce-inspector/internal/logger"
	"go-produce-inspector/internal/observer"
	"go-produce-inspector/internal/service"
	"go-produce-inspector/pkg/models"
)

// ModelStatus reports whether the classifier is ready and which backend
// serves it.
type ModelStatus func() (loaded bool, backend string)

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	Config   *config.Config
	Sessions *service.SessionService
	Metrics  *observer.MetricsObserver
	Status   ModelStatus
}

type handler struct {
	cfg      *config.Config
	sessions *service.SessionService
	metrics  *observer.MetricsObserver
	status   ModelStatus
}

// NewHandler builds the gin router with every route registered
func NewHandler(deps Dependencies) (http.Handler, error) {
	h := &handler{
		cfg:      deps.Config,
		sessions: deps.Sessions,
		metrics:  deps.Metrics,
		status:   deps.Status,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/health", h.healthCheck)
	r.GET("/metrics", h.metricsSnapshot)

	web := r.Group("/", requestSizeLimiter(h.cfg.MaxRequestBodySize), sessionMiddleware(h.cfg.SessionTTL))
	web.GET("/", h.dashboard)
	web.POST("/", h.dashboardUpload)
	web.GET("/report.csv", h.downloadReport)

	api := r.Group("/api", requestSizeLimiter(h.cfg.MaxRequestBodySize), sessionMiddleware(h.cfg.SessionTTL), errorHandler())
	api.POST("/classify", h.classifyUploads)
	api.POST("/classify/url", h.classifyURLs)
	api.GET("/session", h.currentSession)
	api.DELETE("/session", h.resetSession)
	api.GET("/session/report", h.downloadReport)

	return r, nil
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
}

func (h *handler) healthCheck(c *gin.Context) {
	loaded, backend := false, ""
	if h.status != nil {
		loaded, backend = h.status()
	}

	status := "available"
	code := http.StatusOK
	if !loaded {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, models.HealthResponse{
		Status:      status,
		ModelLoaded: loaded,
		Backend:     backend,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) metricsSnapshot(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

// Middleware and helper functions

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":             c.Request.Method,
			"path":               c.Request.URL.Path,
			"status":             c.Writer.Status(),
			"ip":                 c.ClientIP(),
			"processing_time_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request rejected")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %s", message, userMessage(err)),
	})
}
