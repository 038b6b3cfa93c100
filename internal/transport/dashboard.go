package transport

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-produce-inspector/internal/classifier"
	apperrors "go-produce-inspector/internal/errors"
	"go-produce-inspector/internal/report"
	"go-produce-inspector/internal/service"
	"go-produce-inspector/pkg/models"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"percent": report.FormatPercent,
		"share": func(v float64) string {
			return report.FormatPercent(v / 100)
		},
		"damaged": func(l classifier.Label) bool { return l == classifier.Damaged },
		// Thumbnails are generated server-side as PNG data URIs.
		"thumb": func(s string) template.URL {
			if !strings.HasPrefix(s, "data:image/png;base64,") {
				return ""
			}
			return template.URL(s)
		},
	}).ParseFS(templateFS, "templates/*.html")
}

type dashboardView struct {
	Batch      *models.Batch
	Statistics models.Statistics
	Notice     string
	Error      string
	MaxFiles   int
}

func (h *handler) view(batch *models.Batch) dashboardView {
	return dashboardView{
		Batch:      batch,
		Statistics: report.ForBatch(batch),
		MaxFiles:   h.cfg.MaxUploadFiles,
	}
}

func (h *handler) dashboard(c *gin.Context) {
	batch, err := h.sessions.Current(c.Request.Context(), sessionID(c))
	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		v := h.view(nil)
		v.Error = userMessage(err)
		c.HTML(determineStatusCode(err), "dashboard.html", v)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", h.view(batch))
}

func (h *handler) dashboardUpload(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	uploads, err := readUploads(c)
	var batch *models.Batch
	if err == nil {
		batch, err = h.sessions.Run(ctx, sessionID(c), uploads)
	}
	if err == nil {
		c.HTML(http.StatusOK, "dashboard.html", h.view(batch))
		return
	}

	// Keep showing the previous batch next to the message.
	previous, _ := h.sessions.Current(c.Request.Context(), sessionID(c))
	v := h.view(previous)
	if errors.Is(err, service.ErrEmptyUpload) {
		v.Notice = "Select at least one image to classify."
		c.HTML(http.StatusOK, "dashboard.html", v)
		return
	}
	v.Error = userMessage(err)
	c.HTML(determineStatusCode(err), "dashboard.html", v)
}
