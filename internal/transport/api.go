package transport

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "go-produce-inspector/internal/errors"
	"go-produce-inspector/internal/report"
	"go-produce-inspector/internal/service"
	"go-produce-inspector/pkg/models"
)

const uploadField = "files"

func batchResponse(b *models.Batch) models.BatchResponse {
	return models.BatchResponse{
		Batch:      b,
		Statistics: report.ForBatch(b),
		Single:     b.IsSingle(),
	}
}

// readUploads loads every file of the multipart field in form order.
func readUploads(c *gin.Context) ([]service.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.NewTooLargeError(fmt.Sprintf("Upload exceeds %d bytes", maxErr.Limit), err)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, apperrors.NewValidationError("Expected a multipart/form-data upload", err)
		}
		return nil, apperrors.NewValidationError("Could not read upload", err)
	}

	headers := form.File[uploadField]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		data, err := readFile(fh)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("Could not read %s", fh.Filename), err)
		}
		uploads = append(uploads, service.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *handler) classifyUploads(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	uploads, err := readUploads(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	batch, err := h.sessions.Run(ctx, sessionID(c), uploads)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, batchResponse(batch))
}

func (h *handler) classifyURLs(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	var req models.ClassifyURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid request format", err))
		return
	}

	batch, err := h.sessions.RunURLs(ctx, sessionID(c), req.URLs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, batchResponse(batch))
}

func (h *handler) currentSession(c *gin.Context) {
	batch, err := h.sessions.Current(c.Request.Context(), sessionID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, batchResponse(batch))
}

func (h *handler) resetSession(c *gin.Context) {
	if err := h.sessions.Reset(c.Request.Context(), sessionID(c)); err != nil {
		_ = c.Error(apperrors.NewInternalError("failed to reset session", err))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) downloadReport(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	r, err := h.sessions.Export(ctx, sessionID(c))
	if err != nil {
		respondError(c, determineStatusCode(err), "report unavailable", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, r.Name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", r.Data)
}
