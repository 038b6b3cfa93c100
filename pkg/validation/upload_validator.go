package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "go-produce-inspector/internal/errors"
)

// DefaultExtensions are the upload types the preparer can decode.
var DefaultExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".gif", ".tif", ".tiff"}

// UploadValidator checks uploaded files before they are decoded
type UploadValidator struct {
	maxFiles     int
	maxFileBytes int64
	extensions   map[string]struct{}
}

// NewUploadValidator creates a validator; zero limits disable the check
func NewUploadValidator(maxFiles int, maxFileBytes int64) *UploadValidator {
	ext := make(map[string]struct{}, len(DefaultExtensions))
	for _, e := range DefaultExtensions {
		ext[e] = struct{}{}
	}
	return &UploadValidator{
		maxFiles:     maxFiles,
		maxFileBytes: maxFileBytes,
		extensions:   ext,
	}
}

// ValidateCount rejects requests with too many files. Zero files is not an
// error here; the service reports it as a notice.
func (v *UploadValidator) ValidateCount(n int) error {
	if v.maxFiles > 0 && n > v.maxFiles {
		return apperrors.NewValidationError(fmt.Sprintf("Too many files (max %d)", v.maxFiles), nil)
	}
	return nil
}

// ValidateFile checks the name, size and sniffed content type of one file.
// Camera captures often arrive without an extension, so a missing
// extension falls back to content sniffing alone.
func (v *UploadValidator) ValidateFile(name string, data []byte) error {
	if v.maxFileBytes > 0 && int64(len(data)) > v.maxFileBytes {
		return apperrors.NewValidationError(fmt.Sprintf("%s exceeds %d bytes", name, v.maxFileBytes), nil)
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if _, ok := v.extensions[ext]; !ok {
			return apperrors.NewValidationError(fmt.Sprintf("%s: unsupported file type %s", name, ext), nil)
		}
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return apperrors.NewDecodeError(fmt.Sprintf("%s is not an image (%s)", name, mt.String()), nil)
	}
	return nil
}
