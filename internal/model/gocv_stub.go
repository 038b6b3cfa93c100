//go:build !gocv
// +build !gocv

package model

import (
	"context"
	"errors"

	"go-produce-inspector/internal/preprocess"
)

var errNoGoCV = errors.New("gocv build tag is not enabled")

// GoCVModel is a placeholder used when the binary is built without OpenCV.
type GoCVModel struct{}

// NewGoCVModel always fails without the gocv build tag.
func NewGoCVModel(path string) (*GoCVModel, error) {
	_ = path
	return nil, errNoGoCV
}

// Predict returns an error if the build has no gocv tag.
func (m *GoCVModel) Predict(ctx context.Context, tensor *preprocess.Tensor) ([]float32, error) {
	_ = ctx
	_ = tensor
	return nil, errNoGoCV
}

// Close is a no-op.
func (m *GoCVModel) Close() error { return nil }

// GoCVAvailable reports whether the binary was built with OpenCV support.
func GoCVAvailable() bool { return false }
