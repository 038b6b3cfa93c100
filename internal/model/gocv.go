//go:build gocv
// +build gocv

package model

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/preprocess"
)

// GoCVModel runs the classifier through the OpenCV DNN module.
// The network receives a channels-first blob built from the NHWC tensor.
type GoCVModel struct {
	mu  sync.Mutex
	net *gocv.Net
}

// NewGoCVModel reads an ONNX (or any OpenCV-readable) network from disk.
func NewGoCVModel(path string) (*GoCVModel, error) {
	net := gocv.ReadNet(path, "")
	if net.Empty() {
		_ = net.Close()
		return nil, fmt.Errorf("opencv could not read %s", path)
	}
	_ = net.SetPreferableBackend(gocv.NetBackendDefault)
	_ = net.SetPreferableTarget(gocv.NetTargetCPU)
	return &GoCVModel{net: &net}, nil
}

// Predict runs one forward pass.
func (m *GoCVModel) Predict(ctx context.Context, tensor *preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tensor.Validate(); err != nil {
		return nil, err
	}
	if len(tensor.Shape) != 4 {
		return nil, fmt.Errorf("expected 4D tensor, got %dD", len(tensor.Shape))
	}
	h, w := int(tensor.Shape[1]), int(tensor.Shape[2])

	img, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV32FC3, float32Bytes(tensor.Data))
	if err != nil {
		return nil, fmt.Errorf("mat: %w", err)
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0, image.Pt(w, h), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.net == nil {
		return nil, classifier.ErrInferenceUnavailable
	}

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, errors.New("empty network output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	if len(data) == 0 || len(data) > 2 {
		return nil, fmt.Errorf("%w: output has %d values", classifier.ErrShape, len(data))
	}
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

// Close releases the network.
func (m *GoCVModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.net == nil {
		return nil
	}
	err := m.net.Close()
	m.net = nil
	return err
}

func float32Bytes(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// GoCVAvailable reports whether the binary was built with OpenCV support.
func GoCVAvailable() bool { return true }

var _ classifier.Model = (*GoCVModel)(nil)
