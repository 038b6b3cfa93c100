package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	onnxrt "github.com/yalue/onnxruntime_go"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/logger"
	"go-produce-inspector/internal/preprocess"
)

// Layout is the dimension order a model expects for its image input.
type Layout string

const (
	LayoutNHWC Layout = "NHWC"
	LayoutNCHW Layout = "NCHW"
)

// ONNXConfig controls the ONNX Runtime backend.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string
	NumThreads  int
}

// ONNXModel runs a single-input, single-output ONNX classifier.
type ONNXModel struct {
	mu      sync.Mutex
	session *onnxrt.DynamicAdvancedSession
	input   onnxrt.InputOutputInfo
	output  onnxrt.InputOutputInfo
	layout  Layout
	outLen  int
}

// NewONNXModel opens the model and checks that its output is 1 or 2 wide.
func NewONNXModel(cfg ONNXConfig) (*ONNXModel, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("empty model path")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, err
	}

	if err := initializeEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxrt.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("io info: %w", err)
	}
	in, out, layout, outLen, err := validateIO(inputs, outputs)
	if err != nil {
		return nil, err
	}

	opts, err := onnxrt.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session opts: %w", err)
	}
	defer opts.Destroy()
	if cfg.NumThreads > 0 {
		_ = opts.SetIntraOpNumThreads(cfg.NumThreads)
	}

	sess, err := onnxrt.NewDynamicAdvancedSession(cfg.ModelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	logger.WithField("input", in.String()).WithField("output", out.String()).
		Debug("ONNX session created")

	return &ONNXModel{
		session: sess,
		input:   in,
		output:  out,
		layout:  layout,
		outLen:  outLen,
	}, nil
}

// validateIO accepts one 4-D image input and one output whose last dimension
// is 1 (sigmoid) or 2 (softmax).
func validateIO(inputs, outputs []onnxrt.InputOutputInfo) (onnxrt.InputOutputInfo, onnxrt.InputOutputInfo, Layout, int, error) {
	var zero onnxrt.InputOutputInfo
	if len(inputs) != 1 || len(outputs) != 1 {
		return zero, zero, "", 0, fmt.Errorf("unexpected io (in:%d out:%d)", len(inputs), len(outputs))
	}
	in, out := inputs[0], outputs[0]

	if len(in.Dimensions) != 4 {
		return zero, zero, "", 0, fmt.Errorf("expected 4D input, got %dD", len(in.Dimensions))
	}
	layout := LayoutNHWC
	if in.Dimensions[1] == preprocess.Channels && in.Dimensions[3] != preprocess.Channels {
		layout = LayoutNCHW
	}

	if len(out.Dimensions) == 0 {
		return zero, zero, "", 0, fmt.Errorf("%w: scalar output", classifier.ErrShape)
	}
	last := out.Dimensions[len(out.Dimensions)-1]
	if last != 1 && last != 2 {
		return zero, zero, "", 0, fmt.Errorf("%w: output %v", classifier.ErrShape, out.Dimensions)
	}
	return in, out, layout, int(last), nil
}

// Predict feeds one NHWC tensor through the session.
func (m *ONNXModel) Predict(ctx context.Context, tensor *preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed := tensor
	if m.layout == LayoutNCHW {
		var err error
		if feed, err = tensor.ToNCHW(); err != nil {
			return nil, err
		}
	}

	input, err := onnxrt.NewTensor(onnxrt.NewShape(feed.Shape...), feed.Data)
	if err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	defer input.Destroy()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, classifier.ErrInferenceUnavailable
	}

	outputs := []onnxrt.Value{nil}
	if err := m.session.Run([]onnxrt.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	t, ok := outputs[0].(*onnxrt.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	data := t.GetData()
	if len(data) < m.outLen {
		return nil, fmt.Errorf("%w: output has %d values", classifier.ErrShape, len(data))
	}

	// Batch size is 1, so the first row is the answer.
	result := make([]float32, m.outLen)
	copy(result, data[:m.outLen])
	return result, nil
}

// Layout reports the input layout detected at load time.
func (m *ONNXModel) Layout() Layout {
	return m.layout
}

// Close destroys the session.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

func initializeEnvironment(libPath string) error {
	if onnxrt.IsInitialized() {
		return nil
	}
	p, err := locateLibrary(libPath)
	if err != nil {
		return fmt.Errorf("onnx lib path: %w", err)
	}
	onnxrt.SetSharedLibraryPath(p)
	if err := onnxrt.InitializeEnvironment(); err != nil {
		return fmt.Errorf("init onnx: %w", err)
	}
	return nil
}

func locateLibrary(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	var candidates []string
	switch runtime.GOOS {
	case "linux":
		candidates = []string{
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/libonnxruntime.so",
			"/opt/onnxruntime/lib/libonnxruntime.so",
		}
	case "darwin":
		candidates = []string{
			"/usr/local/lib/libonnxruntime.dylib",
			"/opt/homebrew/lib/libonnxruntime.dylib",
		}
	case "windows":
		candidates = []string{"onnxruntime.dll"}
	default:
		return "", fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library not found (set ONNXRUNTIME_LIB)")
}

var _ classifier.Model = (*ONNXModel)(nil)
