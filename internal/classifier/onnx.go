package classifier

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/features"
)

// ONNXOptions locates an exported classifier and the onnxruntime library.
// The model takes a [1, N] float32 input and yields an int64 label.
type ONNXOptions struct {
	ModelPath         string
	SharedLibraryPath string
	InputName         string
	OutputName        string
	Version           string
}

var (
	ortInitMu   sync.Mutex
	ortSessions int
)

// ONNXModel runs one session with preallocated tensors. Runs are serialized
// because the tensors are reused.
type ONNXModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[int64]
	names   []string
	version string
}

func LoadONNX(opts ONNXOptions, schema *features.Schema) (*ONNXModel, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, apperrors.NewModelLoadFailedError(opts.ModelPath, err)
	}
	if opts.InputName == "" || opts.OutputName == "" {
		return nil, apperrors.NewModelLoadFailedError(opts.ModelPath, fmt.Errorf("onnx input and output names are required"))
	}

	if err := acquireEnvironment(opts.SharedLibraryPath); err != nil {
		return nil, apperrors.NewModelLoadFailedError(opts.ModelPath, err)
	}

	width := int64(schema.Len())
	input, err := ort.NewTensor(ort.NewShape(1, width), make([]float32, width))
	if err != nil {
		releaseEnvironment()
		return nil, apperrors.NewModelLoadFailedError(opts.ModelPath, err)
	}
	output, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		_ = input.Destroy()
		releaseEnvironment()
		return nil, apperrors.NewModelLoadFailedError(opts.ModelPath, err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()
		releaseEnvironment()
		return nil, apperrors.NewModelLoadFailedError(opts.ModelPath, err)
	}

	version := opts.Version
	if version == "" {
		version = "onnx-unversioned"
	}
	return &ONNXModel{
		session: session,
		input:   input,
		output:  output,
		names:   append([]string(nil), schema.Names...),
		version: version,
	}, nil
}

func acquireEnvironment(libPath string) error {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	if ortSessions == 0 && !ort.IsInitialized() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize onnxruntime: %w", err)
		}
	}
	ortSessions++
	return nil
}

func releaseEnvironment() {
	ortInitMu.Lock()
	defer ortInitMu.Unlock()

	ortSessions--
	if ortSessions == 0 && ort.IsInitialized() {
		_ = ort.DestroyEnvironment()
	}
}

func (m *ONNXModel) Predict(ctx context.Context, v features.Vector) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.NewPredictionFailedError(err)
	}
	if v.Len() != len(m.names) {
		return 0, apperrors.NewSchemaMismatchError(
			fmt.Sprintf("vector has %d slots, model expects %d", v.Len(), len(m.names)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0, apperrors.NewPredictionFailedError(fmt.Errorf("session closed"))
	}
	copy(m.input.GetData(), v.Float32())
	if err := m.session.Run(); err != nil {
		return 0, apperrors.NewPredictionFailedError(err)
	}
	return checkLabel(m.output.GetData()[0])
}

func (m *ONNXModel) Version() string { return m.version }

func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	_ = m.input.Destroy()
	_ = m.output.Destroy()
	m.session = nil
	releaseEnvironment()
	return err
}
