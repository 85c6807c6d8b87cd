package classifier

import (
	"context"
	"fmt"

	"loan-approval/internal/common/config"
	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/features"
)

// Classifier is a loaded, read-only binary model. Predict returns 0 or 1.
type Classifier interface {
	Predict(ctx context.Context, v features.Vector) (int, error)
	Version() string
	Close() error
}

// Load opens the configured artifact and checks it against the schema.
// Failure is MODEL_LOAD_FAILED or SCHEMA_MISMATCH and must stop startup.
func Load(cfg config.ModelConfig, schema *features.Schema) (Classifier, error) {
	var (
		c   Classifier
		err error
	)
	switch cfg.Format {
	case config.FormatLinear, "":
		c, err = LoadLinear(cfg.Path, schema)
	case config.FormatONNX:
		c, err = LoadONNX(ONNXOptions{
			ModelPath:         cfg.Path,
			SharedLibraryPath: cfg.Onnx.SharedLibraryPath,
			InputName:         cfg.Onnx.InputName,
			OutputName:        cfg.Onnx.OutputName,
			Version:           cfg.Version,
		}, schema)
	default:
		return nil, apperrors.NewModelLoadFailedError(cfg.Path, fmt.Errorf("unsupported model format %q", cfg.Format))
	}
	if err != nil {
		return nil, err
	}

	if cfg.Version != "" {
		if lm, ok := c.(*LinearModel); ok {
			lm.version = cfg.Version
		}
	}
	return c, nil
}

// checkLabel rejects anything but a binary label.
func checkLabel(label int64) (int, error) {
	if label != 0 && label != 1 {
		return 0, apperrors.NewPredictionFailedError(fmt.Errorf("classifier returned label %d", label))
	}
	return int(label), nil
}
