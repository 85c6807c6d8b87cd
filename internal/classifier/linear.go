package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	apperrors "loan-approval/internal/common/errors"
	"loan-approval/internal/features"
)

const defaultThreshold = 0.5

// LinearArtifact is the JSON export of a fitted logistic regression with an
// optional standard scaler in front of it.
type LinearArtifact struct {
	Version       string    `json:"version"`
	SchemaVersion string    `json:"schemaVersion,omitempty"`
	Features      []string  `json:"features"`
	Scaler        *Scaler   `json:"scaler,omitempty"`
	Coefficients  []float64 `json:"coefficients"`
	Intercept     float64   `json:"intercept"`
	Threshold     float64   `json:"threshold,omitempty"`
}

type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LinearModel evaluates a LinearArtifact in process.
type LinearModel struct {
	artifact LinearArtifact
	version  string
}

// LoadLinear reads and checks a JSON artifact.
func LoadLinear(path string, schema *features.Schema) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewModelLoadFailedError(path, err)
	}

	var art LinearArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, apperrors.NewModelLoadFailedError(path, fmt.Errorf("corrupt artifact: %w", err))
	}
	return NewLinearModel(art, schema)
}

// NewLinearModel checks an artifact against the schema.
func NewLinearModel(art LinearArtifact, schema *features.Schema) (*LinearModel, error) {
	if err := schema.SameOrder(art.Features); err != nil {
		return nil, apperrors.NewSchemaMismatchError(err.Error())
	}
	if art.SchemaVersion != "" && art.SchemaVersion != schema.Version {
		return nil, apperrors.NewSchemaMismatchError(
			fmt.Sprintf("model trained on schema %s, running %s", art.SchemaVersion, schema.Version))
	}

	n := len(art.Features)
	if len(art.Coefficients) != n {
		return nil, invalidArtifact("expected %d coefficients, got %d", n, len(art.Coefficients))
	}
	if art.Scaler != nil {
		if len(art.Scaler.Mean) != n || len(art.Scaler.Scale) != n {
			return nil, invalidArtifact("scaler width does not match %d features", n)
		}
		for i, s := range art.Scaler.Scale {
			if s == 0 || !finite(s) || !finite(art.Scaler.Mean[i]) {
				return nil, invalidArtifact("scaler entry %d is not usable", i)
			}
		}
	}
	for i, c := range art.Coefficients {
		if !finite(c) {
			return nil, invalidArtifact("coefficient %d is not finite", i)
		}
	}
	if !finite(art.Intercept) {
		return nil, invalidArtifact("intercept is not finite")
	}
	if art.Threshold == 0 {
		art.Threshold = defaultThreshold
	}
	if art.Threshold <= 0 || art.Threshold >= 1 {
		return nil, invalidArtifact("threshold %v outside (0, 1)", art.Threshold)
	}

	version := art.Version
	if version == "" {
		version = "linear-unversioned"
	}
	return &LinearModel{artifact: art, version: version}, nil
}

func invalidArtifact(format string, args ...interface{}) error {
	return apperrors.NewModelLoadFailedError("linear artifact", fmt.Errorf(format, args...))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Score returns the approval probability.
func (m *LinearModel) Score(ctx context.Context, v features.Vector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.NewPredictionFailedError(err)
	}
	names := v.Names()
	if len(names) != len(m.artifact.Features) {
		return 0, apperrors.NewSchemaMismatchError(
			fmt.Sprintf("vector has %d slots, model expects %d", len(names), len(m.artifact.Features)))
	}

	x := v.Values()
	z := m.artifact.Intercept
	for i, c := range m.artifact.Coefficients {
		if names[i] != m.artifact.Features[i] {
			return 0, apperrors.NewSchemaMismatchError(
				fmt.Sprintf("slot %d is %q, model expects %q", i, names[i], m.artifact.Features[i]))
		}
		xi := x[i]
		if s := m.artifact.Scaler; s != nil {
			xi = (xi - s.Mean[i]) / s.Scale[i]
		}
		z += c * xi
	}

	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return 0, apperrors.NewPredictionFailedError(fmt.Errorf("probability is NaN"))
	}
	return p, nil
}

func (m *LinearModel) Predict(ctx context.Context, v features.Vector) (int, error) {
	p, err := m.Score(ctx, v)
	if err != nil {
		return 0, err
	}
	if p >= m.artifact.Threshold {
		return checkLabel(1)
	}
	return checkLabel(0)
}

func (m *LinearModel) Version() string { return m.version }

func (m *LinearModel) Close() error { return nil }
