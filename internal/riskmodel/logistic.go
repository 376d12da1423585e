package riskmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/richxcame/loan-risk/internal/scoring"
)

// ErrSchemaMismatch is returned when an artifact was trained on another feature schema
var ErrSchemaMismatch = errors.New("riskmodel: feature schema mismatch")

// Artifact is the exported form of a standard-scaled logistic regression
type Artifact struct {
	SchemaVersion string    `json:"schema_version"`
	ModelVersion  string    `json:"model_version"`
	FeatureNames  []string  `json:"feature_names"`
	Coefficients  []float64 `json:"coefficients"`
	Intercept     float64   `json:"intercept"`
	Scaler        Scaler    `json:"scaler"`
}

// Scaler holds per-feature standardization parameters
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LogisticModel scores in-process from a loaded Artifact. It is read-only
// after Load and safe for concurrent use.
type LogisticModel struct {
	artifact Artifact
}

var _ scoring.RiskModel = (*LogisticModel)(nil)

// Load parses and validates an artifact
func Load(data []byte) (*LogisticModel, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("riskmodel: decode artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &LogisticModel{artifact: a}, nil
}

// Validate guards against artifacts trained on a different column set or order
func (a *Artifact) Validate() error {
	if a.SchemaVersion != scoring.FeatureSchemaVersion {
		return fmt.Errorf("%w: artifact %q, service %q", ErrSchemaMismatch, a.SchemaVersion, scoring.FeatureSchemaVersion)
	}

	n := len(scoring.FeatureNames)
	if len(a.FeatureNames) != n {
		return fmt.Errorf("%w: artifact has %d features, service %d", ErrSchemaMismatch, len(a.FeatureNames), n)
	}
	for i, name := range scoring.FeatureNames {
		if a.FeatureNames[i] != name {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaMismatch, i, a.FeatureNames[i], name)
		}
	}

	if len(a.Coefficients) != n {
		return fmt.Errorf("riskmodel: expected %d coefficients, got %d", n, len(a.Coefficients))
	}
	if len(a.Scaler.Mean) != n || len(a.Scaler.Scale) != n {
		return fmt.Errorf("riskmodel: scaler must have %d means and scales", n)
	}
	for i, s := range a.Scaler.Scale {
		if s == 0 || math.IsNaN(s) {
			return fmt.Errorf("riskmodel: scale for %q must be non-zero", a.FeatureNames[i])
		}
	}
	return nil
}

// Predict returns the fraud-class probability
func (m *LogisticModel) Predict(ctx context.Context, features scoring.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	z := m.artifact.Intercept
	for i, x := range features.Values() {
		scaled := (x - m.artifact.Scaler.Mean[i]) / m.artifact.Scaler.Scale[i]
		z += m.artifact.Coefficients[i] * scaled
	}

	p := sigmoid(z)
	if math.IsNaN(p) {
		return 0, errors.New("riskmodel: non-numeric probability")
	}
	return p, nil
}

// SchemaVersion implements scoring.RiskModel
func (m *LogisticModel) SchemaVersion() string {
	return m.artifact.SchemaVersion
}

// Version implements scoring.RiskModel
func (m *LogisticModel) Version() string {
	if m.artifact.ModelVersion == "" {
		return "logistic"
	}
	return m.artifact.ModelVersion
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
