package riskmodel

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"testing"

	"github.com/richxcame/loan-risk/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact() Artifact {
	n := len(scoring.FeatureNames)
	a := Artifact{
		SchemaVersion: scoring.FeatureSchemaVersion,
		ModelVersion:  "unit",
		FeatureNames:  append([]string(nil), scoring.FeatureNames...),
		Coefficients:  make([]float64, n),
		Scaler: Scaler{
			Mean:  make([]float64, n),
			Scale: make([]float64, n),
		},
	}
	for i := range a.Scaler.Scale {
		a.Scaler.Scale[i] = 1
	}
	return a
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestLoad_InterceptOnly(t *testing.T) {
	m, err := Load(mustJSON(t, testArtifact()))
	require.NoError(t, err)

	p, err := m.Predict(context.Background(), scoring.FeatureVector{Age: 40, Income: 1e6})

	require.NoError(t, err)
	assert.Equal(t, 0.5, p)
	assert.Equal(t, "unit", m.Version())
	assert.Equal(t, scoring.FeatureSchemaVersion, m.SchemaVersion())
}

func TestLogisticModel_Predict(t *testing.T) {
	a := testArtifact()
	a.Intercept = -1
	a.Coefficients[8] = 2 // multiple_applications
	a.Scaler.Mean[8] = 1
	a.Scaler.Scale[8] = 0.5

	m, err := Load(mustJSON(t, a))
	require.NoError(t, err)

	p, err := m.Predict(context.Background(), scoring.FeatureVector{MultipleApplications: 2})
	require.NoError(t, err)

	// z = -1 + 2*((2-1)/0.5) = 3
	assert.InDelta(t, 1/(1+math.Exp(-3)), p, 1e-12)
}

func TestLogisticModel_PredictStaysInRange(t *testing.T) {
	a := testArtifact()
	a.Coefficients[1] = 1

	m, err := Load(mustJSON(t, a))
	require.NoError(t, err)

	for _, income := range []float64{-1e308, -1e6, 0, 1e6, 1e308} {
		p, err := m.Predict(context.Background(), scoring.FeatureVector{Income: income})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestLoad_RejectsSchemaMismatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"version", func(a *Artifact) { a.SchemaVersion = "loan-fraud-features/v0" }},
		{"column order", func(a *Artifact) { a.FeatureNames[0], a.FeatureNames[1] = a.FeatureNames[1], a.FeatureNames[0] }},
		{"column count", func(a *Artifact) { a.FeatureNames = a.FeatureNames[:9] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testArtifact()
			tt.mutate(&a)

			_, err := Load(mustJSON(t, a))

			assert.ErrorIs(t, err, ErrSchemaMismatch)
		})
	}
}

func TestLoad_RejectsMalformedArtifact(t *testing.T) {
	a := testArtifact()
	a.Coefficients = a.Coefficients[:3]
	_, err := Load(mustJSON(t, a))
	assert.Error(t, err)

	a = testArtifact()
	a.Scaler.Scale[2] = 0
	_, err = Load(mustJSON(t, a))
	assert.Error(t, err)

	_, err = Load([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoad_BundledArtifact(t *testing.T) {
	data, err := os.ReadFile("../../models/fraud_detection_model.json")
	require.NoError(t, err)

	m, err := Load(data)
	require.NoError(t, err)

	p, err := m.Predict(context.Background(), scoring.NewFeatureExtractor(nil).Extract(&scoring.ApplicationPayload{}, 0))
	require.NoError(t, err)
	assert.True(t, p >= 0 && p <= 1)
}
