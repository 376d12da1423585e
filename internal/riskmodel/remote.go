package riskmodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/richxcame/loan-risk/internal/scoring"
	"github.com/richxcame/loan-risk/pkg/httpclient"
	"github.com/richxcame/loan-risk/pkg/resilience"
)

const predictPath = "/v1/predict_proba"

// ErrBadResponse covers malformed model server output
var ErrBadResponse = errors.New("riskmodel: malformed model server response")

type predictRequest struct {
	SchemaVersion string      `json:"schema_version"`
	Columns       []string    `json:"columns"`
	Rows          [][]float64 `json:"rows"`
}

type predictResponse struct {
	SchemaVersion string     `json:"schema_version"`
	ModelVersion  string     `json:"model_version"`
	Probabilities []*float64 `json:"probabilities"`
}

// RemoteConfig configures a RemoteModel
type RemoteConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
}

// RemoteModel calls an external model server. Inference is a pure function
// of its input, so transient failures are retried.
type RemoteModel struct {
	client  *httpclient.Client
	version string
}

var _ scoring.RiskModel = (*RemoteModel)(nil)

// NewRemoteModel creates a client for the model server at cfg.BaseURL
func NewRemoteModel(cfg RemoteConfig) *RemoteModel {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	client := httpclient.NewClient(baseURL, cfg.Timeout)
	if cfg.MaxAttempts > 1 {
		client.Apply(httpclient.WithRetry(resilience.FastRetryConfig(cfg.MaxAttempts, cfg.RetryBackoff)))
	}
	return &RemoteModel{client: client, version: "remote:" + baseURL}
}

// Predict posts a single-row frame and returns its probability
func (m *RemoteModel) Predict(ctx context.Context, features scoring.FeatureVector) (float64, error) {
	body, err := m.client.Post(ctx, predictPath, predictRequest{
		SchemaVersion: scoring.FeatureSchemaVersion,
		Columns:       scoring.FeatureNames,
		Rows:          [][]float64{features.Values()},
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("riskmodel: model server call failed: %w", err)
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if resp.SchemaVersion != scoring.FeatureSchemaVersion {
		return 0, fmt.Errorf("%w: server schema %q, service %q", ErrSchemaMismatch, resp.SchemaVersion, scoring.FeatureSchemaVersion)
	}
	if len(resp.Probabilities) != 1 || resp.Probabilities[0] == nil {
		return 0, fmt.Errorf("%w: expected exactly one probability", ErrBadResponse)
	}

	p := *resp.Probabilities[0]
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: probability %v outside [0,1]", ErrBadResponse, p)
	}
	return p, nil
}

// SchemaVersion implements scoring.RiskModel. Each response is checked
// against the service schema as well.
func (m *RemoteModel) SchemaVersion() string {
	return scoring.FeatureSchemaVersion
}

// Version implements scoring.RiskModel
func (m *RemoteModel) Version() string {
	return m.version
}
