package riskmodel

import (
	"context"
	"fmt"

	"github.com/richxcame/loan-risk/internal/scoring"
	"github.com/richxcame/loan-risk/pkg/config"
	"github.com/richxcame/loan-risk/pkg/logger"
	"go.uber.org/zap"
)

// maxArtifactSize bounds artifact downloads
const maxArtifactSize = 8 << 20

// ArtifactReader fetches artifact bytes by URI
type ArtifactReader interface {
	ReadAll(ctx context.Context, uri string, limit int64) ([]byte, error)
}

// LoadArtifact reads and validates a logistic artifact from a local path or s3:// URI
func LoadArtifact(ctx context.Context, reader ArtifactReader, uri string) (*LogisticModel, error) {
	data, err := reader.ReadAll(ctx, uri, maxArtifactSize)
	if err != nil {
		return nil, fmt.Errorf("riskmodel: fetch artifact: %w", err)
	}
	return Load(data)
}

// FromConfig builds the configured model. A model server URL takes
// precedence over an artifact.
func FromConfig(ctx context.Context, cfg config.ModelConfig, reader ArtifactReader) (scoring.RiskModel, error) {
	if cfg.ServerURL != "" {
		logger.Info("Using remote risk model", zap.String("url", cfg.ServerURL))
		return NewRemoteModel(RemoteConfig{
			BaseURL:      cfg.ServerURL,
			Timeout:      cfg.Timeout,
			MaxAttempts:  cfg.RetryMax,
			RetryBackoff: cfg.RetryBackoff,
		}), nil
	}

	model, err := LoadArtifact(ctx, reader, cfg.ArtifactURI)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded risk model artifact",
		zap.String("uri", cfg.ArtifactURI),
		zap.String("model_version", model.Version()),
		zap.String("schema_version", model.SchemaVersion()),
	)
	return model, nil
}
