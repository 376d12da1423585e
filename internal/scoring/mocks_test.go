package scoring

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRiskModel is a mock implementation of RiskModel
type MockRiskModel struct {
	mock.Mock
}

func (m *MockRiskModel) Predict(ctx context.Context, features FeatureVector) (float64, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRiskModel) SchemaVersion() string {
	return FeatureSchemaVersion
}

func (m *MockRiskModel) Version() string {
	return "test-model"
}

// MockStore is a mock implementation of ApplicationStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, app *ScoredApplication) InsertOutcome {
	args := m.Called(ctx, app)
	return args.Get(0).(InsertOutcome)
}

// MockCounter is a mock implementation of SubmissionCounter
type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) CountByDeviceFingerprint(ctx context.Context, fingerprint string) (int, error) {
	args := m.Called(ctx, fingerprint)
	return args.Int(0), args.Error(1)
}

// MockScorer is a mock implementation of Scorer
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, payload *ApplicationPayload, meta RequestMeta) (*ScoreResult, error) {
	args := m.Called(ctx, payload, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ScoreResult), args.Error(1)
}
