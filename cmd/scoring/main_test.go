package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/loan-risk/internal/scoring"
	"github.com/richxcame/loan-risk/pkg/common"
	"github.com/richxcame/loan-risk/pkg/config"
	"github.com/richxcame/loan-risk/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testServiceName    = "loan-risk-scoring"
	testServiceVersion = "1.0.0"
)

type stubScorer struct {
	result *scoring.ScoreResult
	err    error
}

func (s stubScorer) Score(ctx context.Context, payload *scoring.ApplicationPayload, meta scoring.RequestMeta) (*scoring.ScoreResult, error) {
	return s.result, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "5000",
			Environment:    "test",
			ServiceName:    testServiceName,
			Version:        testServiceVersion,
			ReadTimeout:    5,
			WriteTimeout:   5,
			RequestTimeout: 5,
			MaxBodyBytes:   1 << 20,
			CORSOrigins:    "https://apply.example.com",
		},
	}
}

func setupFullTestRouter(scorer scoring.Scorer, checks map[string]common.HealthCheckFunc) *gin.Engine {
	return setupRouterWithConfig(testConfig(), scorer, checks)
}

func setupRouterWithConfig(cfg *config.Config, scorer scoring.Scorer, checks map[string]common.HealthCheckFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(routerDeps{
		cfg:          cfg,
		handler:      scoring.NewHandler(scorer, true),
		checks:       checks,
		modelVersion: "test-model",
	})
}

type panickingScorer struct{}

func (panickingScorer) Score(ctx context.Context, payload *scoring.ApplicationPayload, meta scoring.RequestMeta) (*scoring.ScoreResult, error) {
	panic("pq: password=hunter2 host=db.internal")
}

// slowModel answers after delay and ignores cancellation
type slowModel struct {
	delay time.Duration
}

func (m slowModel) Predict(ctx context.Context, features scoring.FeatureVector) (float64, error) {
	time.Sleep(m.delay)
	return 0.42, nil
}
func (slowModel) SchemaVersion() string { return scoring.FeatureSchemaVersion }
func (slowModel) Version() string       { return "slow" }

// deadlineStore blocks like a database write until ctx ends or delay passes
type deadlineStore struct {
	delay     time.Duration
	calls     atomic.Int32
	inserted  atomic.Bool
	cancelled atomic.Bool
}

func (s *deadlineStore) Insert(ctx context.Context, app *scoring.ScoredApplication) scoring.InsertOutcome {
	s.calls.Add(1)
	select {
	case <-ctx.Done():
		s.cancelled.Store(true)
		return scoring.Failed(ctx.Err())
	case <-time.After(s.delay):
		s.inserted.Store(true)
		return scoring.Succeeded()
	}
}

func shortTimeoutConfig() *config.Config {
	cfg := testConfig()
	cfg.Server.RequestTimeout = 1
	return cfg
}

func postPredict(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := setupFullTestRouter(stubScorer{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.CorrelationIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var body common.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, testServiceName, body.Service)
	assert.Equal(t, testServiceVersion, body.Version)
}

func TestReadyz(t *testing.T) {
	checks := map[string]common.HealthCheckFunc{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("dial tcp: refused") },
	}
	router := setupFullTestRouter(stubScorer{}, checks)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")

	var body common.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "test-model", body.ModelVersion)
	assert.Equal(t, map[string]string{"postgres": "healthy", "redis": "unhealthy"}, body.Checks)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupFullTestRouter(stubScorer{}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPredictRoute(t *testing.T) {
	router := setupFullTestRouter(stubScorer{result: &scoring.ScoreResult{State: scoring.StateSucceeded, RiskScore: 73, FraudProbability: 0.73}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"date_of_birth":"1990-01-01"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Application processed successfully!","risk_score":73,"fraud_probability":0.73}`, w.Body.String())
}

func TestPredictRoute_Failure(t *testing.T) {
	router := setupFullTestRouter(stubScorer{err: scoring.ErrPersistenceFailure}, nil)

	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected server error occurred."}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	router := setupFullTestRouter(stubScorer{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "https://apply.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://apply.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPredictRoute_PanicInDebugModeDoesNotLeak(t *testing.T) {
	router := setupFullTestRouter(panickingScorer{}, nil)
	gin.SetMode(gin.DebugMode)
	defer gin.SetMode(gin.TestMode)

	w := postPredict(router, `{}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected server error occurred."}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "goroutine")
}

func TestPredictRoute_DeadlineCancelsInsert(t *testing.T) {
	store := &deadlineStore{delay: 3 * time.Second}
	svc := scoring.NewService(nil, scoring.NewFeatureExtractor(nil), slowModel{}, store)
	router := setupRouterWithConfig(shortTimeoutConfig(), svc, nil)

	w := postPredict(router, `{"date_of_birth":"1990-01-01"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected server error occurred."}`, w.Body.String())
	assert.True(t, store.cancelled.Load())
	assert.False(t, store.inserted.Load())
}

func TestPredictRoute_NoInsertAfterDeadline(t *testing.T) {
	store := &deadlineStore{delay: time.Millisecond}
	svc := scoring.NewService(nil, scoring.NewFeatureExtractor(nil), slowModel{delay: 1200 * time.Millisecond}, store)
	router := setupRouterWithConfig(shortTimeoutConfig(), svc, nil)

	w := postPredict(router, `{"date_of_birth":"1990-01-01"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected server error occurred."}`, w.Body.String())
	assert.Equal(t, int32(0), store.calls.Load())
	assert.False(t, store.inserted.Load())
}
