package config

import (
	"testing"
	"time"

	"github.com/richxcame/loan-risk/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("scoring")
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "scoring", cfg.Server.ServiceName)
	assert.Equal(t, 2*time.Second, cfg.Scoring.LookupTimeout)
	assert.Equal(t, 5*time.Second, cfg.Scoring.InsertTimeout)
	assert.True(t, cfg.Scoring.IncludeProbability)
	assert.Equal(t, "models/fraud_detection_model.json", cfg.Model.ArtifactURI)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("SCORING_LOOKUP_TIMEOUT", "750ms")
	t.Setenv("SCORING_INCLUDE_PROBABILITY", "false")
	t.Setenv("MODEL_SERVER_URL", "http://model:8080")
	t.Setenv("MODEL_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg, err := Load("scoring")
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Scoring.LookupTimeout)
	assert.False(t, cfg.Scoring.IncludeProbability)
	assert.Equal(t, "http://model:8080", cfg.Model.ServerURL)
	assert.Equal(t, 5, cfg.Model.RetryMax)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window())
	assert.Equal(t, 25, cfg.Database.MaxConns)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "qa")

	_, err := Load("scoring")

	require.Error(t, err)
	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	_, ok := vErr.GetFieldError("ENVIRONMENT")
	assert.True(t, ok)
}

func TestLoad_InvalidModelServerURL(t *testing.T) {
	t.Setenv("MODEL_SERVER_URL", "not a url")

	_, err := Load("scoring")

	var vErr *validation.ValidationError
	require.ErrorAs(t, err, &vErr)
	msg, ok := vErr.GetFieldError("MODEL_SERVER_URL")
	assert.True(t, ok)
	assert.Equal(t, "MODEL_SERVER_URL must be a valid URL", msg)
}

func TestValidate_RequiresModelSource(t *testing.T) {
	cfg, err := Load("scoring")
	require.NoError(t, err)

	cfg.Model.ArtifactURI = ""
	cfg.Model.ServerURL = ""

	assert.Error(t, cfg.Validate())
}

func TestValidate_ProbabilityRatios(t *testing.T) {
	cfg, err := Load("scoring")
	require.NoError(t, err)

	cfg.Tracing.SampleRatio = 1.5
	assert.Error(t, cfg.Validate())
}

func TestCORSOriginList(t *testing.T) {
	c := ServerConfig{CORSOrigins: " https://a.example.com, ,https://b.example.com "}
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, c.CORSOriginList())

	c = ServerConfig{CORSOrigins: ""}
	assert.Empty(t, c.CORSOriginList())
}

func TestDatabaseConfig_DSNAndURL(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: "5432", User: "scoring", Password: "p@ss word",
		DBName: "loan_risk", SSLMode: "disable",
	}

	assert.Equal(t, "host=db port=5432 user=scoring password='p@ss word' dbname=loan_risk sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://scoring:p%40ss%20word@db:5432/loan_risk?sslmode=disable", c.URL())
}

func TestDSNValueQuoting(t *testing.T) {
	assert.Equal(t, "plain", dsnValue("plain"))
	assert.Equal(t, "''", dsnValue(""))
	assert.Equal(t, `'it\'s'`, dsnValue("it's"))
	assert.Equal(t, `'a\\b'`, dsnValue(`a\b`))
}

func TestRedisAddr(t *testing.T) {
	c := RedisConfig{Host: "cache", Port: "6380"}
	assert.Equal(t, "cache:6380", c.RedisAddr())
}

func TestRateLimitWindowFallback(t *testing.T) {
	assert.Equal(t, time.Minute, RateLimitConfig{}.Window())
}
