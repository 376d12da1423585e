package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/richxcame/loan-risk/pkg/validation"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Scoring   ScoringConfig
	Model     ModelConfig
	Storage   StorageConfig
	Sentry    SentryConfig
	Tracing   TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string `env:"PORT" validate:"required,numeric"`
	Environment    string `env:"ENVIRONMENT" validate:"oneof=development staging production test"`
	ServiceName    string `validate:"required"`
	Version        string `env:"SERVICE_VERSION"`
	ReadTimeout    int    `env:"READ_TIMEOUT" validate:"gte=1"`
	WriteTimeout   int    `env:"WRITE_TIMEOUT" validate:"gte=1"`
	RequestTimeout int    `env:"REQUEST_TIMEOUT" validate:"gte=1"`
	MaxBodyBytes   int64  `env:"MAX_BODY_BYTES" validate:"gte=1024"`
	CORSOrigins    string `env:"CORS_ORIGINS"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host              string `env:"DB_HOST" validate:"required"`
	Port              string `env:"DB_PORT" validate:"required,numeric"`
	User              string `env:"DB_USER" validate:"required"`
	Password          string `env:"DB_PASSWORD"`
	PasswordSecretARN string `env:"DB_PASSWORD_SECRET_ARN"`
	DBName            string `env:"DB_NAME" validate:"required"`
	SSLMode           string `env:"DB_SSLMODE" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns          int    `env:"DB_MAX_CONNS" validate:"gte=1"`
	MinConns          int    `env:"DB_MIN_CONNS" validate:"gte=0"`
	MigrationsPath    string `env:"DB_MIGRATIONS_PATH"`
	RunMigrations     bool   `env:"DB_RUN_MIGRATIONS"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `env:"REDIS_HOST"`
	Port     string `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" validate:"gte=0"`
	Enabled  bool   `env:"REDIS_ENABLED"`
}

// RateLimitConfig controls the per-client request limit on the scoring endpoint
type RateLimitConfig struct {
	Enabled       bool   `env:"RATE_LIMIT_ENABLED"`
	WindowSeconds int    `env:"RATE_LIMIT_WINDOW_SECONDS" validate:"gte=0"`
	Limit         int    `env:"RATE_LIMIT_PREDICT_LIMIT" validate:"gte=0"`
	RedisPrefix   string `env:"RATE_LIMIT_REDIS_PREFIX"`
}

// ScoringConfig tunes the scoring pipeline
type ScoringConfig struct {
	LookupTimeout      time.Duration `env:"SCORING_LOOKUP_TIMEOUT" validate:"gt=0"`
	InsertTimeout      time.Duration `env:"SCORING_INSERT_TIMEOUT" validate:"gt=0"`
	IncludeProbability bool          `env:"SCORING_INCLUDE_PROBABILITY"`
}

// ModelConfig selects and configures the risk model backend
type ModelConfig struct {
	// ArtifactURI is a local path or an s3://bucket/key reference to a JSON model artifact.
	ArtifactURI  string        `env:"MODEL_ARTIFACT_URI"`
	ServerURL    string        `env:"MODEL_SERVER_URL" validate:"omitempty,url"`
	Timeout      time.Duration `env:"MODEL_TIMEOUT" validate:"gt=0"`
	RetryMax     int           `env:"MODEL_RETRY_MAX_ATTEMPTS" validate:"gte=1"`
	RetryBackoff time.Duration `env:"MODEL_RETRY_BACKOFF"`
}

// StorageConfig holds S3 settings used to fetch model artifacts
type StorageConfig struct {
	Region    string `env:"AWS_REGION"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN              string  `env:"SENTRY_DSN"`
	TracesSampleRate float64 `env:"SENTRY_TRACES_SAMPLE_RATE" validate:"gte=0,lte=1"`
}

// TracingConfig holds OpenTelemetry exporter configuration
type TracingConfig struct {
	Enabled      bool    `env:"TRACING_ENABLED"`
	OTLPEndpoint string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRatio  float64 `env:"TRACING_SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			Version:        getEnv("SERVICE_VERSION", "dev"),
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 15),
			MaxBodyBytes:   int64(getEnvAsInt("MAX_BODY_BYTES", 5<<20)),
			CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnv("DB_PORT", "5432"),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			PasswordSecretARN: getEnv("DB_PASSWORD_SECRET_ARN", ""),
			DBName:            getEnv("DB_NAME", "loan_risk"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:          getEnvAsInt("DB_MIN_CONNS", 2),
			MigrationsPath:    getEnv("DB_MIGRATIONS_PATH", "file://migrations"),
			RunMigrations:     getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvAsBool("RATE_LIMIT_ENABLED", false),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			Limit:         getEnvAsInt("RATE_LIMIT_PREDICT_LIMIT", 20),
			RedisPrefix:   getEnv("RATE_LIMIT_REDIS_PREFIX", "rl"),
		},
		Scoring: ScoringConfig{
			LookupTimeout:      getEnvAsDuration("SCORING_LOOKUP_TIMEOUT", 2*time.Second),
			InsertTimeout:      getEnvAsDuration("SCORING_INSERT_TIMEOUT", 5*time.Second),
			IncludeProbability: getEnvAsBool("SCORING_INCLUDE_PROBABILITY", true),
		},
		Model: ModelConfig{
			ArtifactURI:  getEnv("MODEL_ARTIFACT_URI", "models/fraud_detection_model.json"),
			ServerURL:    getEnv("MODEL_SERVER_URL", ""),
			Timeout:      getEnvAsDuration("MODEL_TIMEOUT", 3*time.Second),
			RetryMax:     getEnvAsInt("MODEL_RETRY_MAX_ATTEMPTS", 3),
			RetryBackoff: getEnvAsDuration("MODEL_RETRY_BACKOFF", 100*time.Millisecond),
		},
		Storage: StorageConfig{
			Region:    getEnv("AWS_REGION", "us-east-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			TracesSampleRate: getEnvAsFloat("SENTRY_TRACES_SAMPLE_RATE", 0),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvAsFloat("TRACING_SAMPLE_RATIO", 0.1),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks struct constraints on every section
func (c *Config) Validate() error {
	sections := []interface{}{
		&c.Server, &c.Database, &c.Redis, &c.RateLimit,
		&c.Scoring, &c.Model, &c.Sentry, &c.Tracing,
	}
	for _, s := range sections {
		if err := validation.ValidateStruct(s); err != nil {
			return err
		}
	}
	if c.Model.ArtifactURI == "" && c.Model.ServerURL == "" {
		return fmt.Errorf("one of MODEL_ARTIFACT_URI or MODEL_SERVER_URL is required")
	}
	return nil
}

// CORSOriginList splits CORS_ORIGINS into a list
func (c *ServerConfig) CORSOriginList() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DSN returns the keyword/value connection string understood by both pgx and lib/pq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		dsnValue(c.Host), dsnValue(c.Port), dsnValue(c.User),
		dsnValue(c.Password), dsnValue(c.DBName), dsnValue(c.SSLMode),
	)
}

// dsnValue single-quotes v when it is empty or contains spaces, quotes or backslashes
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\\t") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// URL returns the database connection string in URL form, as required by migrate
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Window returns the rate limit window as a duration
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
