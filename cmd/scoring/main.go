package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/richxcame/loan-risk/internal/riskmodel"
	"github.com/richxcame/loan-risk/internal/scoring"
	"github.com/richxcame/loan-risk/pkg/common"
	"github.com/richxcame/loan-risk/pkg/config"
	"github.com/richxcame/loan-risk/pkg/database"
	"github.com/richxcame/loan-risk/pkg/health"
	"github.com/richxcame/loan-risk/pkg/logger"
	"github.com/richxcame/loan-risk/pkg/ratelimit"
	"github.com/richxcame/loan-risk/pkg/redis"
	"github.com/richxcame/loan-risk/pkg/secrets"
	"github.com/richxcame/loan-risk/pkg/storage"
	"github.com/richxcame/loan-risk/pkg/tracing"
	"go.uber.org/zap"
)

const serviceName = "loan-risk-scoring"

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Server.Environment, cfg.Server.ServiceName, cfg.Server.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sentryEnabled := cfg.Sentry.DSN != ""
	if sentryEnabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Environment,
			Release:          cfg.Server.Version,
			EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
			TracesSampleRate: cfg.Sentry.TracesSampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, cfg.Server.ServiceName, cfg.Server.Version)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	if cfg.Database.PasswordSecretARN != "" {
		store, err := secrets.NewAWSStore(ctx, secrets.AWSConfig{
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKey,
			SecretAccessKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			return err
		}
		password, err := store.DatabasePassword(ctx, cfg.Database.PasswordSecretARN)
		if err != nil {
			return err
		}
		cfg.Database.Password = password
		logger.Info("Database password loaded from Secrets Manager")
	}

	sqlDB, err := database.OpenSQL(&cfg.Database)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if cfg.Database.RunMigrations {
		if err := database.Migrate(sqlDB, cfg.Database.MigrationsPath, cfg.Database.DBName); err != nil {
			return err
		}
	}

	pool, err := database.NewPostgresPool(ctx, &cfg.Database, cfg.Server.ServiceName)
	if err != nil {
		return err
	}
	defer database.Close(pool)

	model, err := loadModel(ctx, cfg)
	if err != nil {
		return err
	}

	repo := scoring.NewRepository(pool, cfg.Scoring.InsertTimeout)
	tracker := scoring.NewRepeatSubmissionTracker(repo, cfg.Scoring.LookupTimeout)
	service := scoring.NewService(tracker, scoring.NewFeatureExtractor(nil), model, repo)
	handler := scoring.NewHandler(service, cfg.Scoring.IncludeProbability)

	checks := map[string]common.HealthCheckFunc{
		"postgres":        health.PoolChecker(pool),
		"postgres_direct": health.DatabaseChecker(sqlDB),
	}

	var limiter *ratelimit.Limiter
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		checks["redis"] = health.RedisChecker(redisClient.Client)
		if cfg.RateLimit.Enabled {
			limiter = ratelimit.NewLimiter(redisClient.Client, cfg.RateLimit)
		}
	}

	router := newRouter(routerDeps{
		cfg:          cfg,
		handler:      handler,
		limiter:      limiter,
		checks:       checks,
		modelVersion: service.ModelVersion(),
		sentry:       sentryEnabled,
	})

	return serve(ctx, cfg, router)
}

func loadModel(ctx context.Context, cfg *config.Config) (scoring.RiskModel, error) {
	var s3Reader storage.ObjectReader
	if cfg.Model.ServerURL == "" {
		if loc, err := storage.ParseURI(cfg.Model.ArtifactURI); err == nil && loc.Provider == storage.ProviderS3 {
			s3, err := storage.NewS3Storage(ctx, storage.S3Config{
				Region:    cfg.Storage.Region,
				Endpoint:  cfg.Storage.Endpoint,
				AccessKey: cfg.Storage.AccessKey,
				SecretKey: cfg.Storage.SecretKey,
			})
			if err != nil {
				return nil, err
			}
			s3Reader = s3
		}
	}
	return riskmodel.FromConfig(ctx, cfg.Model, storage.NewOpener(s3Reader))
}

func serve(ctx context.Context, cfg *config.Config, router http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout+cfg.Server.RequestTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Scoring service starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down scoring service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
