package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/richxcame/loan-risk/pkg/logger"
	"go.uber.org/zap"
)

// GetObjectAPI is the subset of the S3 client used here
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Storage reads objects from AWS S3 or an S3-compatible endpoint
type S3Storage struct {
	client GetObjectAPI
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region    string
	Endpoint  string // For S3-compatible storage (MinIO, etc.)
	AccessKey string
	SecretKey string
}

// NewS3Storage creates a new S3 storage instance
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	// Use explicit credentials if provided
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewS3StorageWithClient(s3.NewFromConfig(awsCfg, s3Opts...)), nil
}

// NewS3StorageWithClient wraps an existing client
func NewS3StorageWithClient(client GetObjectAPI) *S3Storage {
	return &S3Storage{client: client}
}

// Download opens bucket/key for reading. The object's ETag and version are
// logged so a loaded model artifact can be traced back to the exact object.
func (s *S3Storage) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	log := logger.WithContext(ctx).With(zap.String("bucket", bucket), zap.String("key", key))

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error("Failed to download from S3", zap.Error(err))
		return nil, fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}

	log.Info("Opened S3 object",
		zap.String("etag", aws.ToString(output.ETag)),
		zap.String("version_id", aws.ToString(output.VersionId)),
		zap.Int64("content_length", aws.ToInt64(output.ContentLength)),
	)
	return output.Body, nil
}
