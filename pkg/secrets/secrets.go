package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var (
	// ErrInvalidReference indicates an empty secret id.
	ErrInvalidReference = errors.New("secrets: invalid reference")
	// ErrKeyNotFound is returned when a requested key does not exist in the secret payload.
	ErrKeyNotFound = errors.New("secrets: key not found")
)

// AWSConfig configures the AWS Secrets Manager client.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// GetSecretValueAPI is the subset of the Secrets Manager client used here.
type GetSecretValueAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Store reads secrets from AWS Secrets Manager.
type Store struct {
	client GetSecretValueAPI
}

// NewAWSStore builds a Store from the default AWS credential chain.
func NewAWSStore(ctx context.Context, cfg AWSConfig) (*Store, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("secrets: aws provider requires region")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.NewCredentialsCache(staticProvider)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to load aws config: %w", err)
	}

	var smOpts []func(*secretsmanager.Options)
	if cfg.Endpoint != "" {
		smOpts = append(smOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return NewStore(secretsmanager.NewFromConfig(awsCfg, smOpts...)), nil
}

// NewStore wraps an existing client.
func NewStore(client GetSecretValueAPI) *Store {
	return &Store{client: client}
}

// Fetch returns the secret payload as a map. JSON object secrets are
// flattened; any other string is stored under "value".
func (s *Store) Fetch(ctx context.Context, secretID string) (map[string]string, error) {
	if secretID == "" {
		return nil, ErrInvalidReference
	}

	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return nil, fmt.Errorf("secrets: aws fetch failed for %s: %w", secretID, err)
	}

	payload := make(map[string]string)
	if result.SecretString != nil {
		str := *result.SecretString
		var asMap map[string]string
		if err := json.Unmarshal([]byte(str), &asMap); err == nil {
			for k, v := range asMap {
				payload[k] = v
			}
		} else {
			payload["value"] = str
		}
	}

	return payload, nil
}

// DatabasePassword resolves a database password from an RDS-style secret
// (JSON with a "password" key) or a plain string secret.
func (s *Store) DatabasePassword(ctx context.Context, secretID string) (string, error) {
	payload, err := s.Fetch(ctx, secretID)
	if err != nil {
		return "", err
	}
	if v, ok := payload["password"]; ok && v != "" {
		return v, nil
	}
	if v, ok := payload["value"]; ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: password in %s", ErrKeyNotFound, secretID)
}
