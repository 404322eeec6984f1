// Package blob mirrors fetched artifacts to S3-compatible object storage.
// The mirror is optional: the pipeline works from local disk and treats
// every blob failure as log-and-continue.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ternarybob/arbor"

	"github.com/openkenya/hazina/internal/common"
	"github.com/openkenya/hazina/internal/interfaces"
)

// S3Store mirrors artifacts into one bucket under content-addressed keys.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	logger  arbor.ILogger
}

var _ interfaces.BlobStore = (*S3Store)(nil)

// NewS3Store builds the S3 client from the default AWS config chain. A
// custom endpoint (MinIO, LocalStack) switches the client to path-style
// addressing.
func NewS3Store(ctx context.Context, config common.BlobConfig, logger arbor.ILogger) (*S3Store, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("blob store: bucket not configured")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(config.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := config.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	logger.Info().
		Str("bucket", config.Bucket).
		Str("endpoint", config.Endpoint).
		Msg("Blob mirror enabled")

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  config.Bucket,
		ttl:     ttl,
		logger:  logger,
	}, nil
}

// Head reports whether key already exists in the bucket. A missing key is
// not an error.
func (s *S3Store) Head(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("head %s: %w", key, err)
	}
	return true, nil
}

// Put streams the file at filePath to key.
func (s *S3Store) Put(ctx context.Context, key, filePath, contentType string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Presign returns a time-limited GET URL for key. ttl <= 0 uses the
// configured default.
func (s *S3Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
