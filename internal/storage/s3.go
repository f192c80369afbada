package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/banking/kyc-service/internal/config"
)

// S3Store keeps raw document bytes in an S3 compatible bucket.
// Locations returned by Put are "s3://<bucket>/<key>".
type S3Store struct {
	client  *s3.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3Store creates a new S3-backed document store
func NewS3Store(ctx context.Context, cfg *config.StorageConfig) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // MinIO
		}
	})

	return NewS3StoreWithClient(client, cfg), nil
}

// NewS3StoreWithClient wraps an existing client
func NewS3StoreWithClient(client *s3.Client, cfg *config.StorageConfig) *S3Store {
	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
	}
}

// Put uploads data under key and returns its location
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fullKey := s.prefix + key

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(fullKey),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(int64(len(data))),
		ServerSideEncryption: "AES256",
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed for %s: %w", fullKey, err)
	}

	return s.location(fullKey), nil
}

// Get downloads the object at location
func (s *S3Store) Get(ctx context.Context, location string) ([]byte, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key, err := s.keyOf(location)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed for %s: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	return io.ReadAll(result.Body)
}

// Delete removes the object at location
func (s *S3Store) Delete(ctx context.Context, location string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key, err := s.keyOf(location)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete failed for %s: %w", key, err)
	}
	return nil
}

// Ping checks the bucket is reachable
func (s *S3Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("s3 head bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Store) location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func (s *S3Store) keyOf(location string) (string, error) {
	p := "s3://" + s.bucket + "/"
	if !strings.HasPrefix(location, p) || len(location) == len(p) {
		return "", fmt.Errorf("invalid location for bucket %s: %q", s.bucket, location)
	}
	return strings.TrimPrefix(location, p), nil
}

func (s *S3Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
