package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3SinkName = "s3"

// S3API is the subset of the S3 client the sink needs. It exists so tests
// can inject a mock.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink archives query transcripts to an AWS S3 bucket under date
// partitioned keys.
type S3Sink struct {
	client   S3API
	bucket   string
	prefix   string
	logger   *slog.Logger
	retryCfg retryConfig

	nowFunc func() time.Time
}

// S3Config holds configuration for the S3 sink.
type S3Config struct {
	Bucket string
	Region string
	Prefix string
}

// NewS3Sink creates a new S3 sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Sink, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 sink: region must not be empty")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3 sink: loading AWS config: %w", err)
	}
	return NewS3SinkWithClient(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix, logger)
}

// NewS3SinkWithClient creates an S3Sink with a pre-configured client.
func NewS3SinkWithClient(client S3API, bucket, prefix string, logger *slog.Logger) (*S3Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("s3 sink: client must not be nil")
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 sink: bucket must not be empty")
	}
	if logger == nil {
		return nil, errNilLogger
	}
	return &S3Sink{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
		retryCfg: defaultRetryConfig(),
		nowFunc:  time.Now,
	}, nil
}

// Name returns "s3".
func (s *S3Sink) Name() string {
	return s3SinkName
}

// Deliver uploads the transcript as JSON to S3 with retry logic.
func (s *S3Sink) Deliver(ctx context.Context, t *Transcript) error {
	if t == nil {
		return errNilTranscript
	}
	return deliverWithRetry(ctx, s.logger, s3SinkName, s.retryCfg, func(ctx context.Context) error {
		return s.deliver(ctx, t)
	})
}

func (s *S3Sink) deliver(ctx context.Context, t *Transcript) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("s3 sink: marshaling transcript: %w", err)
	}

	key := s.objectKey(t)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 sink: uploading to s3://%s/%s: %w", s.bucket, key, err)
	}

	s.logger.Info("transcript archived to S3",
		"sink", s3SinkName,
		"bucket", s.bucket,
		"key", key,
	)
	return nil
}

// objectKey generates the S3 object key for a transcript using the
// configured prefix, date partitioning, and a nanosecond timestamp to keep
// keys unique within a day.
func (s *S3Sink) objectKey(t *Transcript) string {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = s.nowFunc().UTC()
	}
	return fmt.Sprintf("%s%s/%s.json",
		s.prefix,
		ts.Format("2006/01/02"),
		ts.Format("150405.000000000"),
	)
}
