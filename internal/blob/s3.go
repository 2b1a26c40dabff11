package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // Optional; set for MinIO and other S3-compatible servers
	AccessKey string // Optional; the default AWS credential chain is used when empty
	SecretKey string
	// UsePathStyle addresses objects as <endpoint>/<bucket>/<key>.
	UsePathStyle bool
	// PublicBaseURL overrides the URL prefix written into documents.
	PublicBaseURL string
}

// S3 stores blobs in an S3 bucket.
type S3 struct {
	client  *s3.Client
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewS3 builds an S3 client from cfg.
func NewS3(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBaseURL(cfg),
		logger:  logger,
	}, nil
}

func publicBaseURL(cfg S3Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "" && cfg.UsePathStyle:
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	case cfg.Endpoint != "":
		scheme, host, ok := strings.Cut(strings.TrimRight(cfg.Endpoint, "/"), "://")
		if !ok {
			return "https://" + cfg.Bucket + "." + scheme
		}
		return scheme + "://" + cfg.Bucket + "." + host
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// Upload implements Store.
func (s *S3) Upload(ctx context.Context, name, contentType string, body io.Reader) (Object, error) {
	// Request signing needs a seekable body.
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return Object{}, fmt.Errorf("read upload: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	key := ObjectKey(name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   rs,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}

	s.logger.Debug("blob stored", "bucket", s.bucket, "key", key)
	return Object{URL: s.baseURL + "/" + key, Key: key}, nil
}

// Delete implements Store.
func (s *S3) Delete(ctx context.Context, url string) error {
	key, ok := keyFromURL(s.baseURL, url)
	if !ok {
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var noSuchKey *types.NoSuchKey
	if err != nil && !errors.As(err, &noSuchKey) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
