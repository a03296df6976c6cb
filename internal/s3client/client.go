// Package s3client keeps database fixture dumps in S3-compatible object
// storage so CI jobs and developer machines repopulate from the same
// snapshot. For tests, use TestClient, which is backed by gofakes3.
package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/kuitang/drupal-e2e/internal/errs"
	"github.com/kuitang/drupal-e2e/internal/obs"
)

const dumpContentType = "application/sql"

// Client stores dumps under an optional key prefix in one bucket.
type Client struct {
	s3Client   *s3.Client
	bucketName string
	prefix     string
}

// Config holds the configuration for creating a Client.
type Config struct {
	// Endpoint is the S3 endpoint URL (e.g. "http://minio:9000").
	// Leave empty to use default AWS S3.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Prefix          string
	// UsePathStyle enables path-style addressing (MinIO, gofakes3).
	UsePathStyle bool
}

// New creates a Client. Without static keys the default AWS credential chain
// is used.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errs.New(errs.InvalidArgument, "dump store bucket is required")
	}
	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "load AWS config", err)
	}

	s3Client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewFromS3Client(s3Client, cfg.BucketName, cfg.Prefix), nil
}

// NewFromS3Client creates a Client from an existing S3 client.
func NewFromS3Client(s3Client *s3.Client, bucketName, prefix string) *Client {
	return &Client{
		s3Client:   s3Client,
		bucketName: bucketName,
		prefix:     strings.Trim(prefix, "/"),
	}
}

// Key returns the object key for a dump name.
func (c *Client) Key(name string) string {
	name = strings.TrimPrefix(name, "/")
	if c.prefix == "" {
		return name
	}
	return path.Join(c.prefix, name)
}

// Upload stores the file at localPath under name.
func (c *Client) Upload(ctx context.Context, name, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errs.Wrap(errs.NotFound, "open dump "+localPath, err)
	}
	defer f.Close()

	key := c.Key(name)
	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(dumpContentType),
	})
	if err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("upload s3://%s/%s", c.bucketName, key), err)
	}
	obs.From(ctx, "s3client").Info("dump uploaded", "bucket", c.bucketName, "key", key)
	return nil
}

// Download writes the object stored under name to localPath, replacing it
// only once the whole object has been read.
func (c *Client) Download(ctx context.Context, name, localPath string) error {
	key := c.Key(name)
	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return c.objectErr(key, err)
	}
	defer result.Body.Close()

	dir := filepath.Dir(localPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".dump-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, result.Body)
	if err != nil {
		tmp.Close()
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("read s3://%s/%s", c.bucketName, key), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), localPath); err != nil {
		return fmt.Errorf("replace %s: %w", localPath, err)
	}
	obs.From(ctx, "s3client").Info("dump downloaded", "bucket", c.bucketName, "key", key, "bytes", n)
	return nil
}

// Delete removes the object stored under name. Missing objects are not an
// error.
func (c *Client) Delete(ctx context.Context, name string) error {
	key := c.Key(name)
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("delete s3://%s/%s", c.bucketName, key), err)
	}
	return nil
}

// BucketName returns the configured bucket name.
func (c *Client) BucketName() string {
	return c.bucketName
}

func (c *Client) objectErr(key string, err error) error {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &notFound) {
		return errs.Wrap(errs.NotFound, fmt.Sprintf("no dump at s3://%s/%s", c.bucketName, key), err)
	}
	return errs.Wrap(errs.Unavailable, fmt.Sprintf("fetch s3://%s/%s", c.bucketName, key), err)
}
