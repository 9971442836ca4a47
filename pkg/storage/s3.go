package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// S3Config holds the connection settings for an S3 compatible bucket
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// objectStore is the subset of *minio.Client used by S3Sink
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Sink uploads images to a bucket
type S3Sink struct {
	client objectStore
	config S3Config
}

// NewS3Sink connects to the endpoint and checks that the bucket exists
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("S3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("S3 access key and secret key are required")
	}

	endpoint := cfg.Endpoint
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return newS3Sink(ctx, client, cfg)
}

func newS3Sink(ctx context.Context, client objectStore, cfg S3Config) (*S3Sink, error) {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": cfg.Endpoint,
		"bucket":   cfg.Bucket,
	}).Info("Connected to S3 bucket")

	return &S3Sink{client: client, config: cfg}, nil
}

// Store uploads data under the configured prefix and returns its s3:// URL
func (s *S3Sink) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if name == "" {
		return "", ErrEmptyName
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := s.objectKey(name)
	info, err := s.client.PutObject(ctx, s.config.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logrus.WithFields(logrus.Fields{
		"key":  key,
		"size": info.Size,
		"etag": info.ETag,
	}).Debug("Uploaded object")

	return fmt.Sprintf("s3://%s/%s", s.config.Bucket, key), nil
}

func (s *S3Sink) objectKey(name string) string {
	prefix := strings.Trim(s.config.Prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
