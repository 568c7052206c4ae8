package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vetting/pkg/platform/sentinel"
)

// MinIOConfig addresses an S3-compatible MinIO deployment.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIO stores documents in a MinIO bucket. Safe for concurrent use.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO validates connectivity and creates the bucket when missing.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	return &MinIO{client: cli, bucket: cfg.Bucket}, nil
}

func (m *MinIO) Put(ctx context.Context, content []byte, meta Metadata) (string, error) {
	key := newKey(meta)
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType:  meta.ContentType,
		UserMetadata: meta.userMetadata(),
	})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return key, nil
}

func (m *MinIO) Get(ctx context.Context, ref string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get %s: %w: %w", ref, sentinel.ErrUnavailable, err)
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("minio get %s: %w", ref, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("minio read %s: %w: %w", ref, sentinel.ErrUnavailable, err)
	}
	return b, nil
}

func (m *MinIO) Delete(ctx context.Context, ref string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio delete %s: %w: %w", ref, sentinel.ErrUnavailable, err)
	}
	return nil
}
