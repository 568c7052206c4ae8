package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"vetting/pkg/platform/sentinel"
)

// S3Config addresses an AWS S3 bucket. EndpointURL switches to path-style
// addressing for LocalStack and similar.
type S3Config struct {
	Region      string
	Bucket      string
	AccessKeyID string
	SecretKey   string
	EndpointURL string
}

// S3 stores documents in AWS S3.
type S3 struct {
	client *s3.Client
	bucket string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.EndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		})
	}
	return &S3{client: s3.NewFromConfig(awsCfg, clientOpts...), bucket: cfg.Bucket}, nil
}

func (s *S3) Put(ctx context.Context, content []byte, meta Metadata) (string, error) {
	key := newKey(meta)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(meta.ContentType),
		Metadata:      meta.userMetadata(),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return key, nil
}

func (s *S3) Get(ctx context.Context, ref string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3 get %s: %w", ref, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 get %s: %w: %w", ref, sentinel.ErrUnavailable, err)
	}
	defer out.Body.Close()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read %s: %w: %w", ref, sentinel.ErrUnavailable, err)
	}
	return b, nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w: %w", ref, sentinel.ErrUnavailable, err)
	}
	return nil
}
