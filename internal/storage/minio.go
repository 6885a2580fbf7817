package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var _ Storage = (*MinioStorage)(nil)

type MinioStorage struct {
	client *miniosdk.Client
	bucket string
}

type MinioOptions struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

// NewMinioStorage connects to a MinIO server and creates the bucket when it
// does not exist yet.
func NewMinioStorage(ctx context.Context, opts MinioOptions) (*MinioStorage, error) {
	if opts.Endpoint == "" || opts.Bucket == "" {
		return nil, errors.New("minio: endpoint and bucket are required")
	}
	client, err := miniosdk.New(opts.Endpoint, &miniosdk.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio bucket check: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, miniosdk.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio make bucket: %w", err)
		}
	}
	return &MinioStorage{client: client, bucket: opts.Bucket}, nil
}

func isNoSuchKey(err error) bool {
	return miniosdk.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *MinioStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, body, -1, miniosdk.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *MinioStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, miniosdk.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key before the first read.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, miniosdk.RemoveObjectOptions{})
}

func (s *MinioStorage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, miniosdk.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
