package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// minioBackend stores objects in an S3-compatible bucket.
type minioBackend struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

func NewMinioBackend(ctx context.Context, cfg config.MinioConfig) (Backend, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	mb := &minioBackend{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.WithField("component", "minio-storage"),
	}

	mb.logger.Debug("minio storage backend initialized", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)
	return mb, nil
}

func (mb *minioBackend) Write(ctx context.Context, key string, r io.Reader) (int64, error) {
	// size -1 lets the client stream with multipart uploads
	info, err := mb.client.PutObject(ctx, mb.bucket, key, r, -1, minio.PutObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}

	mb.logger.Debug("object written", "key", key, "bytes", info.Size)
	return info.Size, nil
}

func (mb *minioBackend) ReadRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	// GetObject defers errors to the first Read, so surface a missing
	// key here the same way the local backend does
	if _, err := mb.Stat(ctx, key); err != nil {
		return nil, err
	}

	if length == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	opts := minio.GetObjectOptions{}
	if length > 0 {
		if err := opts.SetRange(offset, offset+length-1); err != nil {
			return nil, fmt.Errorf("failed to set range for %s: %w", key, err)
		}
	} else if offset > 0 {
		if err := opts.SetRange(offset, 0); err != nil {
			return nil, fmt.Errorf("failed to set range for %s: %w", key, err)
		}
	}

	obj, err := mb.client.GetObject(ctx, mb.bucket, key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	return obj, nil
}

func (mb *minioBackend) Stat(ctx context.Context, key string) (int64, error) {
	info, err := mb.client.StatObject(ctx, mb.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return 0, apperrors.NewNotFound("object", key)
		}
		return 0, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	return info.Size, nil
}

func (mb *minioBackend) Delete(ctx context.Context, key string) error {
	if err := mb.client.RemoveObject(ctx, mb.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	mb.logger.Debug("object deleted", "key", key)
	return nil
}

func (mb *minioBackend) DeletePrefix(ctx context.Context, prefix string) error {
	for object := range mb.client.ListObjects(ctx, mb.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return fmt.Errorf("failed to list prefix %s: %w", prefix, object.Err)
		}
		if err := mb.client.RemoveObject(ctx, mb.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to delete %s: %w", object.Key, err)
		}
	}

	mb.logger.Debug("prefix deleted", "prefix", prefix)
	return nil
}
