package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"medvault-server/config"
	"medvault-server/internal/apperr"
	"medvault-server/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIO stores blobs in a single bucket. Object refs are object names.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO initializes the MinIO client and creates the bucket if it doesn't exist
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig) (*MinIO, error) {
	// Initialize MinIO client
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// Check if bucket exists
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	// Create bucket if it doesn't exist
	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info.Printf("Created bucket: %s", cfg.BucketName)
	} else {
		logger.Info.Printf("Bucket already exists: %s", cfg.BucketName)
	}

	logger.Info.Println("MinIO client initialized successfully")
	return &MinIO{client: client, bucket: cfg.BucketName}, nil
}

// Put uploads size bytes from r under key and returns the object ref.
func (m *MinIO) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", apperr.Remote("put object", err)
	}
	return key, nil
}

// URL returns a presigned download URL. It fails when the object is gone.
func (m *MinIO) URL(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	if _, err := m.client.StatObject(ctx, m.bucket, ref, minio.StatObjectOptions{}); err != nil {
		return "", translate("stat object", err)
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, ref, ttl, nil)
	if err != nil {
		return "", apperr.Remote("presign object", err)
	}
	return u.String(), nil
}

// Open streams the object's bytes.
func (m *MinIO) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if _, err := m.client.StatObject(ctx, m.bucket, ref, minio.StatObjectOptions{}); err != nil {
		return nil, translate("stat object", err)
	}
	obj, err := m.client.GetObject(ctx, m.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate("get object", err)
	}
	return obj, nil
}

// Delete removes the object. Removing a missing object succeeds.
func (m *MinIO) Delete(ctx context.Context, ref string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, ref, minio.RemoveObjectOptions{}); err != nil {
		return apperr.Remote("remove object", err)
	}
	return nil
}

func translate(op string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return apperr.Wrap(apperr.CodeNotFound, "object not found", err)
	}
	return apperr.Remote(op, err)
}
