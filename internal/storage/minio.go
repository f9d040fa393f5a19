package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioStorage keeps profile images in an S3-compatible bucket and hands
// back public URLs; only the URL is stored on the user record.
type MinioStorage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewMinioStorage(endpoint, accessKey, secretKey, bucketName string, useSSL bool, logger *zap.Logger) (*MinioStorage, error) {
	logger = logger.Named("MinioStorage")
	logger.Info("Initializing object storage", zap.String("endpoint", endpoint), zap.String("bucket", bucketName))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		logger.Error("Failed to create minio client", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	err = client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{})
	if err != nil {
		exists, errBucketExists := client.BucketExists(context.Background(), bucketName)
		if errBucketExists != nil || !exists {
			logger.Error("Failed to make or verify bucket", zap.String("bucket", bucketName), zap.Error(err))
			return nil, fmt.Errorf("failed to make/verify bucket %s: %w", bucketName, err)
		}
		logger.Info("Bucket already exists", zap.String("bucket", bucketName))
	}

	return &MinioStorage{
		client: client,
		bucket: bucketName,
		logger: logger,
	}, nil
}

// Upload stores data under a fresh object key that keeps the original
// extension, and returns the object's URL.
func (s *MinioStorage) Upload(ctx context.Context, originalFileName, contentType string, data []byte) (string, error) {
	ext := filepath.Ext(originalFileName)
	objectKey := fmt.Sprintf("profiles/%s%s", uuid.New().String(), ext)

	s.logger.Info("Uploading profile image",
		zap.String("bucket", s.bucket),
		zap.String("objectKey", objectKey),
		zap.Int("size", len(data)))

	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		s.logger.Error("Failed to upload object", zap.String("objectKey", objectKey), zap.Error(err))
		return "", fmt.Errorf("failed to upload %s: %w", objectKey, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, objectKey)
	s.logger.Info("Profile image uploaded", zap.String("url", url))
	return url, nil
}
