package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"duetfm/config"
	"duetfm/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Buckets used by the library. Audio blobs and cover images are kept apart.
const (
	BucketAudio  = "audio"
	BucketCovers = "covers"
)

// ObjectStore is the object storage surface the library store depends on.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error
	PublicURL(bucket, objectName string) string
}

// MinioStore is the MinIO-backed ObjectStore.
type MinioStore struct {
	client         *minio.Client
	publicEndpoint string
	useSSL         bool
}

// NewMinioStore connects to MinIO and makes sure both buckets exist.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, bucket := range []string{BucketAudio, BucketCovers} {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
				return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
			logger.Info("created bucket", logger.String("bucket", bucket))
		}
	}

	publicEndpoint := cfg.MinioPublicEndpoint
	if publicEndpoint == "" {
		publicEndpoint = cfg.MinioEndpoint
	}

	return &MinioStore{
		client:         client,
		publicEndpoint: publicEndpoint,
		useSSL:         cfg.MinioUseSSL,
	}, nil
}

// Upload stores an object in the given bucket.
func (s *MinioStore) Upload(ctx context.Context, bucket, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// PublicURL returns the URL the browser fetches the object from. Buckets are
// served with public read policy behind the configured public endpoint.
func (s *MinioStore) PublicURL(bucket, objectName string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.publicEndpoint, bucket, objectName)
}
