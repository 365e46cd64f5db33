package storage

import (
	"context"
	"fmt"
	"time"

	"clipwave/config"
	"clipwave/logger"
	"clipwave/model"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Gateway is the object-store contract the catalog depends on: it issues
// time-limited upload slots and resolves stored object keys to fetch URLs.
// Resolved URLs are time-limited and must never be persisted.
type Gateway interface {
	CreateUploadSlot(ctx context.Context) (model.UploadSlot, error)
	ResolveFetchURL(ctx context.Context, objectKey string) (string, error)
}

// MinioGateway implements Gateway against a MinIO/S3-compatible store.
type MinioGateway struct {
	client        *minio.Client
	bucket        string
	uploadSlotTTL time.Duration
	fetchURLTTL   time.Duration
}

// NewMinioGateway connects to MinIO and ensures the bucket exists.
func NewMinioGateway(cfg *config.Config) (*MinioGateway, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioGateway{
		client:        client,
		bucket:        cfg.MinioBucket,
		uploadSlotTTL: cfg.UploadSlotTTL,
		fetchURLTTL:   cfg.FetchURLTTL,
	}, nil
}

// CreateUploadSlot issues a presigned PUT URL for a fresh object key. The
// slot expires after the configured TTL; an unused slot needs no cleanup
// because nothing about it is recorded server-side.
func (g *MinioGateway) CreateUploadSlot(ctx context.Context) (model.UploadSlot, error) {
	objectKey := "audio/" + uuid.NewString()

	uploadURL, err := g.client.PresignedPutObject(ctx, g.bucket, objectKey, g.uploadSlotTTL)
	if err != nil {
		return model.UploadSlot{}, fmt.Errorf("failed to presign upload slot for %s: %w", objectKey, err)
	}

	return model.UploadSlot{
		UploadURL: uploadURL.String(),
		ObjectKey: objectKey,
		ExpiresAt: time.Now().Add(g.uploadSlotTTL),
	}, nil
}

// ResolveFetchURL turns a stored object key into a time-limited GET URL.
// A missing object is reported as an error so callers can degrade the
// affected field; it is not a data-integrity failure.
func (g *MinioGateway) ResolveFetchURL(ctx context.Context, objectKey string) (string, error) {
	if _, err := g.client.StatObject(ctx, g.bucket, objectKey, minio.StatObjectOptions{}); err != nil {
		return "", fmt.Errorf("object %s is unresolvable: %w", objectKey, err)
	}

	fetchURL, err := g.client.PresignedGetObject(ctx, g.bucket, objectKey, g.fetchURLTTL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign fetch URL for %s: %w", objectKey, err)
	}
	return fetchURL.String(), nil
}

// BucketStats summarizes the bucket contents for the inspection CLI.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// Stats walks the bucket and aggregates object counts and sizes.
func (g *MinioGateway) Stats(ctx context.Context, prefix string) (BucketStats, error) {
	var stats BucketStats

	objectCh := g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for object := range objectCh {
		if object.Err != nil {
			return stats, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
	}

	return stats, nil
}

// ListObjects prints the bucket contents, used by the storage subcommand.
func (g *MinioGateway) ListObjects(ctx context.Context, prefix string) error {
	objectCh := g.client.ListObjects(ctx, g.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
	for object := range objectCh {
		if object.Err != nil {
			return fmt.Errorf("failed to list objects: %w", object.Err)
		}
		fmt.Printf("%s\t%.2f MB\t%s\n", object.Key, float64(object.Size)/1024/1024, object.LastModified.Format(time.RFC3339))
	}
	return nil
}
