// Package replica mirrors stored images into S3-compatible object storage.
package replica

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	config "github.com/Hedok25/photo-services/internal/config/server"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Replica receives a copy of every newly stored image.
type Replica interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// MinioReplica implements Replica for MinIO/S3 compatible storage.
type MinioReplica struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioReplica connects to the endpoint and ensures the bucket exists.
func NewMinioReplica(ctx context.Context, cfg config.ReplicaServerConfig) (*MinioReplica, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("replica endpoint is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("replica bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &MinioReplica{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put uploads an object below the configured prefix.
func (m *MinioReplica) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, ObjectKey(m.prefix, key), r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// ObjectKey joins prefix and a root-relative file path, e.g. "images/001/a.jpg".
func ObjectKey(prefix, filePath string) string {
	key := path.Join(strings.Trim(prefix, "/"), strings.TrimPrefix(filePath, "/"))
	return strings.TrimPrefix(key, "/")
}
