// Package storage syncs the raw document set with a MinIO bucket. The
// bucket is an optional remote counterpart of the local documents directory:
// the downloader can push PDFs there and the server pulls them down before
// fingerprinting.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/achiit/digital-country-hackathon-etibet-2025/internal/config"
	"github.com/achiit/digital-country-hackathon-etibet-2025/pkg/log"
)

// Client wraps a MinIO client bound to one bucket.
type Client struct {
	mc     *minio.Client
	bucket string
}

// NewClient connects to MinIO and ensures the configured bucket exists.
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx := context.Background()
	exists, err := mc.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check minio bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create minio bucket: %w", err)
		}
		log.Infof("[Storage] bucket '%s' created", cfg.BucketName)
	}
	return &Client{mc: mc, bucket: cfg.BucketName}, nil
}

// Upload stores a local file under its base name in the bucket.
func (c *Client) Upload(ctx context.Context, path string) error {
	objectName := filepath.Base(path)
	_, err := c.mc.FPutObject(ctx, c.bucket, objectName, path, minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// SyncTo downloads every PDF object in the bucket into dir, skipping objects
// whose local copy already has the same size. Returns how many objects were
// fetched.
func (c *Client) SyncTo(ctx context.Context, dir string) (int, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return 0, fmt.Errorf("failed to create documents dir: %w", err)
	}

	fetched := 0
	for object := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{}) {
		if object.Err != nil {
			return fetched, fmt.Errorf("failed to list bucket: %w", object.Err)
		}
		if !strings.EqualFold(filepath.Ext(object.Key), ".pdf") {
			continue
		}
		local := filepath.Join(dir, object.Key)
		if info, err := os.Stat(local); err == nil && info.Size() == object.Size {
			continue
		}
		if err := c.mc.FGetObject(ctx, c.bucket, object.Key, local, minio.GetObjectOptions{}); err != nil {
			log.Warnf("[Storage] failed to fetch %s: %v", object.Key, err)
			continue
		}
		fetched++
	}
	return fetched, nil
}
