// Package objectstore uploads artifacts to S3-compatible object storage.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
)

// objectAPI is the subset of *minio.Client the store needs.
type objectAPI interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Config selects the endpoint, bucket and key prefix.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Store uploads each artifact to <prefix>/<family>/<file name>.
type Store struct {
	client objectAPI
	bucket string
	prefix string
	logger *slog.Logger
}

// New connects a Store to the configured endpoint.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	return newStore(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newStore(client objectAPI, bucket, prefix string, logger *slog.Logger) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix, logger: logger}
}

// Name identifies the store in logs and metrics.
func (s *Store) Name() string { return "s3" }

// Prepare creates the bucket when it does not exist.
func (s *Store) Prepare(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("bucket created", "bucket", s.bucket)
	return nil
}

// Track uploads the artifact's file.
func (s *Store) Track(ctx context.Context, a domain.Artifact) error {
	key := s.Key(a)
	info, err := s.client.FPutObject(ctx, s.bucket, key, a.Path, minio.PutObjectOptions{
		ContentType:  contentType(a.Path),
		UserMetadata: metadata(a),
	})
	if err != nil {
		return fmt.Errorf("upload %s to %s/%s: %w", a.Path, s.bucket, key, err)
	}
	s.logger.Info("artifact uploaded", "bucket", s.bucket, "key", key, "size", info.Size)
	return nil
}

// Key is the object name for an artifact.
func (s *Store) Key(a domain.Artifact) string {
	return path.Join(s.prefix, string(a.Family), a.Name())
}

func metadata(a domain.Artifact) map[string]string {
	m := map[string]string{
		"run-id":     a.RunID,
		"kind":       string(a.Kind),
		"written-at": a.WrittenAt.UTC().Format(time.RFC3339),
	}
	if a.Rows > 0 {
		m["rows"] = strconv.Itoa(a.Rows)
	}
	return m
}

func contentType(p string) string {
	switch filepath.Ext(p) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".html":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
