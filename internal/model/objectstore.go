package model

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/foodvision/food-vision/internal/config"
)

const objectScheme = "s3://"

// IsObjectURI reports whether path names an object store checkpoint.
func IsObjectURI(path string) bool {
	return strings.HasPrefix(path, objectScheme)
}

// ParseObjectURI splits s3://bucket/key into bucket and key.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	if !IsObjectURI(uri) {
		return "", "", fmt.Errorf("not an object URI: %q", uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, objectScheme), "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("object URI must be s3://bucket/key, got %q", uri)
	}
	return bucket, key, nil
}

// ObjectStore fetches checkpoints from MinIO or any S3-compatible endpoint.
type ObjectStore struct {
	client *minio.Client
}

// NewObjectStore creates a client for the configured endpoint. It returns
// nil, nil when no endpoint is configured.
func NewObjectStore(cfg *config.StorageConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return &ObjectStore{client: client}, nil
}

// ErrObjectNotFound is returned when the checkpoint object does not exist.
var ErrObjectNotFound = errors.New("checkpoint object not found")

// Fetch downloads the whole object named by uri.
func (s *ObjectStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapObjectError(err)
	}
	return data, nil
}

func mapObjectError(err error) error {
	errResp := minio.ToErrorResponse(err)
	if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
		return ErrObjectNotFound
	}
	return err
}
