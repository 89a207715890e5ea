package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"logistics-backend/internal/shared/storage/object"
	"logistics-backend/internal/shared/telemetry"
)

// Options configures the MinIO client.
type Options struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	Region        string
	PublicBaseURL string
}

// Store implements ObjectStore on a MinIO server.
type Store struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// New connects to MinIO and creates the bucket when it is missing.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
		telemetry.Info("storage.bucket.created", map[string]any{"backend": "minio", "bucket": opts.Bucket})
	}

	publicBase := strings.TrimRight(strings.TrimSpace(opts.PublicBaseURL), "/")
	if publicBase == "" {
		publicBase = client.EndpointURL().String()
	}
	return &Store{client: client, bucket: opts.Bucket, publicBaseURL: publicBase}, nil
}

// Put uploads data to key. MinIO grants public access by bucket policy, so
// public only controls whether a URL is returned.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string, public bool) (object.Reference, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return object.Reference{}, fmt.Errorf("%w: minio put object bucket=%s key=%s: %w", object.ErrWriteFailed, s.bucket, key, err)
	}
	ref := object.Reference{Scheme: object.SchemeCloud, Bucket: s.bucket, Key: key}
	if public {
		ref.PublicURL = s.publicBaseURL + "/" + s.bucket + "/" + key
	}
	return ref, nil
}

// Open returns a streaming reader for key. The object is stat'ed first so a
// missing key fails here instead of on the first Read.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readErr(key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s.readErr(key, err)
	}
	return obj, nil
}

// Delete removes key. MinIO reports success for missing keys.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		telemetry.Error("storage.delete.failed", map[string]any{
			"backend": "minio",
			"bucket":  s.bucket,
			"key":     key,
			"error":   err.Error(),
		})
		return fmt.Errorf("%w: minio remove object bucket=%s key=%s: %w", object.ErrDeleteFailed, s.bucket, key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, s.readErr(key, err)
	}
	return true, nil
}

// Stat returns the object's size and content type.
func (s *Store) Stat(ctx context.Context, key string) (object.Metadata, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return object.Metadata{}, s.readErr(key, err)
	}
	return object.Metadata{Size: info.Size, ContentType: info.ContentType}, nil
}

func (s *Store) readErr(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %s", object.ErrNotFound, key)
	}
	return fmt.Errorf("%w: minio bucket=%s key=%s: %w", object.ErrReadFailed, s.bucket, key, err)
}

func isNotFound(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		resp = minio.ToErrorResponse(err)
	}
	switch resp.Code {
	case "NoSuchKey", "NoSuchObject", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound
}

var _ object.ObjectStore = (*Store)(nil)
