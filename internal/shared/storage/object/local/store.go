package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"logistics-backend/internal/shared/storage/object"
	"logistics-backend/internal/shared/telemetry"
	"logistics-backend/internal/shared/util"
)

var openFile = func(name string) (io.ReadCloser, error) { return os.Open(name) }

// Store implements ObjectStore using the local filesystem. It backs development
// deployments and serves files uploaded before the move to object storage.
type Store struct {
	baseDir   string
	urlPrefix string
}

// New creates a new local object store rooted at baseDir. urlPrefix is the
// path the legacy static file server exposed the root under.
func New(baseDir, urlPrefix string) *Store {
	return &Store{baseDir: baseDir, urlPrefix: urlPrefix}
}

// Put writes data to disk at key, replacing any existing file.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string, public bool) (object.Reference, error) {
	if err := ctx.Err(); err != nil {
		return object.Reference{}, fmt.Errorf("%w: %w", object.ErrWriteFailed, err)
	}
	fullPath, clean, err := s.resolve(key)
	if err != nil {
		return object.Reference{}, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return object.Reference{}, fmt.Errorf("%w: mkdir: %w", object.ErrWriteFailed, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return object.Reference{}, fmt.Errorf("%w: create temp: %w", object.ErrWriteFailed, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return object.Reference{}, fmt.Errorf("%w: write body: %w", object.ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return object.Reference{}, fmt.Errorf("%w: close: %w", object.ErrWriteFailed, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return object.Reference{}, fmt.Errorf("%w: chmod: %w", object.ErrWriteFailed, err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		os.Remove(tmpName)
		return object.Reference{}, fmt.Errorf("%w: rename: %w", object.ErrWriteFailed, err)
	}

	ref := object.Reference{
		Scheme: object.SchemeLocal,
		Key:    clean,
	}
	if public {
		ref.PublicURL = s.urlFor(clean)
	}
	return ref, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, _, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := openFile(fullPath)
	if err != nil {
		return nil, classify(err, key)
	}
	return f, nil
}

// Delete removes the file at key. Missing files are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, _, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		telemetry.Error("storage.delete.failed", map[string]any{
			"backend": "local",
			"key":     key,
			"error":   err.Error(),
		})
		return fmt.Errorf("%w: %w", object.ErrDeleteFailed, err)
	}
	return nil
}

// Exists reports whether a regular file is stored at key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Stat returns the size of the file at key and a content type guessed from its extension.
func (s *Store) Stat(ctx context.Context, key string) (object.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return object.Metadata{}, err
	}
	fullPath, clean, err := s.resolve(key)
	if err != nil {
		return object.Metadata{}, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		return object.Metadata{}, classify(err, key)
	}
	if info.IsDir() {
		return object.Metadata{}, fmt.Errorf("%w: %s is a directory", object.ErrNotFound, key)
	}
	contentType := mime.TypeByExtension(path.Ext(clean))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return object.Metadata{Size: info.Size(), ContentType: contentType}, nil
}

func (s *Store) resolve(key string) (string, string, error) {
	clean, err := util.CleanKey(key)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", object.ErrInvalidKey, key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), clean, nil
}

func (s *Store) urlFor(key string) string {
	if s.urlPrefix == "" {
		return ""
	}
	return strings.TrimRight(s.urlPrefix, "/") + "/" + key
}

func classify(err error, key string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", object.ErrNotFound, key)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %w", object.ErrUnreadable, key, err)
	default:
		return fmt.Errorf("%w: %s: %w", object.ErrReadFailed, key, err)
	}
}

var _ object.ObjectStore = (*Store)(nil)
