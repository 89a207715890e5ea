package object

import (
	"context"
	"errors"
	"io"
)

// Scheme identifies which backend a reference lives in.
type Scheme string

const (
	SchemeCloud Scheme = "cloud"
	SchemeLocal Scheme = "local"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrUnreadable   = errors.New("object unreadable")
	ErrWriteFailed  = errors.New("storage write failed")
	ErrDeleteFailed = errors.New("storage delete failed")
	ErrReadFailed   = errors.New("storage read failed")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// Reference locates a stored object. It is immutable once issued.
type Reference struct {
	Scheme    Scheme `json:"scheme"`
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	PublicURL string `json:"publicUrl,omitempty"`
}

// Metadata is what Stat reports about an object.
type Metadata struct {
	Size        int64
	ContentType string
}

// ObjectStore defines the contract for saving and retrieving binary objects.
// Implementations are safe for concurrent use.
type ObjectStore interface {
	// Put writes data under key. public asks for a world-readable object and a PublicURL.
	Put(ctx context.Context, key string, data []byte, contentType string, public bool) (Reference, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Stat(ctx context.Context, key string) (Metadata, error)
}
