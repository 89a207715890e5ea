package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"logistics-backend/internal/shared/storage/object"
)

// memStore is an in-memory object store used across the package tests.
type memStore struct {
	mu      sync.Mutex
	scheme  object.Scheme
	bucket  string
	baseURL string
	objects map[string]memObject

	putErr  error
	openErr error
	// existsOverride forces Exists to report false while Stat and Open still succeed.
	existsOverride *bool
	openCalls      int
}

type memObject struct {
	data        []byte
	contentType string
}

func newMemStore(scheme object.Scheme) *memStore {
	return &memStore{
		scheme:  scheme,
		bucket:  "docs",
		baseURL: "https://cdn.example.com",
		objects: map[string]memObject{},
	}
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string, public bool) (object.Reference, error) {
	if m.putErr != nil {
		return object.Reference{}, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: append([]byte(nil), data...), contentType: contentType}
	ref := object.Reference{Scheme: m.scheme, Bucket: m.bucket, Key: key}
	if public {
		ref.PublicURL = m.baseURL + "/" + m.bucket + "/" + key
	}
	return ref, nil
}

func (m *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	if m.openErr != nil {
		return nil, m.openErr
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsOverride != nil {
		return *m.existsOverride, nil
	}
	_, err := m.Stat(ctx, key)
	if errors.Is(err, object.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memStore) Stat(ctx context.Context, key string) (object.Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return object.Metadata{}, fmt.Errorf("%w: %s", object.ErrNotFound, key)
	}
	return object.Metadata{Size: int64(len(obj.data)), ContentType: obj.contentType}, nil
}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// failingRepo wraps a MemoryRepo and fails metadata writes.
type failingRepo struct {
	*MemoryRepo
	upsertErr error
}

func (r *failingRepo) UpsertDocument(ctx context.Context, kind EntityKind, entityID string, rec Record) (Record, error) {
	return Record{}, r.upsertErr
}

func newTestService(store object.ObjectStore, repo Repo, ms int64) *Service {
	return &Service{
		Repo: repo,
		Pipeline: &Pipeline{
			Deriver: NewDeriver(fixedClock(ms)),
			Store:   store,
		},
		Gateway: &Gateway{
			Cloud:         store,
			Local:         store,
			PublicBaseURL: "https://cdn.example.com",
		},
	}
}

func bytesUpload(kind EntityKind, cat Category, entityID, fileName, contentType string, data []byte) Upload {
	return Upload{
		Kind:        kind,
		Category:    cat,
		EntityID:    entityID,
		FileName:    fileName,
		ContentType: contentType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func boolPtr(v bool) *bool { return &v }
