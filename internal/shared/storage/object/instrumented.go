package object

import (
	"context"
	"io"
	"time"

	"logistics-backend/internal/shared/metrics"
)

// Instrumented records latency and failures of every call on the wrapped store.
type Instrumented struct {
	Next ObjectStore
}

// Instrument wraps store with metrics.
func Instrument(store ObjectStore) ObjectStore {
	if store == nil {
		return nil
	}
	return &Instrumented{Next: store}
}

func (i *Instrumented) Put(ctx context.Context, key string, data []byte, contentType string, public bool) (ref Reference, err error) {
	defer observe("put", time.Now(), &err)
	return i.Next.Put(ctx, key, data, contentType, public)
}

func (i *Instrumented) Open(ctx context.Context, key string) (rc io.ReadCloser, err error) {
	defer observe("open", time.Now(), &err)
	return i.Next.Open(ctx, key)
}

func (i *Instrumented) Delete(ctx context.Context, key string) (err error) {
	defer observe("delete", time.Now(), &err)
	return i.Next.Delete(ctx, key)
}

func (i *Instrumented) Exists(ctx context.Context, key string) (ok bool, err error) {
	defer observe("exists", time.Now(), &err)
	return i.Next.Exists(ctx, key)
}

func (i *Instrumented) Stat(ctx context.Context, key string) (meta Metadata, err error) {
	defer observe("stat", time.Now(), &err)
	return i.Next.Stat(ctx, key)
}

func observe(op string, started time.Time, err *error) {
	metrics.ObserveStorage(op, started, *err)
}

var _ ObjectStore = (*Instrumented)(nil)
