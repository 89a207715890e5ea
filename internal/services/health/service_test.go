package health

import (
	"context"
	"errors"
	"io"
	"testing"

	"logistics-backend/internal/shared/storage/object"
	"logistics-backend/internal/shared/storage/object/local"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

type brokenStore struct{ object.ObjectStore }

func (brokenStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("dial tcp: connection refused")
}

func (brokenStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, object.ErrReadFailed
}

func TestStatusHealthy(t *testing.T) {
	svc := NewService(fakePinger{}, map[string]object.ObjectStore{"local": local.New(t.TempDir(), "")}, 0)

	report := svc.Status(context.Background())
	if !report.OK {
		t.Fatalf("expected healthy report, got %+v", report)
	}
	if report.Checks["database"] != "ok" || report.Checks["store.local"] != "ok" {
		t.Fatalf("unexpected checks %+v", report.Checks)
	}
}

func TestStatusWithoutDatabase(t *testing.T) {
	svc := NewService(nil, nil, 0)

	report := svc.Status(context.Background())
	if !report.OK || report.Checks["database"] != "disabled" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestStatusReportsFailures(t *testing.T) {
	svc := NewService(fakePinger{err: errors.New("db down")}, map[string]object.ObjectStore{"cloud": brokenStore{}}, 0)

	report := svc.Status(context.Background())
	if report.OK {
		t.Fatal("expected unhealthy report")
	}
	if report.Checks["database"] != "db down" {
		t.Fatalf("unexpected database check %q", report.Checks["database"])
	}
	if report.Checks["store.cloud"] == "ok" {
		t.Fatalf("expected store failure, got %+v", report.Checks)
	}
}
