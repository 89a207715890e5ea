package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"logistics-backend/internal/shared/storage/object"
)

func TestUploadRecordsPendingDocument(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	repo := NewMemoryRepo()
	repo.AddEntity(KindCarrier, "abc123")
	svc := newTestService(store, repo, 1700000000000)

	rec, err := svc.Upload(context.Background(), bytesUpload(KindCarrier, CategoryTaxCertificate, "abc123", "levha.PDF", MIMEPDF, []byte("%PDF-1.4")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	wantKey := "tasiyici-firma-belge/vergi-levhalari/vergi_abc123_1700000000000.pdf"
	if rec.Reference.Key != wantKey {
		t.Fatalf("unexpected key %q", rec.Reference.Key)
	}
	if rec.Approved || rec.Status != StatusPending {
		t.Fatalf("expected pending unapproved record, got %+v", rec)
	}
	if rec.Reference.PublicURL != "" {
		t.Fatalf("carrier documents must not get a public url, got %q", rec.Reference.PublicURL)
	}
	if ok, _ := store.Exists(context.Background(), wantKey); !ok {
		t.Fatalf("expected object at %s", wantKey)
	}

	got, err := svc.Get(context.Background(), KindCarrier, "abc123", CategoryTaxCertificate)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Reference.Key != wantKey {
		t.Fatalf("stored record mismatch: %+v", got)
	}
}

func TestReuploadResetsApproval(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	repo := NewMemoryRepo()
	repo.AddEntity(KindDriver, "d1")
	svc := newTestService(store, repo, 1700000000000)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, bytesUpload(KindDriver, CategorySRC, "d1", "src.jpg", MIMEJPEG, []byte("one"))); err != nil {
		t.Fatalf("first upload: %v", err)
	}
	approved, err := svc.SetApproval(ctx, KindDriver, "d1", CategorySRC, true, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.Approved || approved.Status != "approved" {
		t.Fatalf("expected approved record, got %+v", approved)
	}

	svc.Pipeline.Deriver = NewDeriver(fixedClock(1700000000500))
	rec, err := svc.Upload(ctx, bytesUpload(KindDriver, CategorySRC, "d1", "src.png", MIMEPNG, []byte("two")))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if rec.Approved || rec.Status != StatusPending {
		t.Fatalf("re-upload must reset approval, got %+v", rec)
	}
	if len(store.keys()) != 2 {
		t.Fatalf("expected both objects retained, got %v", store.keys())
	}
}

func TestUploadRejectsDisallowedMIMEBeforeStoring(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	repo := NewMemoryRepo()
	repo.AddEntity(KindCarrier, "abc123")
	svc := newTestService(store, repo, 1700000000000)

	_, err := svc.Upload(context.Background(), bytesUpload(KindCarrier, CategoryTaxCertificate, "abc123", "levha.png", MIMEPNG, []byte("png")))
	if !errors.Is(err, ErrDisallowedMIME) {
		t.Fatalf("expected ErrDisallowedMIME, got %v", err)
	}
	if stage := FailedStage(err); stage != StageValidating {
		t.Fatalf("expected validating stage, got %q", stage)
	}
	if len(store.keys()) != 0 {
		t.Fatalf("nothing should be stored, got %v", store.keys())
	}
	if _, err := repo.GetDocument(context.Background(), KindCarrier, "abc123", CategoryTaxCertificate); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("nothing should be recorded, got %v", err)
	}
}

func TestUploadUnknownEntity(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	svc := newTestService(store, NewMemoryRepo(), 1700000000000)

	_, err := svc.Upload(context.Background(), bytesUpload(KindVehicle, CategoryInsurance, "v404", "p.pdf", MIMEPDF, []byte("x")))
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
	if len(store.keys()) != 0 {
		t.Fatalf("nothing should be stored, got %v", store.keys())
	}
}

func TestUploadStorageFailureRecordsNothing(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	store.putErr = errors.New("connection reset")
	repo := NewMemoryRepo()
	repo.AddEntity(KindVehicle, "v1")
	svc := newTestService(store, repo, 1700000000000)

	_, err := svc.Upload(context.Background(), bytesUpload(KindVehicle, CategoryInsurance, "v1", "p.pdf", MIMEPDF, []byte("x")))
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
	if FailedStage(err) != StageStoring {
		t.Fatalf("expected storing stage, got %q", FailedStage(err))
	}
	docs, err := repo.ListDocuments(context.Background(), KindVehicle, "v1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no records, got %v", docs)
	}
}

func TestUploadMetadataFailureLeavesObject(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	mem := NewMemoryRepo()
	mem.AddEntity(KindCarrier, "abc123")
	repo := &failingRepo{MemoryRepo: mem, upsertErr: errors.New("db down")}
	svc := newTestService(store, repo, 1700000000000)

	_, err := svc.Upload(context.Background(), bytesUpload(KindCarrier, CategoryK1, "abc123", "k1.pdf", MIMEPDF, []byte("x")))
	if !errors.Is(err, ErrMetadataWrite) {
		t.Fatalf("expected ErrMetadataWrite, got %v", err)
	}
	if FailedStage(err) != StageRecording {
		t.Fatalf("expected recording stage, got %q", FailedStage(err))
	}
	if len(store.keys()) != 1 {
		t.Fatalf("stored object should be kept, got %v", store.keys())
	}
}

func TestHistoryKeepsEveryUpload(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	repo := NewMemoryRepo()
	repo.AddEntity(KindVehicle, "v1")
	repo.AddEntity(KindCarrier, "c1")
	svc := newTestService(store, repo, 1700000000000)
	ctx := context.Background()

	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	first := bytesUpload(KindVehicle, CategoryInspection, "v1", "m.pdf", MIMEPDF, []byte("a"))
	first.ExpiresAt = &expiry
	if _, err := svc.Upload(ctx, first); err != nil {
		t.Fatalf("upload: %v", err)
	}
	svc.Pipeline.Deriver = NewDeriver(fixedClock(1700000009000))
	if _, err := svc.Upload(ctx, bytesUpload(KindVehicle, CategoryInspection, "v1", "m.pdf", MIMEPDF, []byte("b"))); err != nil {
		t.Fatalf("upload: %v", err)
	}

	entries, err := svc.History(ctx, KindVehicle, "v1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if !entries[0].UploadedAt.After(entries[1].UploadedAt) {
		t.Fatalf("expected newest first")
	}
	if entries[1].ExpiresAt == nil || !entries[1].ExpiresAt.Equal(expiry) {
		t.Fatalf("expected expiry on first entry, got %v", entries[1].ExpiresAt)
	}

	if _, err := svc.History(ctx, KindCarrier, "c1"); !errors.Is(err, ErrUnsupportedCategory) {
		t.Fatalf("carriers have no history, got %v", err)
	}
	if _, err := svc.History(ctx, KindVehicle, "missing"); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestSetApprovalMissingDocument(t *testing.T) {
	repo := NewMemoryRepo()
	repo.AddEntity(KindDriver, "d1")
	svc := newTestService(newMemStore(object.SchemeCloud), repo, 1)

	if _, err := svc.SetApproval(context.Background(), KindDriver, "d1", CategorySRC, true, ""); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := svc.SetApproval(context.Background(), KindDriver, "nope", CategorySRC, false, ""); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestServiceIconOverwritesInPlace(t *testing.T) {
	store := newMemStore(object.SchemeCloud)
	repo := NewMemoryRepo()
	repo.AddEntity(KindService, "s1")
	svc := newTestService(store, repo, 1700000000000)
	ctx := context.Background()

	for i, body := range []string{"one", "two"} {
		rec, err := svc.Upload(ctx, bytesUpload(KindService, CategoryServiceIcon, "s1", "icon.png", MIMEPNG, []byte(body)))
		if err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
		if rec.Reference.Key != "service-icons/s1.png" {
			t.Fatalf("unexpected key %q", rec.Reference.Key)
		}
		if rec.URL == "" {
			t.Fatalf("icons are public and need a url")
		}
	}
	if len(store.keys()) != 1 {
		t.Fatalf("expected a single icon object, got %v", store.keys())
	}
}
