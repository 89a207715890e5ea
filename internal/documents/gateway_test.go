package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"logistics-backend/internal/shared/storage/object"
	"logistics-backend/internal/shared/storage/object/local"
)

func TestGatewayStreamsCloudObject(t *testing.T) {
	cloud := newMemStore(object.SchemeCloud)
	ref, err := cloud.Put(context.Background(), "surucu-belge/src/src_d1_1.pdf", []byte("%PDF-1.7 body"), MIMEPDF, false)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	gw := &Gateway{Cloud: cloud}

	rec := httptest.NewRecorder()
	if err := gw.Stream(context.Background(), ref, rec, Disposition{FileName: "src_d1.pdf", ContentType: MIMEPDF}); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != MIMEPDF {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "13" {
		t.Fatalf("unexpected content length %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="src_d1.pdf"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Body.String() != "%PDF-1.7 body" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestGatewayCloudMissingWritesNoHeaders(t *testing.T) {
	cloud := newMemStore(object.SchemeCloud)
	cloud.existsOverride = boolPtr(false)
	_, _ = cloud.Put(context.Background(), "faturalar/musteri-fatura/invoice_1_1.pdf", []byte("x"), MIMEPDF, true)
	gw := &Gateway{Cloud: cloud}

	rec := httptest.NewRecorder()
	ref := object.Reference{Scheme: object.SchemeCloud, Bucket: "docs", Key: "faturalar/musteri-fatura/invoice_1_1.pdf"}
	err := gw.Stream(context.Background(), ref, rec, Disposition{FileName: "x.pdf"})
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if cloud.openCalls != 0 {
		t.Fatalf("object must not be opened when it does not exist")
	}
	if len(rec.Header()) != 0 || rec.Body.Len() != 0 {
		t.Fatalf("expected untouched response, got headers %v", rec.Header())
	}
}

func TestGatewayStreamsLegacyLocalFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "arac-belge", "ruhsat")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "registration_v1_1.jpg"), []byte("jpegdata"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	gw := &Gateway{
		Local:          local.New(root, "/uploads"),
		PublicBaseURL:  "https://cdn.example.com",
		LocalURLPrefix: "/uploads",
	}

	rec := httptest.NewRecorder()
	ref := object.Reference{PublicURL: "/uploads/arac-belge/ruhsat/registration_v1_1.jpg"}
	if err := gw.Stream(context.Background(), ref, rec, Disposition{FileName: "registration_v1.jpg", ContentType: MIMEJPEG}); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if rec.Body.String() != "jpegdata" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != MIMEJPEG {
		t.Fatalf("unexpected content type %q", got)
	}
}

func TestGatewayLocalMissingFile(t *testing.T) {
	gw := &Gateway{Local: local.New(t.TempDir(), "")}
	rec := httptest.NewRecorder()

	err := gw.Stream(context.Background(), object.Reference{Scheme: object.SchemeLocal, Key: "surucu-belge/src/none.pdf"}, rec, Disposition{})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if len(rec.Header()) != 0 {
		t.Fatalf("expected no headers, got %v", rec.Header())
	}
}

func TestGatewayLocalTraversalIsNotFound(t *testing.T) {
	gw := &Gateway{Local: local.New(t.TempDir(), "")}
	rec := httptest.NewRecorder()

	err := gw.Stream(context.Background(), object.Reference{Scheme: object.SchemeLocal, Key: "../../etc/passwd"}, rec, Disposition{})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestGatewayLocalUnreadable(t *testing.T) {
	store := newMemStore(object.SchemeLocal)
	store.openErr = fmt.Errorf("%w: permission denied", object.ErrUnreadable)
	gw := &Gateway{Local: store}
	rec := httptest.NewRecorder()

	err := gw.Stream(context.Background(), object.Reference{Scheme: object.SchemeLocal, Key: "a.pdf"}, rec, Disposition{})
	if !errors.Is(err, ErrFileUnreadable) {
		t.Fatalf("expected ErrFileUnreadable, got %v", err)
	}
	if len(rec.Header()) != 0 {
		t.Fatalf("expected no headers, got %v", rec.Header())
	}
}

func TestResolveLegacy(t *testing.T) {
	t.Parallel()
	gw := &Gateway{PublicBaseURL: "https://cdn.example.com/", LocalURLPrefix: "/uploads"}

	tests := []struct {
		name   string
		raw    string
		scheme object.Scheme
		bucket string
		key    string
	}{
		{"cloud", "https://cdn.example.com/docs/faturalar/musteri-fatura/invoice_9_1.pdf", object.SchemeCloud, "docs", "faturalar/musteri-fatura/invoice_9_1.pdf"},
		{"cloud with query", "https://cdn.example.com/docs/a%20b.pdf?X-Amz=1", object.SchemeCloud, "docs", "a b.pdf"},
		{"local with prefix", "/uploads/surucu-belge/src/src_d1_1.pdf", object.SchemeLocal, "", "surucu-belge/src/src_d1_1.pdf"},
		{"local bare", "surucu-belge/src/src_d1_1.pdf", object.SchemeLocal, "", "surucu-belge/src/src_d1_1.pdf"},
		{"lookalike host is local", "https://cdn.example.com.evil/docs/a.pdf", object.SchemeLocal, "", "https://cdn.example.com.evil/docs/a.pdf"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ref, err := gw.ResolveLegacy(tc.raw)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if ref.Scheme != tc.scheme || ref.Bucket != tc.bucket || ref.Key != tc.key {
				t.Fatalf("got %+v", ref)
			}
		})
	}

	if _, err := gw.ResolveLegacy("  "); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound for empty reference, got %v", err)
	}
	if _, err := gw.ResolveLegacy("https://cdn.example.com/docs"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound for bucket-only url, got %v", err)
	}
}

func TestResolveRejectsUnknownScheme(t *testing.T) {
	gw := &Gateway{}
	if _, err := gw.Resolve(object.Reference{Scheme: "ftp", Key: "a"}); !errors.Is(err, ErrStorageRead) {
		t.Fatalf("expected ErrStorageRead, got %v", err)
	}
}

func TestResolveLegacyStripsStorePrefix(t *testing.T) {
	gw := &Gateway{PublicBaseURL: "https://cdn.example.com", CloudPrefix: "/tenant/"}

	ref, err := gw.ResolveLegacy("https://cdn.example.com/docs/tenant/faturalar/musteri-fatura/invoice_9_1.pdf")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ref.Bucket != "docs" || ref.Key != "faturalar/musteri-fatura/invoice_9_1.pdf" {
		t.Fatalf("expected prefix stripped, got %+v", ref)
	}
}

func TestGatewayCloudOtherBucketIsNotFound(t *testing.T) {
	cloud := newMemStore(object.SchemeCloud)
	_, _ = cloud.Put(context.Background(), "faturalar/musteri-fatura/invoice_1_1.pdf", []byte("%PDF-1.4"), MIMEPDF, true)
	gw := &Gateway{Cloud: cloud, CloudBucket: "docs", PublicBaseURL: "https://cdn.example.com"}

	rec := httptest.NewRecorder()
	ref := object.Reference{PublicURL: "https://cdn.example.com/archive/faturalar/musteri-fatura/invoice_1_1.pdf"}
	err := gw.Stream(context.Background(), ref, rec, Disposition{FileName: "x.pdf"})
	if !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if cloud.openCalls != 0 || len(rec.Header()) != 0 {
		t.Fatalf("expected no read and no headers, opens=%d headers=%v", cloud.openCalls, rec.Header())
	}

	ref.PublicURL = "https://cdn.example.com/docs/faturalar/musteri-fatura/invoice_1_1.pdf"
	rec = httptest.NewRecorder()
	if err := gw.Stream(context.Background(), ref, rec, Disposition{FileName: "x.pdf"}); err != nil {
		t.Fatalf("same bucket should stream: %v", err)
	}
}
