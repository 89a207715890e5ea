package invoices

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"logistics-backend/internal/documents"
	"logistics-backend/internal/extract"
	"logistics-backend/internal/shared/telemetry"
)

// Service attaches PDFs to invoices and streams them back.
type Service struct {
	Repo     Repo
	Pipeline *documents.Pipeline
	Gateway  *documents.Gateway
}

// Upload stores an invoice PDF and points the invoice at it. It returns the
// public URL of the stored PDF, or its key when the store has no public URL.
func (s *Service) Upload(ctx context.Context, up documents.Upload) (string, error) {
	up.Kind = documents.KindInvoice
	target := documents.Target{
		Exists: func(ctx context.Context) (bool, error) {
			return s.Repo.Exists(ctx, up.EntityID)
		},
		Record: func(ctx context.Context, stored documents.Stored) error {
			pages := countPages(up.EntityID, stored.Data)
			err := s.Repo.AttachPDF(ctx, up.EntityID, stored.Reference, pages)
			if errors.Is(err, ErrInvoiceNotFound) {
				return fmt.Errorf("%w: %w", documents.ErrEntityNotFound, err)
			}
			return err
		},
	}
	stored, err := s.Pipeline.Run(ctx, up, target)
	if err != nil {
		return "", err
	}
	if stored.Reference.PublicURL != "" {
		return stored.Reference.PublicURL, nil
	}
	return stored.Reference.Key, nil
}

// Download streams the invoice PDF to w.
func (s *Service) Download(ctx context.Context, id string, w http.ResponseWriter) error {
	inv, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	ref, err := inv.PDFReference()
	if err != nil {
		return err
	}
	return s.Gateway.Stream(ctx, ref, w, documents.Disposition{
		FileName:    inv.DownloadName(),
		ContentType: documents.MIMEPDF,
	})
}

func (s *Service) get(ctx context.Context, id string) (Invoice, error) {
	timeout := time.Duration(0)
	if s.Pipeline != nil {
		timeout = s.Pipeline.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.Repo.Get(ctx, id)
}

// countPages never fails an upload; an unreadable PDF just has no page count.
func countPages(invoiceID string, data []byte) *int {
	n, err := extract.PageCount(data)
	if err != nil {
		telemetry.Warn("invoices.page_count.failed", map[string]any{
			"invoice_id": invoiceID,
			"error":      err.Error(),
		})
		return nil
	}
	return &n
}
