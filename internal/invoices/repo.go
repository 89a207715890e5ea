package invoices

import (
	"context"

	"logistics-backend/internal/shared/storage/object"
)

// Repo persists invoice PDF references.
type Repo interface {
	Exists(ctx context.Context, id string) (bool, error)
	Get(ctx context.Context, id string) (Invoice, error)
	// AttachPDF replaces the invoice's PDF reference. pages is nil when the count is unknown.
	AttachPDF(ctx context.Context, id string, ref object.Reference, pages *int) error
}
