package invoices

import (
	"context"
	"sync"
	"time"

	"logistics-backend/internal/shared/storage/object"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	items map[string]Invoice
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[string]Invoice)}
}

// Add stores inv, replacing any invoice with the same id.
func (r *MemoryRepo) Add(inv Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[inv.ID] = inv
}

func (r *MemoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Invoice, error) {
	if err := ctx.Err(); err != nil {
		return Invoice{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.items[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (r *MemoryRepo) AttachPDF(ctx context.Context, id string, ref object.Reference, pages *int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.items[id]
	if !ok {
		return ErrInvoiceNotFound
	}
	refCopy := ref
	inv.PDFRef = &refCopy
	inv.PDFURL = ref.PublicURL
	inv.PDFPages = pages
	inv.UpdatedAt = time.Now().UTC()
	r.items[id] = inv
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
