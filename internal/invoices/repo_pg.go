package invoices

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"logistics-backend/internal/shared/storage/object"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Exists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGRepo) Get(ctx context.Context, id string) (Invoice, error) {
	const query = `
SELECT id, invoice_number, invoice_type, pdf_url, pdf_ref, pdf_pages, updated_at
FROM invoices
WHERE id = $1`

	var inv Invoice
	var pdfURL sql.NullString
	var pdfRef []byte
	var pages sql.NullInt64
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&inv.ID,
		&inv.Number,
		&inv.Type,
		&pdfURL,
		&pdfRef,
		&pages,
		&inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	if pdfURL.Valid {
		inv.PDFURL = pdfURL.String
	}
	if len(pdfRef) > 0 {
		var ref object.Reference
		if err := json.Unmarshal(pdfRef, &ref); err != nil {
			return Invoice{}, fmt.Errorf("decode pdf_ref: %w", err)
		}
		inv.PDFRef = &ref
	}
	if pages.Valid {
		n := int(pages.Int64)
		inv.PDFPages = &n
	}
	return inv, nil
}

// AttachPDF writes the reference and keeps pdf_url in step for readers of the old column.
func (r *PGRepo) AttachPDF(ctx context.Context, id string, ref object.Reference, pages *int) error {
	payload, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encode pdf_ref: %w", err)
	}
	var pageCount sql.NullInt64
	if pages != nil {
		pageCount = sql.NullInt64{Int64: int64(*pages), Valid: true}
	}
	var pdfURL sql.NullString
	if ref.PublicURL != "" {
		pdfURL = sql.NullString{String: ref.PublicURL, Valid: true}
	}

	const query = `
UPDATE invoices
SET pdf_ref = $2, pdf_url = $3, pdf_pages = $4, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, payload, pdfURL, pageCount)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvoiceNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
