package invoices

import (
	"errors"
	"time"

	"logistics-backend/internal/shared/storage/object"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrNoPDF           = errors.New("invoice has no PDF attached")
)

// Invoice is the slice of an invoice row this service reads and writes.
// Invoices written before references carried a scheme only have PDFURL.
type Invoice struct {
	ID        string            `json:"id"`
	Number    string            `json:"invoiceNumber"`
	Type      string            `json:"invoiceType"`
	PDFURL    string            `json:"pdfUrl,omitempty"`
	PDFRef    *object.Reference `json:"pdfRef,omitempty"`
	PDFPages  *int              `json:"pdfPages,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// PDFReference returns the stored reference for the attached PDF.
func (inv Invoice) PDFReference() (object.Reference, error) {
	if inv.PDFRef != nil && inv.PDFRef.Key != "" {
		return *inv.PDFRef, nil
	}
	if inv.PDFURL != "" {
		return object.Reference{PublicURL: inv.PDFURL}, nil
	}
	return object.Reference{}, ErrNoPDF
}

// DownloadName is the attachment file name for the invoice PDF.
func (inv Invoice) DownloadName() string {
	if inv.Number == "" {
		return "invoice.pdf"
	}
	return inv.Number + ".pdf"
}
