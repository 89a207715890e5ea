package invoices

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/documents"
	"logistics-backend/internal/shared/server/middleware"
	"logistics-backend/internal/shared/server/respond"
)

// Handler wires invoice PDF endpoints.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = documents.DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches invoice routes. uploadMW runs before the upload route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, uploadMW ...gin.HandlerFunc) {
	rg.POST("/invoices/pdf", append(uploadMW, h.upload)...)
	rg.GET("/invoices/:id/pdf", h.download)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+1<<20)
	up := documents.Upload{
		Kind:       documents.KindInvoice,
		UploadedBy: middleware.UserIDFromContext(c),
	}
	if err := documents.ParseForm(c, h.MaxUploadBytes); err != nil {
		h.failReceiving(c, up, err)
		return
	}
	up.EntityID = strings.TrimSpace(c.PostForm("invoiceId"))
	c.Set(middleware.EntityIDKey, up.EntityID)
	if up.EntityID == "" {
		h.failReceiving(c, up, fmt.Errorf("%w: invoiceId", documents.ErrMissingField))
		return
	}
	rawType := strings.TrimSpace(c.PostForm("invoiceType"))
	if rawType == "" {
		h.failReceiving(c, up, fmt.Errorf("%w: invoiceType", documents.ErrMissingField))
		return
	}
	cat, err := documents.ParseCategory(documents.KindInvoice, rawType)
	if err != nil {
		h.failReceiving(c, up, err)
		return
	}
	up.Category = cat
	c.Set(middleware.CategoryKey, string(cat))

	if err := documents.AttachFile(c, &up, "pdf", h.MaxUploadBytes); err != nil {
		h.failReceiving(c, up, err)
		return
	}

	url, err := h.Svc.Upload(c.Request.Context(), up)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.Success(c, gin.H{"url": url})
}

func (h *Handler) download(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.EntityIDKey, id)
	if err := h.Svc.Download(c.Request.Context(), id, c.Writer); err != nil {
		writeError(c, err)
	}
}

func (h *Handler) failReceiving(c *gin.Context, up documents.Upload, err error) {
	err = &documents.StageError{Stage: documents.StageReceiving, Err: err}
	documents.LogUploadFailure(up, err)
	writeError(c, err)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvoiceNotFound), errors.Is(err, documents.ErrEntityNotFound):
		respond.Error(c, http.StatusNotFound, "invoice_not_found", "Invoice not found", "")
	case errors.Is(err, ErrNoPDF):
		respond.Error(c, http.StatusNotFound, "pdf_not_attached", "Invoice has no PDF attached", "")
	default:
		documents.WriteError(c, err)
	}
}
