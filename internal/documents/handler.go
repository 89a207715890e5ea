package documents

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/shared/server/middleware"
	"logistics-backend/internal/shared/server/respond"
)

const (
	DefaultMaxUploadBytes = 10 << 20
	MaxIconBytes          = 2 << 20
	// room for multipart boundaries and form fields on top of the file itself
	multipartOverhead = 1 << 20
)

// entityRoute describes one upload endpoint family.
type entityRoute struct {
	kind      EntityKind
	plural    string
	idField   string
	fileField string
}

var entityRoutes = []entityRoute{
	{kind: KindCarrier, plural: "carriers", idField: "carrierId", fileField: "document"},
	{kind: KindDriver, plural: "drivers", idField: "driverId", fileField: "file"},
	{kind: KindVehicle, plural: "vehicles", idField: "vehicleId", fileField: "file"},
}

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches document routes. uploadMW runs before every route
// that writes to object storage.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, uploadMW ...gin.HandlerFunc) {
	for _, route := range entityRoutes {
		route := route
		base := "/" + route.plural
		rg.POST(base+"/documents", append(uploadMW, h.uploadEntity(route))...)
		rg.GET(base+"/:id/documents", h.list(route.kind))
		rg.GET(base+"/:id/documents/:category", h.stream(route.kind))
		rg.POST(base+"/:id/documents/:category/approval", h.approve(route.kind))
		if keepsHistory(route.kind) {
			rg.GET(base+"/:id/documents/history", h.history(route.kind))
		}
	}
	rg.POST("/services/:id/icon", append(uploadMW, h.uploadIcon)...)
}

func (h *Handler) uploadEntity(route entityRoute) gin.HandlerFunc {
	return func(c *gin.Context) {
		up := Upload{Kind: route.kind, UploadedBy: middleware.UserIDFromContext(c)}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)
		if err := ParseForm(c, h.MaxUploadBytes); err != nil {
			h.failReceiving(c, up, err)
			return
		}

		up.EntityID = strings.TrimSpace(c.PostForm(route.idField))
		c.Set(middleware.EntityIDKey, up.EntityID)
		if up.EntityID == "" {
			h.failReceiving(c, up, fmt.Errorf("%w: %s", ErrMissingField, route.idField))
			return
		}
		rawType := strings.TrimSpace(c.PostForm("documentType"))
		if rawType == "" {
			h.failReceiving(c, up, fmt.Errorf("%w: documentType", ErrMissingField))
			return
		}
		cat, err := ParseCategory(route.kind, rawType)
		if err != nil {
			h.failReceiving(c, up, err)
			return
		}
		up.Category = cat
		c.Set(middleware.CategoryKey, string(cat))

		expiresAt, err := ParseExpiry(c.PostForm("expiresAt"))
		if err != nil {
			h.failReceiving(c, up, err)
			return
		}
		up.ExpiresAt = expiresAt

		if err := AttachFile(c, &up, route.fileField, h.MaxUploadBytes); err != nil {
			h.failReceiving(c, up, err)
			return
		}

		rec, err := h.Svc.Upload(c.Request.Context(), up)
		if err != nil {
			WriteError(c, err)
			return
		}
		respond.Success(c, gin.H{"document": rec})
	}
}

func (h *Handler) uploadIcon(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxIconBytes+multipartOverhead)
	up := Upload{
		Kind:       KindService,
		Category:   CategoryServiceIcon,
		EntityID:   strings.TrimSpace(c.Param("id")),
		UploadedBy: middleware.UserIDFromContext(c),
	}
	c.Set(middleware.EntityIDKey, up.EntityID)
	c.Set(middleware.CategoryKey, string(up.Category))

	if err := ParseForm(c, MaxIconBytes); err != nil {
		h.failReceiving(c, up, err)
		return
	}
	if err := AttachFile(c, &up, "icon", MaxIconBytes); err != nil {
		h.failReceiving(c, up, err)
		return
	}

	rec, err := h.Svc.Upload(c.Request.Context(), up)
	if err != nil {
		WriteError(c, err)
		return
	}
	url := rec.URL
	if url == "" {
		url = rec.Reference.Key
	}
	respond.Success(c, gin.H{"url": url})
}

func (h *Handler) list(kind EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")
		c.Set(middleware.EntityIDKey, entityID)
		docs, err := h.Svc.List(c.Request.Context(), kind, entityID)
		if err != nil {
			WriteError(c, err)
			return
		}
		respond.Success(c, gin.H{"documents": docs})
	}
}

func (h *Handler) stream(kind EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")
		c.Set(middleware.EntityIDKey, entityID)
		cat, err := ParseCategory(kind, c.Param("category"))
		if err != nil {
			WriteError(c, err)
			return
		}
		c.Set(middleware.CategoryKey, string(cat))

		rec, err := h.Svc.Get(c.Request.Context(), kind, entityID, cat)
		if err != nil {
			WriteError(c, err)
			return
		}
		ext := ExtFromFileName(rec.Reference.Key)
		if rec.Reference.Key == "" {
			ext = ExtFromFileName(rec.URL)
		}
		disposition := Disposition{
			FileName:    fmt.Sprintf("%s_%s.%s", cat, entityID, ext),
			ContentType: ContentTypeForExt(ext),
		}
		if err := h.Svc.Gateway.Stream(c.Request.Context(), rec.Reference, c.Writer, disposition); err != nil {
			WriteError(c, err)
		}
	}
}

type approvalRequest struct {
	Approved *bool  `json:"approved"`
	Status   string `json:"status"`
}

func (h *Handler) approve(kind EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")
		c.Set(middleware.EntityIDKey, entityID)
		cat, err := ParseCategory(kind, c.Param("category"))
		if err != nil {
			WriteError(c, err)
			return
		}
		c.Set(middleware.CategoryKey, string(cat))

		var req approvalRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Approved == nil {
			WriteError(c, fmt.Errorf("%w: approved", ErrMissingField))
			return
		}
		rec, err := h.Svc.SetApproval(c.Request.Context(), kind, entityID, cat, *req.Approved, req.Status)
		if err != nil {
			WriteError(c, err)
			return
		}
		respond.Success(c, gin.H{"document": rec})
	}
}

func (h *Handler) history(kind EntityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityID := c.Param("id")
		c.Set(middleware.EntityIDKey, entityID)
		entries, err := h.Svc.History(c.Request.Context(), kind, entityID)
		if err != nil {
			WriteError(c, err)
			return
		}
		if entries == nil {
			entries = []HistoryEntry{}
		}
		respond.Success(c, gin.H{"history": entries})
	}
}

func (h *Handler) failReceiving(c *gin.Context, up Upload, err error) {
	err = &StageError{Stage: StageReceiving, Err: err}
	LogUploadFailure(up, err)
	WriteError(c, err)
}

// AttachFile pulls the file part named field from the request into up.
// The declared part content type is kept as-is apart from its parameters.
func AttachFile(c *gin.Context, up *Upload, field string, maxBytes int64) error {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, maxBytes)
		}
		return fmt.Errorf("%w: file part %q", ErrMissingField, field)
	}
	if fh.Size > maxBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrPayloadTooLarge, fh.Size, maxBytes)
	}
	up.FileName = fh.Filename
	up.ContentType = partContentType(fh)
	up.Open = func() (io.ReadCloser, error) { return fh.Open() }
	return nil
}

func partContentType(fh *multipart.FileHeader) string {
	raw := fh.Header.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mediaType
}

// ParseForm reads the multipart body before any field is looked up, so a body
// cut off by MaxBytesReader surfaces as ErrPayloadTooLarge. Other parse
// failures are left for the field checks to report.
func ParseForm(c *gin.Context, maxBytes int64) error {
	_, err := c.MultipartForm()
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, maxBytes)
	}
	return nil
}

// ParseExpiry accepts RFC3339 timestamps or plain dates. Empty means no expiry.
func ParseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidExpiry, raw)
}
