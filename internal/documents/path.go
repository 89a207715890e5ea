package documents

import (
	"fmt"
	"strings"
	"time"
)

// Deriver builds object keys from entity kind, category and entity id.
type Deriver struct {
	Now func() time.Time
}

// NewDeriver returns a Deriver using now, or the wall clock when now is nil.
func NewDeriver(now func() time.Time) Deriver {
	if now == nil {
		now = time.Now
	}
	return Deriver{Now: now}
}

// DerivePath returns the object key and content type for a new upload.
// The millisecond timestamp keeps re-uploads from overwriting earlier objects.
func (d Deriver) DerivePath(kind EntityKind, cat Category, entityID, ext string) (string, string, error) {
	if err := checkCategory(kind, cat); err != nil {
		return "", "", err
	}
	if entityID == "" || strings.ContainsAny(entityID, `/\`) || strings.Contains(entityID, "..") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidEntityID, entityID)
	}
	ext = normalizeExt(ext)
	if ext == "" || strings.ContainsAny(ext, `/\.`) {
		return "", "", ErrInvalidExtension
	}

	spec := categoryTable[cat]
	ms := d.now().UnixMilli()

	var key string
	switch spec.naming {
	case namingInvoice:
		ext = "pdf"
		key = fmt.Sprintf("%s/invoice_%s_%d.%s", spec.folder, entityID, ms, ext)
	case namingByID:
		key = fmt.Sprintf("%s/%s.%s", spec.folder, entityID, ext)
	default:
		key = fmt.Sprintf("%s/%s_%s_%d.%s", spec.folder, cat, entityID, ms, ext)
	}
	return key, ContentTypeForExt(ext), nil
}

func (d Deriver) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// ContentTypeForExt maps a file extension to a content type.
func ContentTypeForExt(ext string) string {
	switch normalizeExt(ext) {
	case "pdf":
		return MIMEPDF
	case "jpg", "jpeg":
		return MIMEJPEG
	case "png":
		return MIMEPNG
	default:
		return "application/octet-stream"
	}
}

// ExtFromFileName returns the lowercased extension of a client file name without the dot.
func ExtFromFileName(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return normalizeExt(name[idx+1:])
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
