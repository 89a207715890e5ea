package documents

import (
	"time"

	"logistics-backend/internal/shared/storage/object"
)

// StatusPending is the review state of a freshly uploaded document.
const StatusPending = "pending"

// Record is the current document for one category on an entity.
type Record struct {
	Category   Category         `json:"category"`
	Reference  object.Reference `json:"reference"`
	URL        string           `json:"url,omitempty"`
	UploadedAt time.Time        `json:"uploadedAt"`
	ExpiresAt  *time.Time       `json:"expiresAt"`
	Approved   bool             `json:"approved"`
	Status     string           `json:"status"`
	UploadedBy string           `json:"uploadedBy,omitempty"`
}

// HistoryEntry is one row of the append-only document audit log.
type HistoryEntry struct {
	ID         string           `json:"id"`
	Kind       EntityKind       `json:"entityKind"`
	EntityID   string           `json:"entityId"`
	Category   Category         `json:"category"`
	Reference  object.Reference `json:"reference"`
	ExpiresAt  *time.Time       `json:"expiresAt"`
	UploadedAt time.Time        `json:"uploadedAt"`
	UploadedBy string           `json:"uploadedBy,omitempty"`
}

// keepsHistory reports whether uploads for kind are also written to the audit log.
func keepsHistory(kind EntityKind) bool {
	return kind == KindDriver || kind == KindVehicle
}
