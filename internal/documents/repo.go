package documents

import "context"

// Repo persists document records on their owning entities.
type Repo interface {
	EntityExists(ctx context.Context, kind EntityKind, entityID string) (bool, error)
	// UpsertDocument replaces the record for rec.Category. For drivers and
	// vehicles it also appends a history entry.
	UpsertDocument(ctx context.Context, kind EntityKind, entityID string, rec Record) (Record, error)
	ListDocuments(ctx context.Context, kind EntityKind, entityID string) (map[Category]Record, error)
	GetDocument(ctx context.Context, kind EntityKind, entityID string, cat Category) (Record, error)
	SetApproval(ctx context.Context, kind EntityKind, entityID string, cat Category, approved bool, status string) (Record, error)
	ListHistory(ctx context.Context, kind EntityKind, entityID string) ([]HistoryEntry, error)
}
