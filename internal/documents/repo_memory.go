package documents

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryEntity struct {
	docs map[Category]Record
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	entities map[EntityKind]map[string]*memoryEntity
	history  []HistoryEntry

	// AllowUnknown treats every entity id as existing. Used when running without a database.
	AllowUnknown bool
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		entities: make(map[EntityKind]map[string]*memoryEntity),
	}
}

// AddEntity registers an entity so uploads for it are accepted.
func (r *MemoryRepo) AddEntity(kind EntityKind, entityID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entityLocked(kind, entityID, true)
}

func (r *MemoryRepo) entityLocked(kind EntityKind, entityID string, create bool) *memoryEntity {
	byID, ok := r.entities[kind]
	if !ok {
		if !create {
			return nil
		}
		byID = make(map[string]*memoryEntity)
		r.entities[kind] = byID
	}
	ent, ok := byID[entityID]
	if !ok && create {
		ent = &memoryEntity{docs: make(map[Category]Record)}
		byID[entityID] = ent
	}
	return ent
}

func (r *MemoryRepo) EntityExists(ctx context.Context, kind EntityKind, entityID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if r.AllowUnknown {
		return true, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entityLocked(kind, entityID, false) != nil, nil
}

func (r *MemoryRepo) UpsertDocument(ctx context.Context, kind EntityKind, entityID string, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ent := r.entityLocked(kind, entityID, r.AllowUnknown)
	if ent == nil {
		return Record{}, ErrEntityNotFound
	}
	if keepsHistory(kind) {
		r.history = append(r.history, HistoryEntry{
			ID:         uuid.NewString(),
			Kind:       kind,
			EntityID:   entityID,
			Category:   rec.Category,
			Reference:  rec.Reference,
			ExpiresAt:  rec.ExpiresAt,
			UploadedAt: rec.UploadedAt,
			UploadedBy: rec.UploadedBy,
		})
	}
	ent.docs[rec.Category] = rec
	return rec, nil
}

func (r *MemoryRepo) ListDocuments(ctx context.Context, kind EntityKind, entityID string) (map[Category]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent := r.entityLocked(kind, entityID, false)
	if ent == nil {
		if r.AllowUnknown {
			return map[Category]Record{}, nil
		}
		return nil, ErrEntityNotFound
	}
	out := make(map[Category]Record, len(ent.docs))
	for k, v := range ent.docs {
		out[k] = v
	}
	return out, nil
}

func (r *MemoryRepo) GetDocument(ctx context.Context, kind EntityKind, entityID string, cat Category) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent := r.entityLocked(kind, entityID, false)
	if ent == nil {
		if r.AllowUnknown {
			return Record{}, ErrDocumentNotFound
		}
		return Record{}, ErrEntityNotFound
	}
	rec, ok := ent.docs[cat]
	if !ok {
		return Record{}, ErrDocumentNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) SetApproval(ctx context.Context, kind EntityKind, entityID string, cat Category, approved bool, status string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ent := r.entityLocked(kind, entityID, false)
	if ent == nil {
		return Record{}, ErrEntityNotFound
	}
	rec, ok := ent.docs[cat]
	if !ok {
		return Record{}, ErrDocumentNotFound
	}
	rec.Approved = approved
	rec.Status = status
	ent.docs[cat] = rec
	return rec, nil
}

// ListHistory returns audit entries for an entity, newest first.
func (r *MemoryRepo) ListHistory(ctx context.Context, kind EntityKind, entityID string) ([]HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	var out []HistoryEntry
	for _, h := range r.history {
		if h.Kind == kind && h.EntityID == entityID {
			out = append(out, h)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
