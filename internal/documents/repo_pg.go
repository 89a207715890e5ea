package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres. Current records live in a jsonb map
// keyed by category on the entity row; document_history is the audit log.
type PGRepo struct {
	DB *sql.DB
}

// Table names are fixed per kind and never taken from input.
var entityTables = map[EntityKind]string{
	KindCarrier: "carriers",
	KindDriver:  "drivers",
	KindVehicle: "vehicles",
	KindService: "services",
}

func tableFor(kind EntityKind) (string, error) {
	table, ok := entityTables[kind]
	if !ok {
		return "", fmt.Errorf("%w: no document table for %s", ErrUnsupportedCategory, kind)
	}
	return table, nil
}

func (r *PGRepo) EntityExists(ctx context.Context, kind EntityKind, entityID string) (bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return false, err
	}
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE id = $1)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, entityID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PGRepo) UpsertDocument(ctx context.Context, kind EntityKind, entityID string, rec Record) (Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return Record{}, err
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode record: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	if keepsHistory(kind) {
		ref, err := json.Marshal(rec.Reference)
		if err != nil {
			return Record{}, fmt.Errorf("encode reference: %w", err)
		}
		const insertHistory = `
INSERT INTO document_history (id, entity_kind, entity_id, category, reference, expires_at, uploaded_at, uploaded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		if _, err := tx.ExecContext(ctx, insertHistory,
			uuid.NewString(),
			string(kind),
			entityID,
			string(rec.Category),
			ref,
			nullTime(rec.ExpiresAt),
			rec.UploadedAt,
			rec.UploadedBy,
		); err != nil {
			return Record{}, fmt.Errorf("insert history: %w", err)
		}
	}

	update := `
UPDATE ` + table + `
SET documents = jsonb_set(COALESCE(documents, '{}'::jsonb), ARRAY[$2::text], $3::jsonb, true),
    updated_at = now()
WHERE id = $1`
	res, err := tx.ExecContext(ctx, update, entityID, string(rec.Category), payload)
	if err != nil {
		return Record{}, fmt.Errorf("update documents: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Record{}, ErrEntityNotFound
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *PGRepo) ListDocuments(ctx context.Context, kind EntityKind, entityID string) (map[Category]Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := `SELECT documents FROM ` + table + ` WHERE id = $1`
	var raw []byte
	if err := r.DB.QueryRowContext(ctx, query, entityID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}
	out := map[Category]Record{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return out, nil
}

func (r *PGRepo) GetDocument(ctx context.Context, kind EntityKind, entityID string, cat Category) (Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return Record{}, err
	}
	query := `SELECT documents -> $2::text FROM ` + table + ` WHERE id = $1`
	var raw []byte
	if err := r.DB.QueryRowContext(ctx, query, entityID, string(cat)).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrEntityNotFound
		}
		return Record{}, err
	}
	if len(raw) == 0 {
		return Record{}, ErrDocumentNotFound
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode document: %w", err)
	}
	return rec, nil
}

func (r *PGRepo) SetApproval(ctx context.Context, kind EntityKind, entityID string, cat Category, approved bool, status string) (Record, error) {
	table, err := tableFor(kind)
	if err != nil {
		return Record{}, err
	}
	query := `
UPDATE ` + table + `
SET documents = jsonb_set(
        jsonb_set(documents, ARRAY[$2::text, 'approved'], to_jsonb($3::boolean)),
        ARRAY[$2::text, 'status'], to_jsonb($4::text)),
    updated_at = now()
WHERE id = $1 AND documents -> $2::text IS NOT NULL
RETURNING documents -> $2::text`
	var raw []byte
	err = r.DB.QueryRowContext(ctx, query, entityID, string(cat), approved, status).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		exists, existsErr := r.EntityExists(ctx, kind, entityID)
		if existsErr != nil {
			return Record{}, existsErr
		}
		if !exists {
			return Record{}, ErrEntityNotFound
		}
		return Record{}, ErrDocumentNotFound
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode document: %w", err)
	}
	return rec, nil
}

// ListHistory returns audit entries for an entity, newest first.
func (r *PGRepo) ListHistory(ctx context.Context, kind EntityKind, entityID string) ([]HistoryEntry, error) {
	const query = `
SELECT id, entity_kind, entity_id, category, reference, expires_at, uploaded_at, uploaded_by
FROM document_history
WHERE entity_kind = $1 AND entity_id = $2
ORDER BY uploaded_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, string(kind), entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var kindRaw, catRaw string
		var ref []byte
		var expiresAt sql.NullTime
		if err := rows.Scan(&h.ID, &kindRaw, &h.EntityID, &catRaw, &ref, &expiresAt, &h.UploadedAt, &h.UploadedBy); err != nil {
			return nil, err
		}
		h.Kind = EntityKind(kindRaw)
		h.Category = Category(catRaw)
		if err := json.Unmarshal(ref, &h.Reference); err != nil {
			return nil, fmt.Errorf("decode reference: %w", err)
		}
		if expiresAt.Valid {
			t := expiresAt.Time
			h.ExpiresAt = &t
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
