package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Service contains business logic for entity documents.
type Service struct {
	Repo     Repo
	Pipeline *Pipeline
	Gateway  *Gateway
}

// Upload stores a file for an entity and makes it the current record for its
// category. The new record always starts unapproved.
func (s *Service) Upload(ctx context.Context, up Upload) (Record, error) {
	var rec Record
	target := Target{
		Exists: func(ctx context.Context) (bool, error) {
			return s.Repo.EntityExists(ctx, up.Kind, up.EntityID)
		},
		Record: func(ctx context.Context, stored Stored) error {
			var err error
			rec, err = s.Repo.UpsertDocument(ctx, up.Kind, up.EntityID, Record{
				Category:   up.Category,
				Reference:  stored.Reference,
				URL:        stored.Reference.PublicURL,
				UploadedAt: stored.UploadedAt,
				ExpiresAt:  up.ExpiresAt,
				Approved:   false,
				Status:     StatusPending,
				UploadedBy: up.UploadedBy,
			})
			return err
		},
	}
	if _, err := s.Pipeline.Run(ctx, up, target); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// List returns the current record per category for an entity.
func (s *Service) List(ctx context.Context, kind EntityKind, entityID string) (map[Category]Record, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.Repo.ListDocuments(ctx, kind, entityID)
}

// Get returns the current record for one category.
func (s *Service) Get(ctx context.Context, kind EntityKind, entityID string, cat Category) (Record, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.Repo.GetDocument(ctx, kind, entityID, cat)
}

// SetApproval records a review decision. An empty status is derived from approved.
func (s *Service) SetApproval(ctx context.Context, kind EntityKind, entityID string, cat Category, approved bool, status string) (Record, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		if approved {
			status = "approved"
		} else {
			status = "rejected"
		}
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	rec, err := s.Repo.SetApproval(ctx, kind, entityID, cat, approved, status)
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) || errors.Is(err, ErrDocumentNotFound) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %w", ErrMetadataWrite, err)
	}
	return rec, nil
}

// History returns the audit trail for a driver or vehicle.
func (s *Service) History(ctx context.Context, kind EntityKind, entityID string) ([]HistoryEntry, error) {
	if !keepsHistory(kind) {
		return nil, fmt.Errorf("%w: %s has no document history", ErrUnsupportedCategory, kind)
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	exists, err := s.Repo.EntityExists(ctx, kind, entityID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrEntityNotFound
	}
	return s.Repo.ListHistory(ctx, kind, entityID)
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	var timeout time.Duration
	if s.Pipeline != nil {
		timeout = s.Pipeline.Timeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
