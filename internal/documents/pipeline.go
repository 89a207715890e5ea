package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"logistics-backend/internal/shared/metrics"
	"logistics-backend/internal/shared/storage/object"
	"logistics-backend/internal/shared/telemetry"
)

// Stage is a step of the upload pipeline.
type Stage string

const (
	StageReceiving  Stage = "receiving"
	StageValidating Stage = "validating"
	StageDeriving   Stage = "deriving"
	StageStoring    Stage = "storing"
	StageRecording  Stage = "recording"
	StageResponding Stage = "responding"
)

// StageError records which pipeline step failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage recorded on err, or "" when err did not come from the pipeline.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Upload is a received file plus the form fields that identify its owner.
type Upload struct {
	Kind        EntityKind
	Category    Category
	EntityID    string
	FileName    string
	ContentType string
	ExpiresAt   *time.Time
	UploadedBy  string
	Open        func() (io.ReadCloser, error)
}

// Stored is what the recording step receives after a successful write.
type Stored struct {
	Reference   object.Reference
	ContentType string
	Data        []byte
	UploadedAt  time.Time
}

// Target is the owner-specific half of an upload: the existence check run
// while validating and the metadata write run while recording.
type Target struct {
	Exists func(ctx context.Context) (bool, error)
	Record func(ctx context.Context, stored Stored) error
}

// Pipeline validates, derives, stores and records one upload at a time.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	Deriver Deriver
	Store   object.ObjectStore
	// Timeout bounds each store and database call.
	Timeout time.Duration
}

// Run executes the pipeline. Every failure is a *StageError. A failure while
// recording leaves the stored object in place.
func (p *Pipeline) Run(ctx context.Context, up Upload, target Target) (Stored, error) {
	stored, err := p.run(ctx, up, target)
	metrics.RecordUpload(string(up.Kind), len(stored.Data), err)
	if err != nil {
		LogUploadFailure(up, err)
	}
	return stored, err
}

func (p *Pipeline) run(ctx context.Context, up Upload, target Target) (Stored, error) {
	// validating
	if !up.Category.Allows(up.ContentType) {
		return Stored{}, &StageError{Stage: StageValidating, Err: fmt.Errorf("%w: %s", ErrDisallowedMIME, displayType(up.ContentType))}
	}
	if target.Exists != nil {
		opCtx, cancel := p.opContext(ctx)
		ok, err := target.Exists(opCtx)
		cancel()
		if err != nil {
			return Stored{}, &StageError{Stage: StageValidating, Err: fmt.Errorf("check %s %s: %w", up.Kind, up.EntityID, err)}
		}
		if !ok {
			return Stored{}, &StageError{Stage: StageValidating, Err: fmt.Errorf("%w: %s %s", ErrEntityNotFound, up.Kind, up.EntityID)}
		}
	}

	// deriving
	key, contentType, err := p.Deriver.DerivePath(up.Kind, up.Category, up.EntityID, ExtFromFileName(up.FileName))
	if err != nil {
		return Stored{}, &StageError{Stage: StageDeriving, Err: err}
	}

	// storing
	data, err := readAll(up.Open)
	if err != nil {
		return Stored{}, &StageError{Stage: StageStoring, Err: err}
	}
	opCtx, cancel := p.opContext(ctx)
	ref, err := p.Store.Put(opCtx, key, data, contentType, up.Category.Public())
	cancel()
	if err != nil {
		if !errors.Is(err, object.ErrWriteFailed) {
			err = fmt.Errorf("%w: %w", object.ErrWriteFailed, err)
		}
		return Stored{}, &StageError{Stage: StageStoring, Err: err}
	}

	stored := Stored{
		Reference:   ref,
		ContentType: contentType,
		Data:        data,
		UploadedAt:  p.Deriver.now().UTC(),
	}

	// recording
	if target.Record != nil {
		opCtx, cancel := p.opContext(ctx)
		err := target.Record(opCtx, stored)
		cancel()
		if err != nil {
			if !errors.Is(err, ErrEntityNotFound) {
				err = fmt.Errorf("%w: %w", ErrMetadataWrite, err)
			}
			telemetry.Warn("documents.upload.orphaned", map[string]any{
				"entity_kind": string(up.Kind),
				"entity_id":   up.EntityID,
				"category":    string(up.Category),
				"key":         ref.Key,
				"scheme":      string(ref.Scheme),
			})
			return stored, &StageError{Stage: StageRecording, Err: err}
		}
	}
	return stored, nil
}

func (p *Pipeline) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.Timeout)
}

// LogUploadFailure logs a failed upload with the stage it stopped at.
func LogUploadFailure(up Upload, err error) {
	stage := FailedStage(err)
	if stage == "" {
		stage = StageReceiving
	}
	telemetry.Error("documents.upload.failed", map[string]any{
		"stage":        string(stage),
		"entity_kind":  string(up.Kind),
		"entity_id":    up.EntityID,
		"category":     string(up.Category),
		"content_type": up.ContentType,
		"error":        err.Error(),
	})
}

func readAll(open func() (io.ReadCloser, error)) ([]byte, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: file", ErrMissingField)
	}
	rc, err := open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}

func displayType(contentType string) string {
	if contentType == "" {
		return "(none)"
	}
	return contentType
}
