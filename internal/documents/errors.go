package documents

import (
	"errors"

	"logistics-backend/internal/shared/storage/object"
)

// Validation failures (400).
var (
	ErrMissingField        = errors.New("missing required field")
	ErrUnsupportedCategory = errors.New("unsupported document category")
	ErrDisallowedMIME      = errors.New("file type not allowed for this document")
	ErrPayloadTooLarge     = errors.New("file exceeds size limit")
	ErrInvalidEntityID     = errors.New("invalid entity id")
	ErrInvalidExtension    = errors.New("invalid file extension")
	ErrInvalidExpiry       = errors.New("invalid expiresAt")
)

// Not-found failures (404).
var (
	ErrEntityNotFound   = errors.New("entity not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrObjectNotFound   = errors.New("object not found in store")
	ErrFileNotFound     = errors.New("file not found")
)

// Storage and metadata failures (500).
var (
	ErrStorageWrite   = object.ErrWriteFailed
	ErrStorageRead    = object.ErrReadFailed
	ErrFileUnreadable = errors.New("file unreadable")
	ErrMetadataWrite  = errors.New("metadata write failed")
	ErrStreamAborted  = errors.New("stream aborted")
)

// IsValidation reports whether err is a client input error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingField,
		ErrUnsupportedCategory,
		ErrDisallowedMIME,
		ErrPayloadTooLarge,
		ErrInvalidEntityID,
		ErrInvalidExtension,
		ErrInvalidExpiry,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
