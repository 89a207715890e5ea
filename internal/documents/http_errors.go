package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"logistics-backend/internal/shared/server/respond"
	"logistics-backend/internal/shared/telemetry"
)

// WriteError maps a documents error to its HTTP status and JSON envelope.
func WriteError(c *gin.Context, err error) {
	if errors.Is(err, ErrStreamAborted) {
		// Headers are already on the wire; nothing can be reported to the client.
		telemetry.Error("documents.stream.aborted", map[string]any{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		c.Abort()
		return
	}

	detail := causeMessage(err)
	switch {
	case errors.Is(err, ErrUnsupportedCategory):
		respond.Error(c, http.StatusBadRequest, "unsupported_category", "Unsupported document category", detail)
	case errors.Is(err, ErrDisallowedMIME):
		respond.Error(c, http.StatusBadRequest, "validation_error", detail, detail)
	case errors.Is(err, ErrPayloadTooLarge):
		respond.Error(c, http.StatusBadRequest, "payload_too_large", "File exceeds size limit", detail)
	case IsValidation(err):
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid request", detail)
	case errors.Is(err, ErrEntityNotFound):
		respond.Error(c, http.StatusNotFound, "entity_not_found", "Entity not found", detail)
	case errors.Is(err, ErrDocumentNotFound):
		respond.Error(c, http.StatusNotFound, "document_not_found", "Document not found", detail)
	case errors.Is(err, ErrObjectNotFound):
		respond.Error(c, http.StatusNotFound, "object_not_found", "Object not found in store", detail)
	case errors.Is(err, ErrFileNotFound):
		respond.Error(c, http.StatusNotFound, "file_not_found", "File not found", detail)
	case errors.Is(err, ErrFileUnreadable):
		respond.Error(c, http.StatusInternalServerError, "file_unreadable", "File is not readable", detail)
	case errors.Is(err, ErrMetadataWrite):
		respond.Error(c, http.StatusInternalServerError, "metadata_write_failed", "Failed to record document", detail)
	case errors.Is(err, ErrStorageWrite):
		respond.Error(c, http.StatusInternalServerError, "storage_write_failed", "Failed to store file", detail)
	case errors.Is(err, ErrStorageRead):
		respond.Error(c, http.StatusInternalServerError, "storage_read_failed", "Failed to read file", detail)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", detail)
	}
}

// causeMessage drops the pipeline stage prefix from err's message.
func causeMessage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Err.Error()
	}
	return err.Error()
}
