package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"logistics-backend/internal/shared/metrics"
	"logistics-backend/internal/shared/storage/object"
	"logistics-backend/internal/shared/util"
)

// Disposition controls the download headers.
type Disposition struct {
	FileName    string
	ContentType string
}

// Gateway streams stored documents from the cloud store or the legacy local root.
type Gateway struct {
	Cloud object.ObjectStore
	Local object.ObjectStore
	// CloudBucket is the bucket Cloud reads from; references naming another bucket are not found.
	CloudBucket string
	// CloudPrefix is the store key prefix embedded in legacy cloud URLs.
	CloudPrefix string
	// PublicBaseURL is the prefix of cloud URLs recorded before references carried a scheme.
	PublicBaseURL string
	// LocalURLPrefix is stripped from legacy local URLs to get a path under the uploads root.
	LocalURLPrefix string
	Timeout        time.Duration
}

// Resolve returns ref with an explicit scheme. References written before the
// scheme field existed are classified from their URL.
func (g *Gateway) Resolve(ref object.Reference) (object.Reference, error) {
	switch ref.Scheme {
	case object.SchemeCloud, object.SchemeLocal:
		if ref.Key == "" {
			return object.Reference{}, fmt.Errorf("%w: empty key", ErrObjectNotFound)
		}
		return ref, nil
	case "":
		return g.ResolveLegacy(ref.PublicURL)
	default:
		return object.Reference{}, fmt.Errorf("%w: unknown scheme %q", ErrStorageRead, ref.Scheme)
	}
}

// ResolveLegacy classifies a bare stored URL. A URL under the public base URL
// is cloud, laid out as {base}/{bucket}/{key}; anything else is a path under
// the local uploads root.
func (g *Gateway) ResolveLegacy(raw string) (object.Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return object.Reference{}, fmt.Errorf("%w: empty reference", ErrFileNotFound)
	}

	base := strings.TrimRight(strings.TrimSpace(g.PublicBaseURL), "/")
	if base != "" && strings.HasPrefix(raw, base+"/") {
		rest := raw[len(base)+1:]
		if i := strings.IndexAny(rest, "?#"); i >= 0 {
			rest = rest[:i]
		}
		bucket, key, _ := strings.Cut(rest, "/")
		if decoded, err := url.PathUnescape(key); err == nil {
			key = decoded
		}
		if prefix := strings.Trim(g.CloudPrefix, "/"); prefix != "" {
			key = strings.TrimPrefix(key, prefix+"/")
		}
		if bucket == "" || key == "" {
			return object.Reference{}, fmt.Errorf("%w: %s", ErrObjectNotFound, raw)
		}
		return object.Reference{Scheme: object.SchemeCloud, Bucket: bucket, Key: key, PublicURL: raw}, nil
	}

	rel := raw
	if g.LocalURLPrefix != "" && strings.HasPrefix(rel, g.LocalURLPrefix) {
		rel = rel[len(g.LocalURLPrefix):]
	}
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return object.Reference{}, fmt.Errorf("%w: %s", ErrFileNotFound, raw)
	}
	return object.Reference{Scheme: object.SchemeLocal, Key: rel, PublicURL: raw}, nil
}

// Stream writes the referenced object to w. Headers are only written once the
// object is known to exist and be readable, so every returned error except
// ErrStreamAborted leaves w untouched.
func (g *Gateway) Stream(ctx context.Context, ref object.Reference, w http.ResponseWriter, d Disposition) error {
	resolved, err := g.Resolve(ref)
	if err != nil {
		metrics.RecordDownload("unresolved", err)
		return err
	}
	switch resolved.Scheme {
	case object.SchemeCloud:
		err = g.streamCloud(ctx, resolved, w, d)
	default:
		err = g.streamLocal(ctx, resolved.Key, w, d)
	}
	metrics.RecordDownload(string(resolved.Scheme), err)
	return err
}

func (g *Gateway) streamCloud(ctx context.Context, ref object.Reference, w http.ResponseWriter, d Disposition) error {
	if g.Cloud == nil {
		return fmt.Errorf("%w: no cloud store configured", ErrStorageRead)
	}
	key := ref.Key
	if ref.Bucket != "" && g.CloudBucket != "" && ref.Bucket != g.CloudBucket {
		return fmt.Errorf("%w: %s is in bucket %s, not %s", ErrObjectNotFound, key, ref.Bucket, g.CloudBucket)
	}

	opCtx, cancel := g.opContext(ctx)
	exists, err := g.Cloud.Exists(opCtx, key)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: exists %s: %w", ErrStorageRead, key, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}

	opCtx, cancel = g.opContext(ctx)
	meta, err := g.Cloud.Stat(opCtx, key)
	cancel()
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("%w: stat %s: %w", ErrStorageRead, key, err)
	}

	body, err := g.Cloud.Open(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("%w: open %s: %w", ErrStorageRead, key, err)
	}
	defer body.Close()

	return copyBody(w, body, meta, d)
}

func (g *Gateway) streamLocal(ctx context.Context, key string, w http.ResponseWriter, d Disposition) error {
	if g.Local == nil {
		return fmt.Errorf("%w: no local root configured", ErrFileNotFound)
	}

	body, err := g.Local.Open(ctx, key)
	if err != nil {
		switch {
		case errors.Is(err, object.ErrUnreadable):
			return fmt.Errorf("%w: %s: %w", ErrFileUnreadable, key, err)
		case errors.Is(err, object.ErrNotFound), errors.Is(err, object.ErrInvalidKey):
			return fmt.Errorf("%w: %s", ErrFileNotFound, key)
		default:
			return fmt.Errorf("%w: open %s: %w", ErrStorageRead, key, err)
		}
	}
	defer body.Close()

	meta, err := g.Local.Stat(ctx, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, key)
		}
		return fmt.Errorf("%w: stat %s: %w", ErrStorageRead, key, err)
	}

	return copyBody(w, body, meta, d)
}

func copyBody(w http.ResponseWriter, body io.Reader, meta object.Metadata, d Disposition) error {
	contentType := d.ContentType
	if contentType == "" {
		contentType = meta.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	h.Set("Content-Disposition", util.AttachmentDisposition(d.FileName, "document"))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamAborted, err)
	}
	return nil
}

func (g *Gateway) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.Timeout)
}
