package storage

import (
	"context"
	"time"
)

// Default expiry for presigned preview URLs. Previews only need to live as
// long as the applicant's form session.
const DefaultPreviewURLExpiry = 30 * time.Minute

// PreviewStorage holds the portal-local copies of selected files so the UI
// can render a preview immediately, regardless of the upstream service's
// availability. References are revocable: DeletePreview removes the object.
type PreviewStorage interface {
	// PutPreview stores the file bytes under the given key and returns a
	// temporary URL the browser can render.
	PutPreview(ctx context.Context, objectKey string, contentType string, data []byte) (string, error)

	// PreviewURL re-issues a temporary URL for an existing preview object.
	PreviewURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeletePreview revokes a preview by removing its object.
	DeletePreview(ctx context.Context, objectKey string) error
}
