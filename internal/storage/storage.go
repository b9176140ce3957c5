package storage

import (
	"context"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// PlanArchive defines the interface for archiving generated plan
// snapshots. Every generation writes one immutable JSON object; athletes
// download exports through presigned URLs so the export bytes never pass
// through this service.
type PlanArchive interface {
	// PutSnapshot stores the serialized plan under the given object key.
	PutSnapshot(ctx context.Context, objectKey string, body []byte, contentType string) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET
	// requests for downloading a snapshot directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)

	// DeleteSnapshot removes a snapshot object (GDPR erasure path, driven
	// by an external tool; nothing in this service calls it routinely).
	DeleteSnapshot(ctx context.Context, objectKey string) error
}
