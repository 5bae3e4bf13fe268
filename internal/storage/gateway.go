// Package storage issues time-boxed access grants for document bytes. The
// core never touches file content; it only builds deterministic object keys
// and hands out pre-signed URLs.
package storage

import (
	"context"
	"fmt"
	"regexp"
	"time"

	id "fleetdocs/pkg/domain"
)

// ObjectStore signs single-operation access to one object.
type ObjectStore interface {
	// PresignUpload returns a write-once URL for PUTting the object.
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	// PresignDownload returns a read URL for the object.
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	// Bucket names the backing bucket for registry bookkeeping.
	Bucket() string
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFileName replaces every character outside [A-Za-z0-9._-] with an
// underscore so client-supplied names can never escape the key namespace.
func SanitizeFileName(name string) string {
	return unsafeKeyChars.ReplaceAllString(name, "_")
}

// BuildKey constructs the deterministic object key
// [tenant/]driverID/documentType/timestamp_fileName. The timestamp prefix
// keeps concurrent uploads for the same driver and type from colliding, and
// the driver prefix keeps one namespace per driver for
// authorization-by-prefix.
func BuildKey(tenant id.TenantID, driverID id.DriverID, docType string, fileName string, now time.Time) string {
	key := fmt.Sprintf("%s/%s/%d_%s", driverID.String(), docType, now.Unix(), SanitizeFileName(fileName))
	if tenant != "" {
		key = tenant.String() + "/" + key
	}
	return key
}
