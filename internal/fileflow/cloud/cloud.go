// Package cloud bridges stored files to and from external object
// stores. A Broker fronts one provider implementation per supported
// tag (s3, gcs, azure) behind a uniform streaming interface; targets
// carry per-request credentials that live no longer than the call.
package cloud

import (
	"context"
	"io"
	"time"
)

// Provider tags accepted on the wire.
const (
	ProviderS3    = "s3"
	ProviderGCS   = "gcs"
	ProviderAzure = "azure"
)

// Operation selects the direction a presigned URL grants.
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)

// Credentials are per-request provider credentials. Empty fields fall
// back to the service configuration; nothing here is ever persisted.
type Credentials struct {
	// S3-style static keys
	AccessKey    string
	SecretKey    string
	SessionToken string
	// Azure shared key
	AccountName string
	AccountKey  string
	// GCS service-account JSON
	ServiceAccountJSON []byte
}

// Target names one object in one provider for the duration of a call.
type Target struct {
	Provider    string
	Bucket      string
	Key         string
	Region      string
	Endpoint    string
	Credentials Credentials
}

// SignedURL is a time-limited direct-access URL plus any headers the
// client must send with it.
type SignedURL struct {
	URL       string
	Headers   map[string]string
	ExpiresAt time.Time
}

// Provider is one object-store implementation. Methods return the
// provider's raw errors; the broker wraps them into ProviderError.
type Provider interface {
	Name() string
	// Upload streams src into the target object without buffering the
	// whole object. contentLength may be -1 when unknown, which forces
	// the chunked transfer path. Returns the object URI.
	Upload(ctx context.Context, target Target, src io.Reader, contentLength int64, contentType string) (string, error)
	// Download opens the target object for reading.
	Download(ctx context.Context, target Target) (io.ReadCloser, error)
	// Copy performs a native server-side copy between two objects of
	// this provider. No bytes flow through the service.
	Copy(ctx context.Context, src, dst Target) (string, error)
	// Presign mints a time-limited URL for direct client access.
	Presign(ctx context.Context, target Target, op Operation, expiry time.Duration, contentType string) (*SignedURL, error)
}
