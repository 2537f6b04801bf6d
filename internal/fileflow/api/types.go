// Package api holds the wire-level request and response types shared by
// the HTTP server, the client library, and the CLI. Every operation has
// a tagged struct here; handlers validate these before any component
// logic runs.
package api

import "time"

// InitUploadRequest opens a resumable chunked upload session.
type InitUploadRequest struct {
	Filename  string            `json:"filename"`
	TotalSize int64             `json:"totalSize"`
	MimeType  string            `json:"mimeType,omitempty"`
	ChunkSize int64             `json:"chunkSize,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type InitUploadResponse struct {
	UploadID    string    `json:"uploadId"`
	ChunkSize   int64     `json:"chunkSize"`
	TotalChunks int       `json:"totalChunks"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ChunkReceipt acknowledges one staged chunk.
type ChunkReceipt struct {
	ChunkIndex    int    `json:"chunkIndex"`
	BytesReceived int64  `json:"bytesReceived"`
	Checksum      string `json:"checksum"`
}

type UploadStatusResponse struct {
	UploadID        string  `json:"uploadId"`
	Filename        string  `json:"filename"`
	Status          string  `json:"status"`
	ChunkSize       int64   `json:"chunkSize"`
	TotalChunks     int     `json:"totalChunks"`
	ReceivedChunks  []int   `json:"receivedChunks"`
	MissingChunks   []int   `json:"missingChunks"`
	BytesUploaded   int64   `json:"bytesUploaded"`
	PercentComplete float64 `json:"percentComplete"`
}

// CompleteUploadRequest finishes a session. Checksums maps chunk index
// (as a JSON string key) to the client's SHA-256 hex for that chunk;
// Checksum is the optional whole-file digest.
type CompleteUploadRequest struct {
	Checksums map[int]string `json:"checksums,omitempty"`
	Checksum  string         `json:"checksum,omitempty"`
}

type CompleteUploadResponse struct {
	FileID   string `json:"fileId"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// DownloadInitRequest asks for a chunked download plan.
type DownloadInitRequest struct {
	FileID    string `json:"fileId"`
	ChunkSize int64  `json:"chunkSize,omitempty"`
}

type ChunkRange struct {
	Index     int   `json:"index"`
	ByteStart int64 `json:"byteStart"`
	ByteEnd   int64 `json:"byteEnd"`
	Size      int64 `json:"size"`
}

type DownloadInitResponse struct {
	FileID    string       `json:"fileId"`
	Filename  string       `json:"filename"`
	Size      int64        `json:"size"`
	ChunkSize int64        `json:"chunkSize"`
	Chunks    []ChunkRange `json:"chunks"`
}

// CloudCredentials carries per-request provider credentials. They are
// scoped to the single broker call and never persisted.
type CloudCredentials struct {
	// S3-style
	AccessKey    string `json:"accessKey,omitempty"`
	SecretKey    string `json:"secretKey,omitempty"`
	SessionToken string `json:"sessionToken,omitempty"`
	// Azure shared key
	AccountName string `json:"accountName,omitempty"`
	AccountKey  string `json:"accountKey,omitempty"`
	// GCS service-account JSON
	ServiceAccountJSON string `json:"serviceAccountJson,omitempty"`
}

// CloudLocation names one object in one provider.
type CloudLocation struct {
	Provider    string            `json:"provider"`
	Bucket      string            `json:"bucket"`
	Key         string            `json:"key"`
	Region      string            `json:"region,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Credentials *CloudCredentials `json:"credentials,omitempty"`
}

type CloudUploadRequest struct {
	FileID string `json:"fileId"`
	CloudLocation
}

type CloudUploadResponse struct {
	URI  string `json:"uri"`
	Size int64  `json:"size"`
}

type CloudDownloadRequest struct {
	CloudLocation
	// Filename overrides the name recorded on the materialized file;
	// defaults to the object key's basename.
	Filename string `json:"filename,omitempty"`
}

type CloudCopyRequest struct {
	Source      CloudLocation `json:"source"`
	Destination CloudLocation `json:"destination"`
}

type CloudCopyResponse struct {
	URI string `json:"uri"`
	// Native reports whether the provider copied server-side, with no
	// bytes flowing through this service.
	Native bool `json:"native"`
}

type PresignedURLRequest struct {
	CloudLocation
	// Operation is "read" or "write".
	Operation     string `json:"operation"`
	ExpirySeconds int64  `json:"expirySeconds,omitempty"`
	ContentType   string `json:"contentType,omitempty"`
}

type PresignedURLResponse struct {
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// TransformRequest submits an asynchronous transform job. The kind
// travels in the URL path.
type TransformRequest struct {
	InputFileIDs []string          `json:"inputFileIds"`
	Params       map[string]string `json:"params,omitempty"`
}

type TransformResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	StatusURL string `json:"statusUrl"`
}

type JobResponse struct {
	JobID         string            `json:"jobId"`
	Kind          string            `json:"kind"`
	Status        string            `json:"status"`
	Progress      float64           `json:"progress"`
	InputFileIDs  []string          `json:"inputFileIds"`
	OutputFileIDs []string          `json:"outputFileIds,omitempty"`
	Result        map[string]string `json:"result,omitempty"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	StartedAt     *time.Time        `json:"startedAt,omitempty"`
	CompletedAt   *time.Time        `json:"completedAt,omitempty"`
}

type FileResponse struct {
	FileID    string            `json:"fileId"`
	Filename  string            `json:"filename"`
	Size      int64             `json:"size"`
	MimeType  string            `json:"mimeType"`
	Checksum  string            `json:"checksum"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

type FileListResponse struct {
	Files []FileResponse `json:"files"`
}

type ChecksumRequest struct {
	FileID    string `json:"fileId"`
	Algorithm string `json:"algorithm,omitempty"`
}

type ChecksumResponse struct {
	FileID    string `json:"fileId"`
	Algorithm string `json:"algorithm"`
	Checksum  string `json:"checksum"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
