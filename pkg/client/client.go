// Package client is the HTTP client for the fileflow API, used by
// flowctl and embeddable by other Go programs. High-level helpers
// implement resumable chunked uploads and manifest-driven parallel
// downloads on top of the wire operations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fileflow/internal/fileflow/api"
)

// APIError is a non-2xx reply decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// IsNotFound reports whether err is a not_found reply.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == "not_found"
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the server at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: 10 * time.Minute})
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// --- upload ---

func (c *Client) InitUpload(ctx context.Context, req *api.InitUploadRequest) (*api.InitUploadResponse, error) {
	var resp api.InitUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/upload/init", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PutChunk sends one chunk body. checksum, when non-empty, travels in
// the verification header and a mismatch rejects the chunk.
func (c *Client) PutChunk(ctx context.Context, uploadID string, index int, checksum string, body io.Reader) (*api.ChunkReceipt, error) {
	url := fmt.Sprintf("%s/api/v1/upload/%s/chunk/%d", c.baseURL, uploadID, index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, err
	}
	if checksum != "" {
		req.Header.Set("X-Chunk-Checksum", checksum)
	}

	var receipt api.ChunkReceipt
	if err := c.send(req, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) CompleteUpload(ctx context.Context, uploadID string, req *api.CompleteUploadRequest) (*api.CompleteUploadResponse, error) {
	var resp api.CompleteUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/upload/"+uploadID+"/complete", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UploadStatus(ctx context.Context, uploadID string) (*api.UploadStatusResponse, error) {
	var resp api.UploadStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/upload/"+uploadID+"/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CancelUpload(ctx context.Context, uploadID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/upload/"+uploadID, nil, nil)
}

// UploadFile opens a session for the local file at path and transfers
// every chunk with at most parallel in-flight PUTs, then completes.
func (c *Client) UploadFile(ctx context.Context, path string, chunkSize int64, parallel int) (*api.CompleteUploadResponse, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	init, err := c.InitUpload(ctx, &api.InitUploadRequest{
		Filename:  filepath.Base(path),
		TotalSize: info.Size(),
		ChunkSize: chunkSize,
	})
	if err != nil {
		return nil, err
	}

	indices := make([]int, init.TotalChunks)
	for i := range indices {
		indices[i] = i
	}

	if err := c.transferChunks(ctx, init.UploadID, path, info.Size(), init.ChunkSize, indices, parallel); err != nil {
		return nil, err
	}

	return c.CompleteUpload(ctx, init.UploadID, &api.CompleteUploadRequest{})
}

// ResumeUpload asks the server which chunks are still missing from an
// open session and transfers only those, then completes. The local
// file must be the content the session was opened for.
func (c *Client) ResumeUpload(ctx context.Context, uploadID, path string, parallel int) (*api.CompleteUploadResponse, error) {
	status, err := c.UploadStatus(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if err := c.transferChunks(ctx, uploadID, path, info.Size(), status.ChunkSize, status.MissingChunks, parallel); err != nil {
		return nil, err
	}

	return c.CompleteUpload(ctx, uploadID, &api.CompleteUploadRequest{})
}

// transferChunks PUTs the named chunk indices concurrently. Each chunk
// reads its own section of the file, so goroutines never share a file
// offset.
func (c *Client) transferChunks(ctx context.Context, uploadID, path string, totalSize, chunkSize int64, indices []int, parallel int) error {
	if len(indices) == 0 {
		return nil
	}
	if parallel < 1 {
		parallel = 1
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, index := range indices {
		index := index
		g.Go(func() error {
			offset := int64(index) * chunkSize
			length := chunkSize
			if offset+length > totalSize {
				length = totalSize - offset
			}

			section := io.NewSectionReader(f, offset, length)
			if _, err := c.PutChunk(gctx, uploadID, index, "", section); err != nil {
				return fmt.Errorf("chunk %d: %w", index, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// --- download ---

// Download streams the whole file into w.
func (c *Client) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	return c.DownloadRange(ctx, fileID, 0, -1, w)
}

// DownloadRange streams bytes [start,end] into w; end -1 reads to the
// end of the file.
func (c *Client) DownloadRange(ctx context.Context, fileID string, start, end int64, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/download/"+fileID, nil)
	if err != nil {
		return 0, err
	}
	if start != 0 || end != -1 {
		if end == -1 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
		} else {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, decodeAPIError(resp)
	}

	return io.Copy(w, resp.Body)
}

func (c *Client) DownloadManifest(ctx context.Context, fileID string, chunkSize int64) (*api.DownloadInitResponse, error) {
	var resp api.DownloadInitResponse
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/download/init",
		&api.DownloadInitRequest{FileID: fileID, ChunkSize: chunkSize}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DownloadToFile fetches the server's chunk manifest and pulls the
// windows concurrently into path, at most parallel ranges in flight.
func (c *Client) DownloadToFile(ctx context.Context, fileID, path string, chunkSize int64, parallel int) error {
	manifest, err := c.DownloadManifest(ctx, fileID, chunkSize)
	if err != nil {
		return err
	}
	if parallel < 1 {
		parallel = 1
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := f.Truncate(manifest.Size); err != nil {
		f.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, chunk := range manifest.Chunks {
		chunk := chunk
		g.Go(func() error {
			w := io.NewOffsetWriter(f, chunk.ByteStart)
			n, err := c.DownloadRange(gctx, fileID, chunk.ByteStart, chunk.ByteEnd, w)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunk.Index, err)
			}
			if n != chunk.Size {
				return fmt.Errorf("chunk %d: got %d bytes, expected %d", chunk.Index, n, chunk.Size)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// --- transform ---

func (c *Client) SubmitTransform(ctx context.Context, kind string, req *api.TransformRequest) (*api.TransformResponse, error) {
	var resp api.TransformResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/transform/"+kind, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) JobStatus(ctx context.Context, jobID string) (*api.JobResponse, error) {
	var resp api.JobResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/transform/status/"+jobID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitForJob polls until the job reaches a terminal state or ctx ends.
func (c *Client) WaitForJob(ctx context.Context, jobID string, interval time.Duration) (*api.JobResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.JobStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Status == "completed" || job.Status == "failed" {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// --- files ---

func (c *Client) FileMetadata(ctx context.Context, fileID string) (*api.FileResponse, error) {
	var resp api.FileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/files/"+fileID+"/metadata", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListFiles(ctx context.Context) (*api.FileListResponse, error) {
	var resp api.FileListResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/files", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/files/"+fileID, nil, nil)
}

func (c *Client) Checksum(ctx context.Context, req *api.ChecksumRequest) (*api.ChecksumResponse, error) {
	var resp api.ChecksumResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/files/checksum", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- cloud ---

func (c *Client) CloudUpload(ctx context.Context, req *api.CloudUploadRequest) (*api.CloudUploadResponse, error) {
	var resp api.CloudUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/cloud/upload", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CloudDownload(ctx context.Context, req *api.CloudDownloadRequest) (*api.FileResponse, error) {
	var resp api.FileResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/cloud/download", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CloudCopy(ctx context.Context, req *api.CloudCopyRequest) (*api.CloudCopyResponse, error) {
	var resp api.CloudCopyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/cloud/copy", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) PresignedURL(ctx context.Context, req *api.PresignedURLRequest) (*api.PresignedURLResponse, error) {
	var resp api.PresignedURLResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/cloud/presigned-url", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health reports daemon liveness.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- plumbing ---

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Code: "internal_error"}

	var envelope api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
		apiErr.Details = envelope.Details
	} else {
		apiErr.Message = resp.Status
	}

	return apiErr
}
