// Package mappers converts domain entities into the API's wire types.
package mappers

import (
	"fileflow/internal/fileflow/api"
	"fileflow/internal/fileflow/core/download"
	"fileflow/internal/fileflow/domain"
)

// SessionToInitResponse converts a fresh session to the init reply.
func SessionToInitResponse(s *domain.UploadSession) *api.InitUploadResponse {
	return &api.InitUploadResponse{
		UploadID:    s.UploadID,
		ChunkSize:   s.ChunkSize,
		TotalChunks: s.TotalChunks,
		ExpiresAt:   s.ExpiresAt,
	}
}

// SessionToStatusResponse converts a session to the status snapshot.
// The byte estimate is capped at the declared size, matching what a
// client can compute from chunk count alone.
func SessionToStatusResponse(s *domain.UploadSession) *api.UploadStatusResponse {
	bytesUploaded := int64(len(s.ReceivedChunks)) * s.ChunkSize
	if bytesUploaded > s.TotalSize {
		bytesUploaded = s.TotalSize
	}

	return &api.UploadStatusResponse{
		UploadID:        s.UploadID,
		Filename:        s.Filename,
		Status:          string(s.Status),
		ChunkSize:       s.ChunkSize,
		TotalChunks:     s.TotalChunks,
		ReceivedChunks:  s.ReceivedIndices(),
		MissingChunks:   s.MissingIndices(),
		BytesUploaded:   bytesUploaded,
		PercentComplete: s.PercentComplete(),
	}
}

// ChunkToReceipt converts a post-insert session view to the receipt for
// the chunk at index.
func ChunkToReceipt(s *domain.UploadSession, index int) *api.ChunkReceipt {
	info := s.ReceivedChunks[index]
	return &api.ChunkReceipt{
		ChunkIndex:    index,
		BytesReceived: info.Size,
		Checksum:      info.Checksum,
	}
}

// FileToResponse converts a file record to its API shape.
func FileToResponse(f *domain.File) *api.FileResponse {
	resp := &api.FileResponse{
		FileID:    f.FileID,
		Filename:  f.Filename,
		Size:      f.Size,
		MimeType:  f.MimeType,
		Checksum:  f.Checksum,
		CreatedAt: f.CreatedAt,
	}
	if len(f.Metadata) > 0 {
		resp.Metadata = f.Metadata
	}
	if !f.ExpiresAt.IsZero() {
		expires := f.ExpiresAt
		resp.ExpiresAt = &expires
	}
	return resp
}

// FilesToListResponse converts a registry listing.
func FilesToListResponse(files []*domain.File) *api.FileListResponse {
	resp := &api.FileListResponse{Files: make([]api.FileResponse, 0, len(files))}
	for _, f := range files {
		resp.Files = append(resp.Files, *FileToResponse(f))
	}
	return resp
}

// JobToResponse converts a transform job snapshot.
func JobToResponse(j *domain.TransformJob) *api.JobResponse {
	return &api.JobResponse{
		JobID:         j.JobID,
		Kind:          string(j.Kind),
		Status:        string(j.Status),
		Progress:      j.Progress,
		InputFileIDs:  j.InputFileIDs,
		OutputFileIDs: j.OutputFileIDs,
		Result:        j.Result,
		Error:         j.Error,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		CompletedAt:   j.CompletedAt,
	}
}

// ManifestToResponse converts a chunked download plan.
func ManifestToResponse(f *domain.File, chunkSize int64, entries []download.ManifestEntry) *api.DownloadInitResponse {
	resp := &api.DownloadInitResponse{
		FileID:    f.FileID,
		Filename:  f.Filename,
		Size:      f.Size,
		ChunkSize: chunkSize,
		Chunks:    make([]api.ChunkRange, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Chunks = append(resp.Chunks, api.ChunkRange{
			Index:     e.Index,
			ByteStart: e.Start,
			ByteEnd:   e.End,
			Size:      e.Size,
		})
	}
	return resp
}
