package server

import (
	"net/http"
	"strconv"

	"fileflow/internal/fileflow/api"
	"fileflow/internal/fileflow/core/upload"
	"fileflow/internal/fileflow/mappers"
	apperrors "fileflow/pkg/errors"
)

// ChunkChecksumHeader carries the client's SHA-256 hex for a chunk body.
const ChunkChecksumHeader = "X-Chunk-Checksum"

func (s *Server) handleUploadInit(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("operation", "upload-init")

	var req api.InitUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	session, err := s.uploads.InitUpload(r.Context(), upload.InitRequest{
		Filename:  req.Filename,
		TotalSize: req.TotalSize,
		ChunkSize: req.ChunkSize,
		MimeType:  req.MimeType,
		Metadata:  req.Metadata,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusCreated, mappers.SessionToInitResponse(session))
}

func (s *Server) handlePutChunk(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	log := s.logger.WithFields("operation", "put-chunk", "uploadId", uploadID)

	index, err := strconv.Atoi(r.PathValue("chunkIndex"))
	if err != nil {
		writeError(w, log, apperrors.Validationf("chunkIndex", "not an integer: %s", r.PathValue("chunkIndex")))
		return
	}

	session, err := s.uploads.PutChunk(r.Context(), uploadID, index, r.Header.Get(ChunkChecksumHeader), r.Body)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, mappers.ChunkToReceipt(session, index))
}

func (s *Server) handleUploadComplete(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	log := s.logger.WithFields("operation", "upload-complete", "uploadId", uploadID)

	// every field is optional, so a body-less complete is fine
	var req api.CompleteUploadRequest
	if err := decodeJSONOptional(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	file, err := s.uploads.Complete(r.Context(), uploadID, upload.CompleteRequest{
		ChunkChecksums: req.Checksums,
		Checksum:       req.Checksum,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, &api.CompleteUploadResponse{
		FileID:   file.FileID,
		Size:     file.Size,
		Checksum: file.Checksum,
	})
}

func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	log := s.logger.WithFields("operation", "upload-status", "uploadId", uploadID)

	session, err := s.uploads.Status(uploadID)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, mappers.SessionToStatusResponse(session))
}

func (s *Server) handleUploadCancel(w http.ResponseWriter, r *http.Request) {
	uploadID := r.PathValue("uploadId")
	log := s.logger.WithFields("operation", "upload-cancel", "uploadId", uploadID)

	if err := s.uploads.Cancel(r.Context(), uploadID); err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, &api.OKResponse{OK: true})
}
