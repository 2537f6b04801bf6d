package server

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"net/http"

	"fileflow/internal/fileflow/api"
	"fileflow/internal/fileflow/mappers"
	"fileflow/pkg/buffer"
	apperrors "fileflow/pkg/errors"
)

// handleFileChecksum digests a stored file synchronously. The async
// route for the same work is the checksum transform kind.
func (s *Server) handleFileChecksum(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("operation", "file-checksum")

	var req api.ChecksumRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = "sha256"
	}

	var hasher hash.Hash
	switch algorithm {
	case "sha256":
		hasher = sha256.New()
	case "sha512":
		hasher = sha512.New()
	case "sha1":
		hasher = sha1.New()
	case "md5":
		hasher = md5.New()
	default:
		writeError(w, log, apperrors.Validationf("algorithm", "unsupported algorithm %q", algorithm))
		return
	}

	rc, _, _, err := s.downloads.Open(r.Context(), req.FileID, 0, apperrors.WholeFile)
	if err != nil {
		writeError(w, log, err)
		return
	}
	defer rc.Close()

	if _, err := buffer.Copy(hasher, rc); err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, &api.ChecksumResponse{
		FileID:    req.FileID,
		Algorithm: algorithm,
		Checksum:  hex.EncodeToString(hasher.Sum(nil)),
	})
}

func (s *Server) handleFileMetadata(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	log := s.logger.WithFields("operation", "file-metadata", "fileId", fileID)

	file, err := s.downloads.FileInfo(fileID)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, mappers.FileToResponse(file))
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	log := s.logger.WithFields("operation", "file-delete", "fileId", fileID)

	file, err := s.downloads.FileInfo(fileID)
	if err != nil {
		writeError(w, log, err)
		return
	}

	if err := s.backend.Delete(r.Context(), file.StorageKey); err != nil {
		writeError(w, log, err)
		return
	}
	if err := s.files.RemoveFile(fileID); err != nil && !apperrors.IsNotFound(err) {
		writeError(w, log, err)
		return
	}

	log.Info("file deleted", "size", file.Size)
	writeJSON(w, http.StatusOK, &api.OKResponse{OK: true})
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mappers.FilesToListResponse(s.files.ListFiles()))
}
