package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fileflow/internal/fileflow/api"
	"fileflow/internal/fileflow/cloud"
	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/mappers"
	"fileflow/internal/fileflow/storage"
	apperrors "fileflow/pkg/errors"
)

// defaultPresignExpiry applies when the request omits expirySeconds.
const defaultPresignExpiry = 15 * time.Minute

func (s *Server) handleCloudUpload(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("operation", "cloud-upload")

	var req api.CloudUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	rc, resolved, file, err := s.downloads.Open(r.Context(), req.FileID, 0, apperrors.WholeFile)
	if err != nil {
		writeError(w, log, err)
		return
	}
	defer rc.Close()

	uri, err := s.broker.UploadStream(r.Context(), targetFromLocation(req.CloudLocation), rc, resolved.Length(), file.MimeType)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, &api.CloudUploadResponse{URI: uri, Size: resolved.Length()})
}

// handleCloudDownload pulls an object out of a provider and registers it
// as a new local file. The object streams through a pipe into the
// backend while a running SHA-256 accumulates; nothing is buffered
// whole.
func (s *Server) handleCloudDownload(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("operation", "cloud-download")

	var req api.CloudDownloadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	fileID := uuid.NewString()
	fileKey := storage.FileKey(fileID)

	pr, pw := io.Pipe()
	hasher := sha256.New()
	var size int64

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		_, err := s.broker.DownloadStream(gctx, targetFromLocation(req.CloudLocation), pw)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		var err error
		size, err = s.backend.Write(gctx, fileKey, io.TeeReader(pr, hasher))
		if err != nil {
			pr.CloseWithError(err)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		if cleanupErr := s.backend.Delete(context.Background(), fileKey); cleanupErr != nil {
			log.Warn("failed to discard partial object", "key", fileKey, "error", cleanupErr)
		}
		writeError(w, log, err)
		return
	}

	filename := req.Filename
	if filename == "" {
		filename = path.Base(req.Key)
	}

	file := domain.NewFile(fileID, filename, fileKey, size,
		s.sniffMimeType(r.Context(), fileKey), hex.EncodeToString(hasher.Sum(nil)),
		map[string]string{"source": fmt.Sprintf("%s://%s/%s", req.Provider, req.Bucket, req.Key)},
		s.cfg.Upload.FileTTL.Std())

	if err := s.files.PutFile(file); err != nil {
		s.backend.Delete(context.Background(), fileKey)
		writeError(w, log, err)
		return
	}

	log.Info("cloud object materialized",
		"fileId", fileID,
		"provider", req.Provider,
		"bytes", size)

	writeJSON(w, http.StatusCreated, mappers.FileToResponse(file))
}

func (s *Server) handleCloudCopy(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("operation", "cloud-copy")

	var req api.CloudCopyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	uri, native, err := s.broker.Copy(r.Context(),
		targetFromLocation(req.Source), targetFromLocation(req.Destination))
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, &api.CloudCopyResponse{URI: uri, Native: native})
}

func (s *Server) handlePresignedURL(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("operation", "presigned-url")

	var req api.PresignedURLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	expiry := defaultPresignExpiry
	if req.ExpirySeconds != 0 {
		expiry = time.Duration(req.ExpirySeconds) * time.Second
	}

	signed, err := s.broker.PresignedURL(r.Context(), targetFromLocation(req.CloudLocation),
		cloud.Operation(req.Operation), expiry, req.ContentType)
	if err != nil {
		writeError(w, log, err)
		return
	}

	writeJSON(w, http.StatusOK, &api.PresignedURLResponse{
		URL:       signed.URL,
		Headers:   signed.Headers,
		ExpiresAt: signed.ExpiresAt,
	})
}

// sniffMimeType detects the content type from the stored object's head.
func (s *Server) sniffMimeType(ctx context.Context, key string) string {
	rc, err := s.backend.ReadRange(ctx, key, 0, 3072)
	if err != nil {
		return "application/octet-stream"
	}
	defer rc.Close()

	head, err := io.ReadAll(rc)
	if err != nil {
		return "application/octet-stream"
	}
	return mimetype.Detect(head).String()
}

// targetFromLocation maps the wire location onto a broker target. The
// credentials live only for the call.
func targetFromLocation(loc api.CloudLocation) cloud.Target {
	target := cloud.Target{
		Provider: loc.Provider,
		Bucket:   loc.Bucket,
		Key:      loc.Key,
		Region:   loc.Region,
		Endpoint: loc.Endpoint,
	}
	if loc.Credentials != nil {
		target.Credentials = cloud.Credentials{
			AccessKey:    loc.Credentials.AccessKey,
			SecretKey:    loc.Credentials.SecretKey,
			SessionToken: loc.Credentials.SessionToken,
			AccountName:  loc.Credentials.AccountName,
			AccountKey:   loc.Credentials.AccountKey,
		}
		if loc.Credentials.ServiceAccountJSON != "" {
			target.Credentials.ServiceAccountJSON = []byte(loc.Credentials.ServiceAccountJSON)
		}
	}
	return target
}
