// Package server exposes the service over HTTP. Routes mount under
// /api/v1 and speak the tagged JSON types of internal/fileflow/api;
// failures map to the stable-code envelope in errors.go.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fileflow/internal/fileflow/cloud"
	"fileflow/internal/fileflow/core/download"
	"fileflow/internal/fileflow/core/transform"
	"fileflow/internal/fileflow/core/upload"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// Version is stamped by the build; "dev" otherwise.
var Version = "dev"

// maxJSONBody bounds metadata-style request bodies. Chunk and cloud
// payloads stream and are not subject to it.
const maxJSONBody = 1 << 20

// Server is the HTTP front of the service.
type Server struct {
	uploads   *upload.Manager
	downloads *download.Streamer
	engine    *transform.Engine
	broker    *cloud.Broker
	files     state.FileStore
	backend   storage.Backend
	cfg       *config.Config
	logger    *logger.Logger

	http *http.Server
}

func New(cfg *config.Config, uploads *upload.Manager, downloads *download.Streamer,
	engine *transform.Engine, broker *cloud.Broker, files state.FileStore, backend storage.Backend) *Server {

	s := &Server{
		uploads:   uploads,
		downloads: downloads,
		engine:    engine,
		broker:    broker,
		files:     files,
		backend:   backend,
		cfg:       cfg,
		logger:    logger.WithField("component", "http-server"),
	}

	s.http = &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Std(),
		IdleTimeout:       cfg.Server.IdleTimeout.Std(),
	}

	return s
}

// Handler builds the route table. Exposed so tests can drive the server
// through httptest without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/v1/upload/init", s.handleUploadInit)
	mux.HandleFunc("PUT /api/v1/upload/{uploadId}/chunk/{chunkIndex}", s.handlePutChunk)
	mux.HandleFunc("POST /api/v1/upload/{uploadId}/complete", s.handleUploadComplete)
	mux.HandleFunc("GET /api/v1/upload/{uploadId}/status", s.handleUploadStatus)
	mux.HandleFunc("DELETE /api/v1/upload/{uploadId}", s.handleUploadCancel)

	mux.HandleFunc("GET /api/v1/download/{fileId}", s.handleDownload)
	mux.HandleFunc("POST /api/v1/download/init", s.handleDownloadInit)

	mux.HandleFunc("POST /api/v1/cloud/upload", s.handleCloudUpload)
	mux.HandleFunc("POST /api/v1/cloud/download", s.handleCloudDownload)
	mux.HandleFunc("POST /api/v1/cloud/copy", s.handleCloudCopy)
	mux.HandleFunc("POST /api/v1/cloud/presigned-url", s.handlePresignedURL)

	mux.HandleFunc("POST /api/v1/transform/{kind}", s.handleTransformSubmit)
	mux.HandleFunc("GET /api/v1/transform/status/{jobId}", s.handleTransformStatus)

	mux.HandleFunc("POST /api/v1/files/checksum", s.handleFileChecksum)
	mux.HandleFunc("GET /api/v1/files/{fileId}/metadata", s.handleFileMetadata)
	mux.HandleFunc("DELETE /api/v1/files/{fileId}", s.handleFileDelete)
	mux.HandleFunc("GET /api/v1/files", s.handleFileList)

	return s.logRequests(mux)
}

// Start serves until Shutdown or a listener failure.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "address", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(started))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are
// tolerated; malformed JSON is a validation failure.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return apperrors.Validationf("body", "malformed request body: %v", err)
	}
	return nil
}

// decodeJSONOptional is decodeJSON for requests whose fields are all
// optional: a body-less request decodes to the zero value.
func decodeJSONOptional(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Validationf("body", "malformed request body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
