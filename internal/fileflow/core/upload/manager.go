package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/buffer"
	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// sniffLen is how many leading bytes feed content-type detection.
const sniffLen = 3072

// Manager owns the chunked upload lifecycle: session creation, chunk
// staging, assembly into a permanent file, and cancellation.
type Manager struct {
	sessions state.SessionStore
	files    state.FileStore
	backend  storage.Backend
	cfg      config.UploadConfig
	logger   *logger.Logger

	// uploads whose assembly is in flight, so a duplicate Complete
	// cannot register the same content twice
	assembling sync.Map
}

func NewManager(sessions state.SessionStore, files state.FileStore, backend storage.Backend, cfg config.UploadConfig) *Manager {
	return &Manager{
		sessions: sessions,
		files:    files,
		backend:  backend,
		cfg:      cfg,
		logger:   logger.WithField("component", "upload-manager"),
	}
}

// InitRequest carries the client-declared shape of an upload.
type InitRequest struct {
	Filename  string
	TotalSize int64
	ChunkSize int64 // 0 selects the configured default
	MimeType  string
	Metadata  map[string]string
}

// InitUpload validates the declared shape and opens a session.
func (m *Manager) InitUpload(ctx context.Context, req InitRequest) (*domain.UploadSession, error) {
	if req.Filename == "" {
		return nil, apperrors.NewValidation("filename", "must not be empty")
	}
	if req.TotalSize <= 0 {
		return nil, apperrors.NewValidation("totalSize", "must be positive")
	}

	chunkSize := req.ChunkSize
	if chunkSize == 0 {
		chunkSize = m.cfg.DefaultChunkSize
	}
	if chunkSize <= 0 {
		return nil, apperrors.NewValidation("chunkSize", "must be positive")
	}
	if chunkSize > m.cfg.MaxChunkSize {
		return nil, apperrors.NewValidation("chunkSize",
			fmt.Sprintf("exceeds maximum of %d bytes", m.cfg.MaxChunkSize))
	}

	session := domain.NewUploadSession(uuid.NewString(), req.Filename, req.TotalSize, chunkSize,
		req.MimeType, req.Metadata, m.cfg.SessionTTL.Std())

	if err := m.sessions.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create upload session: %w", err)
	}

	m.logger.Info("upload session opened",
		"uploadId", session.UploadID,
		"filename", session.Filename,
		"totalSize", session.TotalSize,
		"chunkSize", session.ChunkSize,
		"totalChunks", session.TotalChunks)

	return session, nil
}

// PutChunk stages one chunk's bytes and records it on the session.
// Retransmitting an index overwrites the staged bytes; the last write
// wins. expectedChecksum, when non-empty, is the client's SHA-256 hex
// for this chunk and a mismatch rejects the chunk.
func (m *Manager) PutChunk(ctx context.Context, uploadID string, index int, expectedChecksum string, r io.Reader) (*domain.UploadSession, error) {
	session, ok := m.sessions.GetSession(uploadID)
	if !ok || !session.IsActive() {
		return nil, apperrors.NewNotFound("upload session", uploadID)
	}
	if !session.ValidIndex(index) {
		return nil, apperrors.NewValidation("chunkIndex",
			fmt.Sprintf("index %d out of range for %d chunks", index, session.TotalChunks))
	}

	expected := session.ExpectedChunkSize(index)
	key := storage.StagingKey(uploadID, index)

	// hash while staging; the extra limit byte exposes oversized bodies
	hasher := sha256.New()
	tee := io.TeeReader(io.LimitReader(r, expected+1), hasher)

	written, err := m.backend.Write(ctx, key, tee)
	if err != nil {
		return nil, fmt.Errorf("failed to stage chunk %d of %s: %w", index, uploadID, err)
	}

	if written != expected {
		m.discardStaged(key)
		return nil, apperrors.NewValidation("chunk",
			fmt.Sprintf("chunk %d is %d bytes, expected %d", index, written, expected))
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if expectedChecksum != "" && expectedChecksum != actual {
		m.discardStaged(key)
		return nil, &apperrors.ChecksumMismatchError{ChunkIndex: index, Expected: expectedChecksum, Actual: actual}
	}

	updated, err := m.sessions.AddChunk(uploadID, index, domain.ChunkInfo{Size: written, Checksum: actual})
	if err != nil {
		// a cancel raced the staging write; its cleanup already ran
		m.discardStaged(key)
		return nil, err
	}

	m.logger.Debug("chunk staged",
		"uploadId", uploadID,
		"chunkIndex", index,
		"bytes", written,
		"received", len(updated.ReceivedChunks),
		"totalChunks", updated.TotalChunks)

	return updated, nil
}

// Status returns the current view of a session. A cancelled session is
// indistinguishable from an absent one.
func (m *Manager) Status(uploadID string) (*domain.UploadSession, error) {
	session, ok := m.sessions.GetSession(uploadID)
	if !ok || !session.IsActive() {
		return nil, apperrors.NewNotFound("upload session", uploadID)
	}
	return session, nil
}

// CompleteRequest carries the client's optional verification material
// for Complete. ChunkChecksums maps a chunk index to the client's
// SHA-256 hex for that chunk; Checksum is the whole-file digest.
type CompleteRequest struct {
	ChunkChecksums map[int]string
	Checksum       string
}

// Complete assembles the staged chunks in index order into a permanent
// file, verifies any client-supplied checksums, registers the file, and
// tears the session down. The session must have every chunk. A checksum
// mismatch aborts before assembly, leaving the session and its staged
// chunks intact so the client can retransmit exactly the bad index.
func (m *Manager) Complete(ctx context.Context, uploadID string, req CompleteRequest) (*domain.File, error) {
	if _, inFlight := m.assembling.LoadOrStore(uploadID, struct{}{}); inFlight {
		return nil, apperrors.NewValidation("uploadId", "completion already in progress")
	}
	defer m.assembling.Delete(uploadID)

	session, ok := m.sessions.GetSession(uploadID)
	if !ok || !session.IsActive() {
		return nil, apperrors.NewNotFound("upload session", uploadID)
	}
	if !session.IsComplete() {
		return nil, &apperrors.MissingChunksError{Missing: session.MissingIndices()}
	}

	if err := verifyChunkChecksums(session, req.ChunkChecksums); err != nil {
		return nil, err
	}

	log := m.logger.WithFields("operation", "complete", "uploadId", uploadID)

	fileID := uuid.NewString()
	fileKey := storage.FileKey(fileID)

	size, checksum, err := m.assemble(ctx, session, fileKey)
	if err != nil {
		m.discardStaged(fileKey)
		return nil, fmt.Errorf("failed to assemble %s: %w", uploadID, err)
	}

	if size != session.TotalSize {
		m.discardStaged(fileKey)
		return nil, fmt.Errorf("assembled %d bytes for %s, session declared %d", size, uploadID, session.TotalSize)
	}

	if req.Checksum != "" && req.Checksum != checksum {
		// keep the staged chunks so the client can retransmit
		m.discardStaged(fileKey)
		return nil, &apperrors.ChecksumMismatchError{ChunkIndex: apperrors.WholeFile, Expected: req.Checksum, Actual: checksum}
	}

	mimeType := session.MimeType
	if mimeType == "" {
		mimeType = m.detectMimeType(ctx, fileKey)
	}

	file := domain.NewFile(fileID, session.Filename, fileKey, size, mimeType, checksum,
		session.Metadata, m.cfg.FileTTL.Std())

	if err := m.files.PutFile(file); err != nil {
		m.discardStaged(fileKey)
		return nil, fmt.Errorf("failed to register file: %w", err)
	}

	if err := m.backend.DeletePrefix(ctx, storage.StagingPrefix(uploadID)); err != nil {
		log.Warn("failed to clean staged chunks", "error", err)
	}
	m.sessions.RemoveSession(uploadID)

	log.Info("upload completed",
		"fileId", fileID,
		"size", size,
		"mimeType", mimeType,
		"checksum", checksum)

	return file, nil
}

// Cancel discards the session's staged chunks and removes the session,
// so later operations on the uploadId fail not-found. The session is
// marked cancelled before the cleanup so a racing PutChunk cannot
// record a chunk past it. Cancelling an unknown upload is a no-op, so
// duplicate cancels from a flaky client never surface as errors.
func (m *Manager) Cancel(ctx context.Context, uploadID string) error {
	if _, err := m.sessions.CancelSession(uploadID); err != nil {
		if apperrors.IsNotFound(err) {
			m.logger.Debug("cancel for unknown upload ignored", "uploadId", uploadID)
			return nil
		}
		return err
	}

	if err := m.backend.DeletePrefix(ctx, storage.StagingPrefix(uploadID)); err != nil {
		return fmt.Errorf("failed to discard staged chunks for %s: %w", uploadID, err)
	}
	m.sessions.RemoveSession(uploadID)

	m.logger.Info("upload cancelled", "uploadId", uploadID)
	return nil
}

// verifyChunkChecksums compares client digests against the digests
// recorded while staging. Indices are checked in ascending order so the
// reported mismatch is deterministic.
func verifyChunkChecksums(session *domain.UploadSession, checksums map[int]string) error {
	if len(checksums) == 0 {
		return nil
	}

	for _, index := range session.ReceivedIndices() {
		expected, ok := checksums[index]
		if !ok || expected == "" {
			continue
		}
		if info := session.ReceivedChunks[index]; expected != info.Checksum {
			return &apperrors.ChecksumMismatchError{ChunkIndex: index, Expected: expected, Actual: info.Checksum}
		}
	}

	for index := range checksums {
		if !session.ValidIndex(index) {
			return apperrors.Validationf("checksums", "chunk index %d out of range", index)
		}
	}

	return nil
}

// assemble streams the staged chunks in order into fileKey, returning
// the byte count and whole-file SHA-256.
func (m *Manager) assemble(ctx context.Context, session *domain.UploadSession, fileKey string) (int64, string, error) {
	pr, pw := io.Pipe()

	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()

		for i := 0; i < session.TotalChunks; i++ {
			var rc io.ReadCloser
			rc, err = m.backend.ReadRange(ctx, storage.StagingKey(session.UploadID, i), 0, -1)
			if err != nil {
				err = fmt.Errorf("chunk %d: %w", i, err)
				return
			}
			_, err = buffer.Copy(pw, rc)
			rc.Close()
			if err != nil {
				err = fmt.Errorf("chunk %d: %w", i, err)
				return
			}
		}
	}()

	hasher := sha256.New()
	size, err := m.backend.Write(ctx, fileKey, io.TeeReader(pr, hasher))
	if err != nil {
		pr.CloseWithError(err)
		return 0, "", err
	}

	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}

// detectMimeType sniffs the assembled file's head. Detection failures
// fall back to the generic binary type.
func (m *Manager) detectMimeType(ctx context.Context, fileKey string) string {
	rc, err := m.backend.ReadRange(ctx, fileKey, 0, sniffLen)
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

func (m *Manager) discardStaged(key string) {
	if err := m.backend.Delete(context.Background(), key); err != nil {
		m.logger.Warn("failed to discard object", "key", key, "error", err)
	}
}
