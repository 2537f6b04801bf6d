package state

import (
	"fmt"
	"sync"

	"fileflow/internal/fileflow/domain"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// SessionStore manages upload session state. All methods are safe for
// concurrent use and return deep copies so callers never share memory
// with the stored records.
type SessionStore interface {
	// CreateSession adds a new session, failing if the ID is taken.
	CreateSession(session *domain.UploadSession) error
	// GetSession retrieves a session by ID.
	// Returns the session and true if found, nil and false otherwise.
	GetSession(id string) (*domain.UploadSession, bool)
	// AddChunk records a received chunk under the store's lock. A
	// retransmitted index overwrites the previous record. Returns the
	// updated session so callers observe a consistent post-insert view.
	AddChunk(uploadID string, index int, info domain.ChunkInfo) (*domain.UploadSession, error)
	// CancelSession marks a session cancelled. Idempotent.
	CancelSession(id string) (*domain.UploadSession, error)
	// ListSessions returns all sessions currently stored.
	ListSessions() []*domain.UploadSession
	// RemoveSession deletes a session record.
	RemoveSession(id string)
}

type sessionStore struct {
	sessions map[string]*domain.UploadSession
	mutex    sync.RWMutex
	logger   *logger.Logger
}

func NewSessionStore() SessionStore {
	ss := &sessionStore{
		sessions: make(map[string]*domain.UploadSession),
		logger:   logger.WithField("component", "session-store"),
	}

	ss.logger.Debug("session store initialized")
	return ss
}

func (ss *sessionStore) CreateSession(session *domain.UploadSession) error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	if _, exists := ss.sessions[session.UploadID]; exists {
		ss.logger.Warn("attempted to create session that already exists", "uploadId", session.UploadID)
		return fmt.Errorf("upload session %s already exists", session.UploadID)
	}

	ss.sessions[session.UploadID] = session.DeepCopy()
	ss.logger.Debug("session created", "uploadId", session.UploadID, "filename", session.Filename,
		"totalSize", session.TotalSize, "totalChunks", session.TotalChunks)

	return nil
}

func (ss *sessionStore) GetSession(id string) (*domain.UploadSession, bool) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	session, exists := ss.sessions[id]
	if !exists {
		ss.logger.Debug("session not found", "uploadId", id)
		return nil, false
	}

	return session.DeepCopy(), true
}

func (ss *sessionStore) AddChunk(uploadID string, index int, info domain.ChunkInfo) (*domain.UploadSession, error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	session, exists := ss.sessions[uploadID]
	if !exists {
		ss.logger.Debug("chunk for non-existent session", "uploadId", uploadID, "chunkIndex", index)
		return nil, apperrors.NewNotFound("upload session", uploadID)
	}

	// re-checked under the lock so a concurrent cancel cannot race a
	// chunk insert past the staging cleanup; a cancelled session is
	// reported exactly like an absent one
	if !session.IsActive() {
		ss.logger.Warn("chunk for inactive session", "uploadId", uploadID, "chunkIndex", index, "status", string(session.Status))
		return nil, apperrors.NewNotFound("upload session", uploadID)
	}

	if !session.ValidIndex(index) {
		return nil, apperrors.NewValidation("chunkIndex",
			fmt.Sprintf("index %d out of range for %d chunks", index, session.TotalChunks))
	}

	session.AddChunk(index, info)
	ss.logger.Debug("chunk recorded", "uploadId", uploadID, "chunkIndex", index, "size", info.Size,
		"received", len(session.ReceivedChunks), "totalChunks", session.TotalChunks)

	return session.DeepCopy(), nil
}

func (ss *sessionStore) CancelSession(id string) (*domain.UploadSession, error) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	session, exists := ss.sessions[id]
	if !exists {
		ss.logger.Debug("cancel for non-existent session", "uploadId", id)
		return nil, apperrors.NewNotFound("upload session", id)
	}

	session.MarkCancelled()
	ss.logger.Info("session cancelled", "uploadId", id, "receivedChunks", len(session.ReceivedChunks))

	return session.DeepCopy(), nil
}

func (ss *sessionStore) ListSessions() []*domain.UploadSession {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	sessions := make([]*domain.UploadSession, 0, len(ss.sessions))
	for _, session := range ss.sessions {
		sessions = append(sessions, session.DeepCopy())
	}

	return sessions
}

func (ss *sessionStore) RemoveSession(id string) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	if _, exists := ss.sessions[id]; !exists {
		return
	}

	delete(ss.sessions, id)
	ss.logger.Debug("session removed", "uploadId", id)
}
