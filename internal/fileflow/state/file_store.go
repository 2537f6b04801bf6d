package state

import (
	"fmt"
	"sync"

	"fileflow/internal/fileflow/domain"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

type FileStore interface {
	PutFile(file *domain.File) error
	GetFile(id string) (*domain.File, bool)
	ListFiles() []*domain.File
	UpdateFile(file *domain.File) error
	RemoveFile(id string) error
}

type fileStore struct {
	files  map[string]*domain.File
	mutex  sync.RWMutex
	logger *logger.Logger
}

func NewFileStore() FileStore {
	fs := &fileStore{
		files:  make(map[string]*domain.File),
		logger: logger.WithField("component", "file-store"),
	}

	fs.logger.Debug("file store initialized")
	return fs
}

func (fs *fileStore) PutFile(file *domain.File) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if _, exists := fs.files[file.FileID]; exists {
		fs.logger.Warn("attempted to register file that already exists", "fileId", file.FileID)
		return fmt.Errorf("file %s already exists", file.FileID)
	}

	fs.files[file.FileID] = file.DeepCopy()
	fs.logger.Debug("file registered", "fileId", file.FileID, "filename", file.Filename,
		"size", file.Size, "mimeType", file.MimeType)

	return nil
}

func (fs *fileStore) GetFile(id string) (*domain.File, bool) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	file, exists := fs.files[id]
	if !exists {
		fs.logger.Debug("file not found", "fileId", id)
		return nil, false
	}

	return file.DeepCopy(), true
}

func (fs *fileStore) ListFiles() []*domain.File {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	files := make([]*domain.File, 0, len(fs.files))
	for _, file := range fs.files {
		files = append(files, file.DeepCopy())
	}

	return files
}

func (fs *fileStore) UpdateFile(file *domain.File) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if _, exists := fs.files[file.FileID]; !exists {
		fs.logger.Warn("attempted to update non-existent file", "fileId", file.FileID)
		return apperrors.NewNotFound("file", file.FileID)
	}

	fs.files[file.FileID] = file.DeepCopy()
	fs.logger.Debug("file updated", "fileId", file.FileID)

	return nil
}

func (fs *fileStore) RemoveFile(id string) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if _, exists := fs.files[id]; !exists {
		fs.logger.Debug("attempted to remove non-existent file", "fileId", id)
		return apperrors.NewNotFound("file", id)
	}

	delete(fs.files, id)
	fs.logger.Debug("file removed", "fileId", id)

	return nil
}
