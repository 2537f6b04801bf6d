package download

import (
	"context"
	"fmt"
	"io"
	"time"

	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// Streamer serves file bytes back out: whole files, byte ranges, and
// manifests that let clients fetch a large file in parallel windows.
type Streamer struct {
	files   state.FileStore
	backend storage.Backend
	cfg     config.DownloadConfig
	logger  *logger.Logger
}

func NewStreamer(files state.FileStore, backend storage.Backend, cfg config.DownloadConfig) *Streamer {
	return &Streamer{
		files:   files,
		backend: backend,
		cfg:     cfg,
		logger:  logger.WithField("component", "download-streamer"),
	}
}

// Range is a closed byte interval within a file.
type Range struct {
	Start int64
	End   int64
}

func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// ManifestEntry describes one window of a chunked download plan.
type ManifestEntry struct {
	Index int
	Start int64
	End   int64
	Size  int64
}

// FileInfo looks up a file's record. Files past their expiry are
// reported absent even before the sweeper collects them.
func (s *Streamer) FileInfo(fileID string) (*domain.File, error) {
	file, ok := s.files.GetFile(fileID)
	if !ok {
		return nil, apperrors.NewNotFound("file", fileID)
	}
	if file.IsExpired(time.Now()) {
		return nil, apperrors.NewNotFound("file", fileID)
	}
	return file, nil
}

// Open streams the requested byte range. end may be
// apperrors.WholeFile for an open-ended range; an end past the last
// byte is clamped. The returned Range is the resolved window.
func (s *Streamer) Open(ctx context.Context, fileID string, start, end int64) (io.ReadCloser, Range, *domain.File, error) {
	file, err := s.FileInfo(fileID)
	if err != nil {
		return nil, Range{}, nil, err
	}

	resolved, err := resolveRange(start, end, file.Size)
	if err != nil {
		return nil, Range{}, nil, err
	}

	rc, err := s.backend.ReadRange(ctx, file.StorageKey, resolved.Start, resolved.Length())
	if err != nil {
		return nil, Range{}, nil, fmt.Errorf("failed to open %s: %w", fileID, err)
	}

	s.logger.Debug("download opened",
		"fileId", fileID,
		"start", resolved.Start,
		"end", resolved.End,
		"bytes", resolved.Length())

	return rc, resolved, file, nil
}

// Manifest computes a chunked download plan: contiguous windows of at
// most chunkSize bytes covering the whole file, the last one short.
func (s *Streamer) Manifest(fileID string, chunkSize int64) (*domain.File, []ManifestEntry, error) {
	file, err := s.FileInfo(fileID)
	if err != nil {
		return nil, nil, err
	}

	if chunkSize == 0 {
		chunkSize = s.cfg.DefaultChunkSize
	}
	if chunkSize <= 0 {
		return nil, nil, apperrors.NewValidation("chunkSize", "must be positive")
	}

	count := domain.TotalChunksFor(file.Size, chunkSize)
	entries := make([]ManifestEntry, 0, count)
	for i := 0; i < count; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize - 1
		if end > file.Size-1 {
			end = file.Size - 1
		}
		entries = append(entries, ManifestEntry{
			Index: i,
			Start: start,
			End:   end,
			Size:  end - start + 1,
		})
	}

	return file, entries, nil
}

// resolveRange validates a requested window against the file size and
// clamps an overlong end to the final byte.
func resolveRange(start, end, size int64) (Range, error) {
	// a zero-byte file still serves an empty whole-file read
	if size == 0 && start == 0 && end == apperrors.WholeFile {
		return Range{Start: 0, End: -1}, nil
	}
	if start < 0 {
		return Range{}, &apperrors.InvalidRangeError{Start: start, End: end, Size: size}
	}
	if start >= size {
		return Range{}, &apperrors.InvalidRangeError{Start: start, End: end, Size: size}
	}
	if end == apperrors.WholeFile || end > size-1 {
		end = size - 1
	}
	if end < start {
		return Range{}, &apperrors.InvalidRangeError{Start: start, End: end, Size: size}
	}
	return Range{Start: start, End: end}, nil
}
