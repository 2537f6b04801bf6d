package domain

import (
	"sort"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCancelled SessionStatus = "cancelled"
)

// ChunkInfo records what was stored for one received chunk.
type ChunkInfo struct {
	Size     int64
	Checksum string // hex SHA-256 of the chunk bytes
}

// UploadSession tracks a resumable chunked upload. The session is owned
// by the upload manager for its whole lifetime; concurrent chunk arrival
// is serialized by the session registry, so the methods here assume the
// caller holds that synchronization.
type UploadSession struct {
	UploadID       string
	Filename       string
	TotalSize      int64
	MimeType       string
	ChunkSize      int64
	TotalChunks    int
	ReceivedChunks map[int]ChunkInfo
	Metadata       map[string]string
	Status         SessionStatus
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// TotalChunksFor is ceil(totalSize / chunkSize).
func TotalChunksFor(totalSize, chunkSize int64) int {
	return int((totalSize + chunkSize - 1) / chunkSize)
}

func NewUploadSession(uploadID, filename string, totalSize, chunkSize int64, mimeType string, metadata map[string]string, ttl time.Duration) *UploadSession {
	now := time.Now()

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	return &UploadSession{
		UploadID:       uploadID,
		Filename:       filename,
		TotalSize:      totalSize,
		MimeType:       mimeType,
		ChunkSize:      chunkSize,
		TotalChunks:    TotalChunksFor(totalSize, chunkSize),
		ReceivedChunks: make(map[int]ChunkInfo),
		Metadata:       meta,
		Status:         SessionActive,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

func (s *UploadSession) IsActive() bool {
	return s.Status == SessionActive
}

func (s *UploadSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ValidIndex reports whether index lies in [0, TotalChunks).
func (s *UploadSession) ValidIndex(index int) bool {
	return index >= 0 && index < s.TotalChunks
}

// AddChunk records a received chunk. Re-adding an index overwrites the
// prior record; the index set never gains duplicates.
func (s *UploadSession) AddChunk(index int, info ChunkInfo) {
	s.ReceivedChunks[index] = info
}

func (s *UploadSession) HasChunk(index int) bool {
	_, ok := s.ReceivedChunks[index]
	return ok
}

// ReceivedIndices returns the received chunk indices sorted ascending.
func (s *UploadSession) ReceivedIndices() []int {
	indices := make([]int, 0, len(s.ReceivedChunks))
	for idx := range s.ReceivedChunks {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// MissingIndices returns the complement of the received set against
// [0, TotalChunks), sorted ascending.
func (s *UploadSession) MissingIndices() []int {
	missing := make([]int, 0)
	for i := 0; i < s.TotalChunks; i++ {
		if _, ok := s.ReceivedChunks[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

func (s *UploadSession) IsComplete() bool {
	return len(s.ReceivedChunks) == s.TotalChunks
}

// ExpectedChunkSize is the byte size chunk index must carry: ChunkSize
// for every chunk except the last, which covers the remainder.
func (s *UploadSession) ExpectedChunkSize(index int) int64 {
	if index == s.TotalChunks-1 {
		return s.TotalSize - int64(s.TotalChunks-1)*s.ChunkSize
	}
	return s.ChunkSize
}

// BytesUploaded sums the recorded sizes of received chunks.
func (s *UploadSession) BytesUploaded() int64 {
	var total int64
	for _, info := range s.ReceivedChunks {
		total += info.Size
	}
	return total
}

func (s *UploadSession) PercentComplete() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(len(s.ReceivedChunks)) / float64(s.TotalChunks) * 100
}

// MarkCancelled terminates the session. Cancelling twice is harmless.
func (s *UploadSession) MarkCancelled() {
	s.Status = SessionCancelled
}

// DeepCopy creates a deep copy of the session
func (s *UploadSession) DeepCopy() *UploadSession {
	if s == nil {
		return nil
	}

	cp := &UploadSession{
		UploadID:       s.UploadID,
		Filename:       s.Filename,
		TotalSize:      s.TotalSize,
		MimeType:       s.MimeType,
		ChunkSize:      s.ChunkSize,
		TotalChunks:    s.TotalChunks,
		ReceivedChunks: make(map[int]ChunkInfo, len(s.ReceivedChunks)),
		Metadata:       make(map[string]string, len(s.Metadata)),
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
		ExpiresAt:      s.ExpiresAt,
	}
	for idx, info := range s.ReceivedChunks {
		cp.ReceivedChunks[idx] = info
	}
	for k, v := range s.Metadata {
		cp.Metadata[k] = v
	}
	return cp
}
