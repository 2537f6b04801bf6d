package domain

import "time"

// File is an assembled, immutable stored object. Only the expiry may
// change after creation; content never mutates in place.
type File struct {
	FileID     string
	Filename   string
	StorageKey string
	Size       int64
	MimeType   string
	Checksum   string // hex SHA-256 of the full content
	Metadata   map[string]string
	CreatedAt  time.Time
	// ExpiresAt zero means the file is kept until explicitly deleted
	ExpiresAt time.Time
}

func NewFile(fileID, filename, storageKey string, size int64, mimeType, checksum string, metadata map[string]string, ttl time.Duration) *File {
	now := time.Now()

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	f := &File{
		FileID:     fileID,
		Filename:   filename,
		StorageKey: storageKey,
		Size:       size,
		MimeType:   mimeType,
		Checksum:   checksum,
		Metadata:   meta,
		CreatedAt:  now,
	}
	if ttl > 0 {
		f.ExpiresAt = now.Add(ttl)
	}
	return f
}

func (f *File) IsExpired(now time.Time) bool {
	if f.ExpiresAt.IsZero() {
		return false
	}
	return now.After(f.ExpiresAt)
}

// Touch extends the expiry window from now. A zero ttl clears the
// expiry, keeping the file indefinitely.
func (f *File) Touch(ttl time.Duration) {
	if ttl <= 0 {
		f.ExpiresAt = time.Time{}
		return
	}
	f.ExpiresAt = time.Now().Add(ttl)
}

// DeepCopy creates a deep copy of the file record
func (f *File) DeepCopy() *File {
	if f == nil {
		return nil
	}

	cp := *f
	cp.Metadata = make(map[string]string, len(f.Metadata))
	for k, v := range f.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}
