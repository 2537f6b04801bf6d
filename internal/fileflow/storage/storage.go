// Package storage provides the byte-level backends that file content
// lives in. Keys are slash-separated logical paths, e.g.
// staging/<uploadId>/<chunkIndex> while an upload is in flight and
// files/<fileId> once assembled.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Backend abstracts the blob store holding staged chunks and assembled
// files. Implementations must be safe for concurrent use.
type Backend interface {
	// Write streams r into the object at key, replacing any previous
	// content. Returns the number of bytes written.
	Write(ctx context.Context, key string, r io.Reader) (int64, error)
	// ReadRange opens the object at key for reading starting at offset.
	// A negative length reads to the end of the object.
	ReadRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error)
	// Stat returns the object's size in bytes.
	Stat(ctx context.Context, key string) (int64, error)
	// Delete removes the object at key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// StagingKey is where a chunk sits before assembly.
func StagingKey(uploadID string, index int) string {
	return fmt.Sprintf("staging/%s/%d", uploadID, index)
}

// StagingPrefix covers all staged chunks of one upload.
func StagingPrefix(uploadID string) string {
	return "staging/" + uploadID + "/"
}

// FileKey is the permanent home of an assembled or derived file.
func FileKey(fileID string) string {
	return "files/" + fileID
}
