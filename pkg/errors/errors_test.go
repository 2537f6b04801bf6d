package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidation("totalSize", "must be positive")
	assert.Equal(t, "invalid totalSize: must be positive", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))

	bare := &ValidationError{Reason: "empty body"}
	assert.Equal(t, "empty body", bare.Error())
}

func TestValidationf(t *testing.T) {
	err := Validationf("chunkIndex", "index %d outside [0,%d)", 9, 3)
	assert.Equal(t, "invalid chunkIndex: index 9 outside [0,3)", err.Error())
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("upload session", "abc-123")
	assert.Equal(t, "upload session abc-123 not found", err.Error())
	assert.True(t, IsNotFound(err))

	wrapped := fmt.Errorf("lookup failed: %w", err)
	assert.True(t, IsNotFound(wrapped))
}

func TestMissingChunksError(t *testing.T) {
	err := &MissingChunksError{Missing: []int{2, 5, 7}}
	assert.Equal(t, "upload incomplete: 3 chunks missing [2,5,7]", err.Error())
	assert.True(t, IsMissingChunks(err))
}

func TestMissingChunksErrorTruncatesLongLists(t *testing.T) {
	missing := make([]int, 30)
	for i := range missing {
		missing[i] = i
	}
	err := &MissingChunksError{Missing: missing}
	assert.Contains(t, err.Error(), "30 chunks missing")
	assert.Contains(t, err.Error(), "...")
}

func TestChecksumMismatchError(t *testing.T) {
	chunk := &ChecksumMismatchError{ChunkIndex: 1, Expected: "aa", Actual: "bb"}
	assert.Equal(t, "chunk 1 checksum mismatch: expected aa, got bb", chunk.Error())
	assert.True(t, IsChecksumMismatch(chunk))

	whole := &ChecksumMismatchError{ChunkIndex: WholeFile, Expected: "aa", Actual: "bb"}
	assert.Equal(t, "file checksum mismatch: expected aa, got bb", whole.Error())
}

func TestInvalidRangeError(t *testing.T) {
	err := &InvalidRangeError{Start: 100, End: 50, Size: 200}
	assert.Equal(t, "invalid range 100-50 for file of 200 bytes", err.Error())
	assert.True(t, IsInvalidRange(err))
}

func TestProviderErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewProvider("s3", "upload", cause)

	require.Error(t, err)
	assert.Equal(t, "s3.upload: connection reset", err.Error())
	assert.True(t, IsProvider(err))
	assert.ErrorIs(t, err, cause)
}

func TestUnsupportedErrors(t *testing.T) {
	p := &UnsupportedProviderError{Provider: "ftp"}
	assert.Equal(t, "unsupported provider: ftp", p.Error())
	assert.True(t, IsUnsupportedProvider(p))

	k := &UnsupportedKindError{Kind: "rotate-pdf"}
	assert.Equal(t, "unsupported transform kind: rotate-pdf", k.Error())
	assert.True(t, IsUnsupportedKind(k))
}

func TestHelpersRejectUnrelatedErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.False(t, IsValidation(plain))
	assert.False(t, IsNotFound(plain))
	assert.False(t, IsMissingChunks(plain))
	assert.False(t, IsChecksumMismatch(plain))
	assert.False(t, IsInvalidRange(plain))
	assert.False(t, IsProvider(plain))
	assert.False(t, IsUnsupportedProvider(plain))
	assert.False(t, IsUnsupportedKind(plain))
}
