// Package errors defines the error taxonomy shared by all fileflow
// components. Every failure that crosses a component boundary is one of
// these types so the transport layer can map it to a stable code and a
// caller-actionable payload.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// WholeFile marks a checksum mismatch detected on the assembled file
// rather than on an individual chunk.
const WholeFile = -1

// ValidationError reports a malformed request: bad sizes, out-of-range
// indices, unknown parameter values.
type ValidationError struct {
	// Field names the offending request field when known
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func Validationf(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an absent session, file, or job.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// MissingChunksError is returned by upload completion while chunks are
// still outstanding. Missing is sorted ascending so clients can retry
// exactly the listed indices.
type MissingChunksError struct {
	Missing []int
}

func (e *MissingChunksError) Error() string {
	return fmt.Sprintf("upload incomplete: %d chunks missing %s", len(e.Missing), formatIndices(e.Missing))
}

// ChecksumMismatchError reports a digest disagreement, per chunk or for
// the whole file (ChunkIndex == WholeFile).
type ChecksumMismatchError struct {
	ChunkIndex int
	Expected   string
	Actual     string
}

func (e *ChecksumMismatchError) Error() string {
	if e.ChunkIndex == WholeFile {
		return fmt.Sprintf("file checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
	}
	return fmt.Sprintf("chunk %d checksum mismatch: expected %s, got %s", e.ChunkIndex, e.Expected, e.Actual)
}

// InvalidRangeError reports a download range outside the file bounds.
type InvalidRangeError struct {
	Start int64
	End   int64
	Size  int64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range %d-%d for file of %d bytes", e.Start, e.End, e.Size)
}

// ProviderError wraps a failed cloud provider call with the provider tag
// and operation.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProvider(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// UnsupportedProviderError reports an unknown cloud provider tag.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Provider)
}

// UnsupportedKindError reports an unknown transform kind.
type UnsupportedKindError struct {
	Kind string
}

func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("unsupported transform kind: %s", e.Kind)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsMissingChunks(err error) bool {
	var target *MissingChunksError
	return errors.As(err, &target)
}

func IsChecksumMismatch(err error) bool {
	var target *ChecksumMismatchError
	return errors.As(err, &target)
}

func IsInvalidRange(err error) bool {
	var target *InvalidRangeError
	return errors.As(err, &target)
}

func IsProvider(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}

func IsUnsupportedProvider(err error) bool {
	var target *UnsupportedProviderError
	return errors.As(err, &target)
}

func IsUnsupportedKind(err error) bool {
	var target *UnsupportedKindError
	return errors.As(err, &target)
}

func formatIndices(indices []int) string {
	if len(indices) == 0 {
		return "[]"
	}
	const show = 10
	parts := make([]string, 0, show+1)
	for i, idx := range indices {
		if i == show {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%d", idx))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
