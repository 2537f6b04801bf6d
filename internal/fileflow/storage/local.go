package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"fileflow/pkg/buffer"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// localBackend stores objects as plain files under a root directory.
type localBackend struct {
	root   string
	logger *logger.Logger
}

func NewLocalBackend(root string) (Backend, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}

	lb := &localBackend{
		root:   root,
		logger: logger.WithField("component", "local-storage"),
	}

	lb.logger.Debug("local storage backend initialized", "root", root)
	return lb, nil
}

// pathFor maps a logical key onto the root directory, rejecting keys
// that would escape it.
func (lb *localBackend) pathFor(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", fmt.Errorf("invalid storage key %q", key)
		}
	}
	return filepath.Join(lb.root, filepath.FromSlash(key)), nil
}

func (lb *localBackend) Write(ctx context.Context, key string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := lb.pathFor(key)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	// write into a sibling temp file and rename so a crash never leaves
	// a half-written object under the final key
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fileflow-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}

	written, err := buffer.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to write %s: %w", key, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("failed to finalize %s: %w", key, err)
	}

	lb.logger.Debug("object written", "key", key, "bytes", written)
	return written, nil
}

func (lb *localBackend) ReadRange(ctx context.Context, key string, offset, length int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := lb.pathFor(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFound("object", key)
		}
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}

	if offset > 0 {
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to seek %s to %d: %w", key, offset, err)
		}
	}

	if length < 0 {
		return f, nil
	}

	return &limitedReadCloser{Reader: io.LimitReader(f, length), closer: f}, nil
}

func (lb *localBackend) Stat(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := lb.pathFor(key)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, apperrors.NewNotFound("object", key)
		}
		return 0, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	return info.Size(), nil
}

func (lb *localBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := lb.pathFor(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	lb.logger.Debug("object deleted", "key", key)
	return nil
}

func (lb *localBackend) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// prefixes end at a path boundary, so the prefix maps to a directory
	path, err := lb.pathFor(strings.TrimSuffix(prefix, "/"))
	if err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}

	lb.logger.Debug("prefix deleted", "prefix", prefix)
	return nil
}

type limitedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l *limitedReadCloser) Close() error {
	return l.closer.Close()
}
