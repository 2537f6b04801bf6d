package storage_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fileflow/internal/fileflow/storage"
	apperrors "fileflow/pkg/errors"
)

func newLocalBackend(t *testing.T) storage.Backend {
	t.Helper()
	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return backend
}

func TestLocalBackend_WriteAndReadBack(t *testing.T) {
	backend := newLocalBackend(t)
	ctx := context.Background()

	written, err := backend.Write(ctx, "files/f-1", strings.NewReader("hello, fileflow"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if written != 15 {
		t.Errorf("Expected 15 bytes written, got %v", written)
	}

	rc, err := backend.ReadRange(ctx, "files/f-1", 0, -1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(data) != "hello, fileflow" {
		t.Errorf("Expected full content back, got %q", string(data))
	}

	size, err := backend.Stat(ctx, "files/f-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if size != 15 {
		t.Errorf("Expected size 15, got %v", size)
	}
}

func TestLocalBackend_WriteOverwrites(t *testing.T) {
	backend := newLocalBackend(t)
	ctx := context.Background()

	backend.Write(ctx, "staging/u-1/0", strings.NewReader("first"))
	backend.Write(ctx, "staging/u-1/0", strings.NewReader("second"))

	rc, err := backend.ReadRange(ctx, "staging/u-1/0", 0, -1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "second" {
		t.Errorf("Expected last write to win, got %q", string(data))
	}
}

func TestLocalBackend_ReadRange(t *testing.T) {
	backend := newLocalBackend(t)
	ctx := context.Background()

	backend.Write(ctx, "files/f-1", strings.NewReader("0123456789"))

	tests := []struct {
		name   string
		offset int64
		length int64
		want   string
	}{
		{"middle window", 2, 3, "234"},
		{"from offset to end", 5, -1, "56789"},
		{"zero length", 4, 0, ""},
		{"length past end", 8, 100, "89"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, err := backend.ReadRange(ctx, "files/f-1", tt.offset, tt.length)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			defer rc.Close()

			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, string(data))
			}
		})
	}
}

func TestLocalBackend_MissingKey(t *testing.T) {
	backend := newLocalBackend(t)
	ctx := context.Background()

	if _, err := backend.ReadRange(ctx, "files/ghost", 0, -1); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
	if _, err := backend.Stat(ctx, "files/ghost"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}

	// deleting a missing key is fine
	if err := backend.Delete(ctx, "files/ghost"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestLocalBackend_Delete(t *testing.T) {
	backend := newLocalBackend(t)
	ctx := context.Background()

	backend.Write(ctx, "files/f-1", strings.NewReader("data"))
	if err := backend.Delete(ctx, "files/f-1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := backend.Stat(ctx, "files/f-1"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found after delete, got %v", err)
	}
}

func TestLocalBackend_DeletePrefix(t *testing.T) {
	backend := newLocalBackend(t)
	ctx := context.Background()

	backend.Write(ctx, "staging/u-1/0", strings.NewReader("a"))
	backend.Write(ctx, "staging/u-1/1", strings.NewReader("b"))
	backend.Write(ctx, "staging/u-2/0", strings.NewReader("c"))

	if err := backend.DeletePrefix(ctx, storage.StagingPrefix("u-1")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := backend.Stat(ctx, "staging/u-1/0"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected staged chunk 0 gone, got %v", err)
	}
	if _, err := backend.Stat(ctx, "staging/u-1/1"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected staged chunk 1 gone, got %v", err)
	}

	// other uploads untouched
	if _, err := backend.Stat(ctx, "staging/u-2/0"); err != nil {
		t.Errorf("Expected sibling upload intact, got %v", err)
	}
}

func TestLocalBackend_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	backend, err := storage.NewLocalBackend(root)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	ctx := context.Background()

	outside := filepath.Join(root, "..", "escape")
	defer os.Remove(outside)

	keys := []string{"../escape", "files/../../escape", "/etc/passwd", "", "files//gap"}
	for _, key := range keys {
		if _, err := backend.Write(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("Expected error for key %q", key)
		}
	}

	if _, err := os.Stat(outside); !os.IsNotExist(err) {
		t.Error("Traversal key escaped the storage root")
	}
}

func TestLocalBackend_NoPartialObjectOnFailedWrite(t *testing.T) {
	backend := newLocalBackend(t)
	ctx := context.Background()

	backend.Write(ctx, "files/f-1", strings.NewReader("intact"))

	r := io.MultiReader(strings.NewReader("partial"), &failingReader{})
	if _, err := backend.Write(ctx, "files/f-1", r); err == nil {
		t.Fatal("Expected error from failing reader")
	}

	rc, err := backend.ReadRange(ctx, "files/f-1", 0, -1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer rc.Close()

	data, _ := io.ReadAll(rc)
	if string(data) != "intact" {
		t.Errorf("Failed write clobbered the previous object: %q", string(data))
	}
}

type failingReader struct{}

func (f *failingReader) Read(p []byte) (int, error) {
	return 0, io.ErrUnexpectedEOF
}

func TestStorageKeys(t *testing.T) {
	if got := storage.StagingKey("u-1", 3); got != "staging/u-1/3" {
		t.Errorf("Expected staging/u-1/3, got %v", got)
	}
	if got := storage.StagingPrefix("u-1"); got != "staging/u-1/" {
		t.Errorf("Expected staging/u-1/, got %v", got)
	}
	if got := storage.FileKey("f-1"); got != "files/f-1" {
		t.Errorf("Expected files/f-1, got %v", got)
	}
}
