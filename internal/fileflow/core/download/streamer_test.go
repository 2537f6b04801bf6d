package download_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"fileflow/internal/fileflow/core/download"
	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
)

const testContent = "0123456789abcdefghij" // 20 bytes

func newStreamer(t *testing.T) (*download.Streamer, state.FileStore) {
	t.Helper()

	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := backend.Write(context.Background(), "files/f-1", strings.NewReader(testContent)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	files := state.NewFileStore()
	file := domain.NewFile("f-1", "data.bin", "files/f-1", int64(len(testContent)),
		"application/octet-stream", "checksum", nil, 0)
	if err := files.PutFile(file); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	cfg := config.DownloadConfig{DefaultChunkSize: 8}
	return download.NewStreamer(files, backend, cfg), files
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return string(data)
}

func TestStreamer_FileInfo(t *testing.T) {
	s, _ := newStreamer(t)

	file, err := s.FileInfo("f-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if file.Size != 20 {
		t.Errorf("Expected size 20, got %v", file.Size)
	}

	if _, err := s.FileInfo("ghost"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestStreamer_ExpiredFileReportsAbsent(t *testing.T) {
	s, files := newStreamer(t)

	expired, _ := files.GetFile("f-1")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	files.UpdateFile(expired)

	if _, err := s.FileInfo("f-1"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found for expired file, got %v", err)
	}
	if _, _, _, err := s.Open(context.Background(), "f-1", 0, apperrors.WholeFile); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found for expired file, got %v", err)
	}
}

func TestStreamer_OpenWholeFile(t *testing.T) {
	s, _ := newStreamer(t)

	rc, resolved, file, err := s.Open(context.Background(), "f-1", 0, apperrors.WholeFile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := readAll(t, rc); got != testContent {
		t.Errorf("Expected full content, got %q", got)
	}
	if resolved.Start != 0 || resolved.End != 19 {
		t.Errorf("Expected resolved range 0-19, got %d-%d", resolved.Start, resolved.End)
	}
	if resolved.Length() != 20 {
		t.Errorf("Expected length 20, got %v", resolved.Length())
	}
	if file.FileID != "f-1" {
		t.Errorf("Expected file record, got %v", file.FileID)
	}
}

func TestStreamer_OpenRanges(t *testing.T) {
	s, _ := newStreamer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		start     int64
		end       int64
		want      string
		wantStart int64
		wantEnd   int64
	}{
		{"inner window", 5, 9, "56789", 5, 9},
		{"open ended", 15, apperrors.WholeFile, "fghij", 15, 19},
		{"end clamped to last byte", 15, 1000, "fghij", 15, 19},
		{"single byte", 0, 0, "0", 0, 0},
		{"final byte", 19, 19, "j", 19, 19},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc, resolved, _, err := s.Open(ctx, "f-1", tt.start, tt.end)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got := readAll(t, rc); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if resolved.Start != tt.wantStart || resolved.End != tt.wantEnd {
				t.Errorf("Expected range %d-%d, got %d-%d", tt.wantStart, tt.wantEnd, resolved.Start, resolved.End)
			}
		})
	}
}

func TestStreamer_InvalidRanges(t *testing.T) {
	s, _ := newStreamer(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		start int64
		end   int64
	}{
		{"negative start", -2, 5},
		{"start at size", 20, apperrors.WholeFile},
		{"start past size", 100, 200},
		{"end before start", 10, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := s.Open(ctx, "f-1", tt.start, tt.end)
			if !apperrors.IsInvalidRange(err) {
				t.Errorf("Expected invalid-range error, got %v", err)
			}
		})
	}
}

func TestStreamer_ManifestCoversFile(t *testing.T) {
	s, _ := newStreamer(t)

	file, entries, err := s.Manifest("f-1", 8)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// 20 bytes in windows of 8: 8 + 8 + 4
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %v", len(entries))
	}

	var covered int64
	for i, entry := range entries {
		if entry.Index != i {
			t.Errorf("Expected index %d, got %d", i, entry.Index)
		}
		if entry.Size != entry.End-entry.Start+1 {
			t.Errorf("Entry %d size %d does not match range %d-%d", i, entry.Size, entry.Start, entry.End)
		}
		if i > 0 && entry.Start != entries[i-1].End+1 {
			t.Errorf("Entry %d not contiguous with previous (start %d, prev end %d)", i, entry.Start, entries[i-1].End)
		}
		if entry.Size > 8 {
			t.Errorf("Entry %d exceeds chunk size: %d", i, entry.Size)
		}
		covered += entry.Size
	}

	if entries[0].Start != 0 {
		t.Errorf("Expected first entry at 0, got %d", entries[0].Start)
	}
	if entries[2].End != file.Size-1 {
		t.Errorf("Expected last entry to end at %d, got %d", file.Size-1, entries[2].End)
	}
	if entries[2].Size != 4 {
		t.Errorf("Expected final short window of 4, got %d", entries[2].Size)
	}
	if covered != file.Size {
		t.Errorf("Entries cover %d bytes, file has %d", covered, file.Size)
	}
}

func TestStreamer_ManifestDefaultsAndValidation(t *testing.T) {
	s, _ := newStreamer(t)

	// zero selects the configured default of 8
	_, entries, err := s.Manifest("f-1", 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries with default chunk size, got %v", len(entries))
	}

	if _, _, err := s.Manifest("f-1", -4); !apperrors.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if _, _, err := s.Manifest("ghost", 8); !apperrors.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestStreamer_ManifestWindowsRoundTrip(t *testing.T) {
	s, _ := newStreamer(t)
	ctx := context.Background()

	_, entries, err := s.Manifest("f-1", 7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// fetching every window and concatenating reproduces the file
	var rebuilt strings.Builder
	for _, entry := range entries {
		rc, _, _, err := s.Open(ctx, "f-1", entry.Start, entry.End)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		rebuilt.WriteString(readAll(t, rc))
	}

	if rebuilt.String() != testContent {
		t.Errorf("Windows do not reassemble the file: %q", rebuilt.String())
	}
}
