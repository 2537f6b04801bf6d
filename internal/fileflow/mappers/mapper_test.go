package mappers

import (
	"testing"
	"time"

	"fileflow/internal/fileflow/core/download"
	"fileflow/internal/fileflow/domain"
)

func TestSessionToStatusResponse(t *testing.T) {
	session := domain.NewUploadSession("u-1", "video.mp4", 25, 10, "video/mp4", nil, time.Hour)
	session.AddChunk(0, domain.ChunkInfo{Size: 10, Checksum: "aa"})
	session.AddChunk(2, domain.ChunkInfo{Size: 5, Checksum: "cc"})

	resp := SessionToStatusResponse(session)

	if resp.UploadID != "u-1" {
		t.Errorf("Expected upload ID u-1, got %v", resp.UploadID)
	}
	if resp.Status != string(domain.SessionActive) {
		t.Errorf("Expected status active, got %v", resp.Status)
	}
	if resp.TotalChunks != 3 {
		t.Errorf("Expected 3 total chunks, got %v", resp.TotalChunks)
	}
	if len(resp.ReceivedChunks) != 2 || resp.ReceivedChunks[0] != 0 || resp.ReceivedChunks[1] != 2 {
		t.Errorf("Expected received [0 2], got %v", resp.ReceivedChunks)
	}
	if len(resp.MissingChunks) != 1 || resp.MissingChunks[0] != 1 {
		t.Errorf("Expected missing [1], got %v", resp.MissingChunks)
	}
	if resp.BytesUploaded != 20 {
		t.Errorf("Expected 20 bytes uploaded, got %v", resp.BytesUploaded)
	}
}

func TestSessionToStatusResponseCapsBytesAtTotalSize(t *testing.T) {
	// all three chunks in, but 3*10 overshoots the 25-byte file
	session := domain.NewUploadSession("u-2", "video.mp4", 25, 10, "video/mp4", nil, time.Hour)
	for i := 0; i < 3; i++ {
		session.AddChunk(i, domain.ChunkInfo{Size: session.ExpectedChunkSize(i)})
	}

	resp := SessionToStatusResponse(session)

	if resp.BytesUploaded != 25 {
		t.Errorf("Expected bytes capped at 25, got %v", resp.BytesUploaded)
	}
	if resp.PercentComplete != 100 {
		t.Errorf("Expected 100 percent, got %v", resp.PercentComplete)
	}
}

func TestChunkToReceipt(t *testing.T) {
	session := domain.NewUploadSession("u-3", "doc.pdf", 100, 10, "application/pdf", nil, time.Hour)
	session.AddChunk(4, domain.ChunkInfo{Size: 10, Checksum: "deadbeef"})

	receipt := ChunkToReceipt(session, 4)

	if receipt.ChunkIndex != 4 {
		t.Errorf("Expected chunk index 4, got %v", receipt.ChunkIndex)
	}
	if receipt.BytesReceived != 10 {
		t.Errorf("Expected 10 bytes received, got %v", receipt.BytesReceived)
	}
	if receipt.Checksum != "deadbeef" {
		t.Errorf("Expected checksum deadbeef, got %v", receipt.Checksum)
	}
}

func TestFileToResponse(t *testing.T) {
	file := domain.NewFile("f-1", "report.pdf", "files/f-1", 2048, "application/pdf", "abc123",
		map[string]string{"origin": "upload"}, time.Hour)

	resp := FileToResponse(file)

	if resp.FileID != "f-1" {
		t.Errorf("Expected file ID f-1, got %v", resp.FileID)
	}
	if resp.Size != 2048 {
		t.Errorf("Expected size 2048, got %v", resp.Size)
	}
	if resp.MimeType != "application/pdf" {
		t.Errorf("Expected mime application/pdf, got %v", resp.MimeType)
	}
	if resp.Checksum != "abc123" {
		t.Errorf("Expected checksum abc123, got %v", resp.Checksum)
	}
	if resp.Metadata["origin"] != "upload" {
		t.Errorf("Expected metadata carried over, got %v", resp.Metadata)
	}
	if resp.ExpiresAt == nil || !resp.ExpiresAt.Equal(file.ExpiresAt) {
		t.Errorf("Expected expiry %v, got %v", file.ExpiresAt, resp.ExpiresAt)
	}
}

func TestFileToResponseOmitsZeroExpiry(t *testing.T) {
	file := domain.NewFile("f-2", "keep.bin", "files/f-2", 1, "application/octet-stream", "", nil, 0)
	file.ExpiresAt = time.Time{}

	resp := FileToResponse(file)

	if resp.ExpiresAt != nil {
		t.Errorf("Expected nil expiry for a non-expiring file, got %v", resp.ExpiresAt)
	}
	if resp.Metadata != nil {
		t.Errorf("Expected nil metadata when empty, got %v", resp.Metadata)
	}
}

func TestJobToResponse(t *testing.T) {
	job := domain.NewTransformJob("j-1", domain.KindSplitPDF, []string{"f-1"}, map[string]string{"pages": "1-3"})
	if err := job.MarkProcessing(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := job.Complete([]string{"f-2", "f-3"}, map[string]string{"pageCount": "3"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	resp := JobToResponse(job)

	if resp.JobID != "j-1" {
		t.Errorf("Expected job ID j-1, got %v", resp.JobID)
	}
	if resp.Kind != string(domain.KindSplitPDF) {
		t.Errorf("Expected kind split-pdf, got %v", resp.Kind)
	}
	if resp.Status != string(domain.JobCompleted) {
		t.Errorf("Expected status completed, got %v", resp.Status)
	}
	if len(resp.OutputFileIDs) != 2 {
		t.Errorf("Expected 2 output files, got %v", resp.OutputFileIDs)
	}
	if resp.Result["pageCount"] != "3" {
		t.Errorf("Expected result pageCount=3, got %v", resp.Result)
	}
	if resp.StartedAt == nil || resp.CompletedAt == nil {
		t.Error("Expected started/completed timestamps set")
	}
}

func TestManifestToResponse(t *testing.T) {
	file := domain.NewFile("f-1", "big.iso", "files/f-1", 25, "application/octet-stream", "", nil, 0)
	entries := []download.ManifestEntry{
		{Index: 0, Start: 0, End: 9, Size: 10},
		{Index: 1, Start: 10, End: 19, Size: 10},
		{Index: 2, Start: 20, End: 24, Size: 5},
	}

	resp := ManifestToResponse(file, 10, entries)

	if resp.FileID != "f-1" {
		t.Errorf("Expected file ID f-1, got %v", resp.FileID)
	}
	if resp.ChunkSize != 10 {
		t.Errorf("Expected chunk size 10, got %v", resp.ChunkSize)
	}
	if len(resp.Chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %v", len(resp.Chunks))
	}
	last := resp.Chunks[2]
	if last.ByteStart != 20 || last.ByteEnd != 24 || last.Size != 5 {
		t.Errorf("Expected final chunk 20-24/5, got %+v", last)
	}
}
