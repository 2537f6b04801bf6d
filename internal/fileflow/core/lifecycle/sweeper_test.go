package lifecycle_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"fileflow/internal/fileflow/core/lifecycle"
	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
)

type fixture struct {
	sweeper  *lifecycle.Sweeper
	sessions state.SessionStore
	files    state.FileStore
	jobs     state.JobStore
	backend  storage.Backend
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend, err := storage.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	sessions := state.NewSessionStore()
	files := state.NewFileStore()
	jobs := state.NewJobStore()
	cfg := config.RetentionConfig{
		SweepInterval: config.Duration(time.Minute),
		JobRetention:  config.Duration(time.Hour),
	}

	return &fixture{
		sweeper:  lifecycle.NewSweeper(sessions, files, jobs, backend, cfg),
		sessions: sessions,
		files:    files,
		jobs:     jobs,
		backend:  backend,
	}
}

func (f *fixture) addSession(t *testing.T, ttl time.Duration) *domain.UploadSession {
	t.Helper()
	session := domain.NewUploadSession("", "data.bin", 10, 10, "", nil, ttl)
	session.UploadID = "session-" + ttl.String()
	if err := f.sessions.CreateSession(session); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	key := storage.StagingKey(session.UploadID, 0)
	if _, err := f.backend.Write(context.Background(), key, strings.NewReader("aaaaaaaaaa")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return session
}

func (f *fixture) addFile(t *testing.T, fileID string, expiresAt time.Time) *domain.File {
	t.Helper()
	file := domain.NewFile(fileID, fileID+".bin", storage.FileKey(fileID), 4, "application/octet-stream", "", nil, 0)
	file.ExpiresAt = expiresAt
	if err := f.files.PutFile(file); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := f.backend.Write(context.Background(), file.StorageKey, strings.NewReader("data")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return file
}

func (f *fixture) addTerminalJob(t *testing.T, jobID string, completedAt time.Time) {
	t.Helper()
	job := domain.NewTransformJob(jobID, domain.KindChecksum, []string{"in"}, nil)
	if err := f.jobs.CreateJob(job); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_ = job.MarkProcessing()
	_ = job.Complete(nil, nil)
	job.CompletedAt = &completedAt
	if err := f.jobs.UpdateJob(job); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestSweeper_RemovesExpiredSessionsWithStagedChunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired := f.addSession(t, -time.Minute)
	live := f.addSession(t, time.Hour)

	stats := f.sweeper.Sweep(ctx, time.Now())
	if stats.Sessions != 1 {
		t.Fatalf("Expected 1 swept session, got %d", stats.Sessions)
	}

	if _, ok := f.sessions.GetSession(expired.UploadID); ok {
		t.Error("Expected expired session removed")
	}
	if _, err := f.backend.Stat(ctx, storage.StagingKey(expired.UploadID, 0)); !apperrors.IsNotFound(err) {
		t.Errorf("Expected staged chunks removed, got %v", err)
	}

	if _, ok := f.sessions.GetSession(live.UploadID); !ok {
		t.Error("Expected live session kept")
	}
	if _, err := f.backend.Stat(ctx, storage.StagingKey(live.UploadID, 0)); err != nil {
		t.Errorf("Expected live staged chunks kept, got %v", err)
	}
}

func TestSweeper_RemovesExpiredFilesWithContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expired := f.addFile(t, "old", time.Now().Add(-time.Minute))
	live := f.addFile(t, "fresh", time.Now().Add(time.Hour))
	forever := f.addFile(t, "pinned-free", time.Time{})

	stats := f.sweeper.Sweep(ctx, time.Now())
	if stats.Files != 1 {
		t.Fatalf("Expected 1 swept file, got %d", stats.Files)
	}

	if _, ok := f.files.GetFile(expired.FileID); ok {
		t.Error("Expected expired file removed")
	}
	if _, err := f.backend.Stat(ctx, expired.StorageKey); !apperrors.IsNotFound(err) {
		t.Errorf("Expected expired content removed, got %v", err)
	}
	if _, ok := f.files.GetFile(live.FileID); !ok {
		t.Error("Expected live file kept")
	}
	if _, ok := f.files.GetFile(forever.FileID); !ok {
		t.Error("Expected zero-expiry file kept")
	}
}

func TestSweeper_KeepsFilesReferencedByActiveJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := f.addFile(t, "job-input", time.Now().Add(-time.Minute))

	job := domain.NewTransformJob("job-1", domain.KindChecksum, []string{input.FileID}, nil)
	if err := f.jobs.CreateJob(job); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stats := f.sweeper.Sweep(ctx, time.Now())
	if stats.Files != 0 {
		t.Fatalf("Expected no swept files, got %d", stats.Files)
	}
	if _, ok := f.files.GetFile(input.FileID); !ok {
		t.Error("Expected job input kept despite expiry")
	}

	// once the job is terminal the file becomes collectable
	_ = job.MarkProcessing()
	_ = job.Complete(nil, nil)
	if err := f.jobs.UpdateJob(job); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stats = f.sweeper.Sweep(ctx, time.Now())
	if stats.Files != 1 {
		t.Fatalf("Expected 1 swept file, got %d", stats.Files)
	}
}

func TestSweeper_PrunesOldTerminalJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addTerminalJob(t, "ancient", time.Now().Add(-2*time.Hour))
	f.addTerminalJob(t, "recent", time.Now().Add(-time.Minute))

	// an active job is never pruned regardless of age
	active := domain.NewTransformJob("active", domain.KindChecksum, []string{"in"}, nil)
	if err := f.jobs.CreateJob(active); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stats := f.sweeper.Sweep(ctx, time.Now())
	if stats.Jobs != 1 {
		t.Fatalf("Expected 1 pruned job, got %d", stats.Jobs)
	}

	if _, ok := f.jobs.GetJob("ancient"); ok {
		t.Error("Expected ancient job pruned")
	}
	if _, ok := f.jobs.GetJob("recent"); !ok {
		t.Error("Expected recent job kept")
	}
	if _, ok := f.jobs.GetJob("active"); !ok {
		t.Error("Expected active job kept")
	}
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture(t)

	f.sweeper.Start()
	f.sweeper.Start() // second start is a no-op
	f.sweeper.Stop()
	f.sweeper.Stop() // second stop is a no-op
}

func TestSweeper_ImmediateStopAfterStart(t *testing.T) {
	f := newFixture(t)

	// Stop may run before the sweep goroutine is scheduled at all; the
	// shutdown handshake must survive that ordering
	for i := 0; i < 100; i++ {
		f.sweeper.Start()
		f.sweeper.Stop()
	}
}
