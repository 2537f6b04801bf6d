// Package lifecycle garbage-collects expired entities: upload sessions
// past their deadline (with their staged chunks), files past their
// expiry (with their backing storage), and terminal transform job
// records older than the retention window.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/config"
	"fileflow/pkg/logger"
)

// Sweeper runs the retention policy on a fixed cadence.
type Sweeper struct {
	sessions state.SessionStore
	files    state.FileStore
	jobs     state.JobStore
	backend  storage.Backend
	cfg      config.RetentionConfig
	logger   *logger.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(sessions state.SessionStore, files state.FileStore, jobs state.JobStore,
	backend storage.Backend, cfg config.RetentionConfig) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		files:    files,
		jobs:     jobs,
		backend:  backend,
		cfg:      cfg,
		logger:   logger.WithField("component", "retention-sweeper"),
	}
}

// Start launches the periodic sweep loop. Calling Start twice is a
// no-op until Stop runs.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	// the goroutine owns its done channel directly; Stop nils the field
	// while the loop may still be running
	go s.run(ctx, s.done)

	s.logger.Info("retention sweeper started",
		"interval", s.cfg.SweepInterval.Std(),
		"jobRetention", s.cfg.JobRetention.Std())
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.logger.Info("retention sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.SweepInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, time.Now())
		}
	}
}

// Stats counts what one sweep removed.
type Stats struct {
	Sessions int
	Files    int
	Jobs     int
}

// Sweep applies the retention policy once. Files referenced as inputs
// by a queued or processing job are kept even past their expiry so a
// running job never loses an input mid-flight.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) Stats {
	var stats Stats

	for _, session := range s.sessions.ListSessions() {
		if !session.IsExpired(now) {
			continue
		}
		if err := s.backend.DeletePrefix(ctx, storage.StagingPrefix(session.UploadID)); err != nil {
			s.logger.Warn("failed to remove staged chunks of expired session",
				"uploadId", session.UploadID, "error", err)
			continue
		}
		s.sessions.RemoveSession(session.UploadID)
		stats.Sessions++
	}

	pinned := s.pinnedFileIDs()
	for _, file := range s.files.ListFiles() {
		if !file.IsExpired(now) {
			continue
		}
		if pinned[file.FileID] {
			s.logger.Debug("expired file pinned by active job", "fileId", file.FileID)
			continue
		}
		if err := s.backend.Delete(ctx, file.StorageKey); err != nil {
			s.logger.Warn("failed to remove expired file content",
				"fileId", file.FileID, "error", err)
			continue
		}
		if err := s.files.RemoveFile(file.FileID); err == nil {
			stats.Files++
		}
	}

	cutoff := now.Add(-s.cfg.JobRetention.Std())
	for _, job := range s.jobs.ListJobs() {
		if !job.IsTerminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.After(cutoff) {
			continue
		}
		if err := s.jobs.RemoveJob(job.JobID); err == nil {
			stats.Jobs++
		}
	}

	if stats.Sessions > 0 || stats.Files > 0 || stats.Jobs > 0 {
		s.logger.Info("sweep finished",
			"sessions", stats.Sessions,
			"files", stats.Files,
			"jobs", stats.Jobs)
	}

	return stats
}

// pinnedFileIDs collects every file referenced as input by a job that
// is still queued or processing.
func (s *Sweeper) pinnedFileIDs() map[string]bool {
	pinned := make(map[string]bool)
	for _, job := range s.jobs.ListJobs() {
		if job.Status != domain.JobQueued && job.Status != domain.JobProcessing {
			continue
		}
		for _, id := range job.InputFileIDs {
			pinned[id] = true
		}
	}
	return pinned
}
