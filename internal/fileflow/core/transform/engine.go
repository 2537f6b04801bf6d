package transform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"fileflow/internal/fileflow/domain"
	"fileflow/internal/fileflow/state"
	"fileflow/internal/fileflow/storage"
	"fileflow/pkg/buffer"
	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// Engine queues transform jobs and runs them on a bounded worker pool.
// Heavy kinds (codec work) additionally pass through a concurrency
// ceiling so a burst of transcodes cannot monopolize the host.
type Engine struct {
	jobs    state.JobStore
	files   state.FileStore
	backend storage.Backend
	cfg     config.TransformConfig
	fileTTL time.Duration
	logger  *logger.Logger

	runners map[domain.JobKind]Runner
	queue   chan string
	heavy   chan struct{}

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewEngine wires the runner registry. converter may be nil, selecting
// the ffmpeg binary from the configuration.
func NewEngine(jobs state.JobStore, files state.FileStore, backend storage.Backend,
	cfg config.TransformConfig, fileTTL time.Duration, converter MediaConverter) *Engine {

	if converter == nil {
		converter = NewFFmpegConverter(cfg.FFmpegPath)
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		jobs:    jobs,
		files:   files,
		backend: backend,
		cfg:     cfg,
		fileTTL: fileTTL,
		logger:  logger.WithField("component", "transform-engine"),
		runners: make(map[domain.JobKind]Runner),
		queue:   make(chan string, cfg.QueueSize),
		heavy:   make(chan struct{}, cfg.HeavyConcurrency),
		ctx:     ctx,
		cancel:  cancel,
	}

	for _, r := range []Runner{
		&pdfSplitRunner{},
		&pdfMergeRunner{},
		&archiveRunner{},
		&transcodeRunner{converter: converter},
		&extractAudioRunner{converter: converter},
		&thumbnailRunner{},
		&checksumRunner{},
	} {
		e.runners[r.Kind()] = r
	}

	return e
}

// RegisterRunner replaces the runner for a kind.
func (e *Engine) RegisterRunner(r Runner) {
	e.runners[r.Kind()] = r
}

// Start launches the worker pool.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}

	e.running = true
	e.logger.Info("transform engine started",
		"workers", e.cfg.Workers,
		"queueSize", cap(e.queue),
		"heavyConcurrency", cap(e.heavy))

	return nil
}

// Stop drains the workers. Queued jobs stay queued in the store but
// will not run again; in-flight jobs fail with a cancellation error.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	e.logger.Info("transform engine stopped")
}

// Submit validates and queues a job, returning its queued record.
func (e *Engine) Submit(ctx context.Context, kind domain.JobKind, inputFileIDs []string, params map[string]string) (*domain.TransformJob, error) {
	runner, ok := e.runners[kind]
	if !ok {
		return nil, &apperrors.UnsupportedKindError{Kind: string(kind)}
	}

	if len(inputFileIDs) == 0 {
		return nil, apperrors.NewValidation("inputFileIds", "must name at least one file")
	}

	inputs := make([]*domain.File, 0, len(inputFileIDs))
	now := time.Now()
	for _, id := range inputFileIDs {
		file, ok := e.files.GetFile(id)
		if !ok || file.IsExpired(now) {
			return nil, apperrors.NewNotFound("file", id)
		}
		inputs = append(inputs, file)
	}

	if err := runner.Validate(inputs, params); err != nil {
		return nil, err
	}

	job := domain.NewTransformJob(uuid.NewString(), kind, inputFileIDs, params)
	if err := e.jobs.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	select {
	case e.queue <- job.JobID:
	default:
		e.jobs.RemoveJob(job.JobID)
		return nil, apperrors.NewValidation("queue", "transform queue is full")
	}

	e.logger.Info("job queued",
		"jobId", job.JobID,
		"kind", string(kind),
		"inputs", len(inputFileIDs))

	return job, nil
}

// Job returns the current view of one job.
func (e *Engine) Job(id string) (*domain.TransformJob, error) {
	job, ok := e.jobs.GetJob(id)
	if !ok {
		return nil, apperrors.NewNotFound("transform job", id)
	}
	return job, nil
}

// Jobs lists every job the store still holds.
func (e *Engine) Jobs() []*domain.TransformJob {
	return e.jobs.ListJobs()
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()

	log := e.logger.WithField("worker", id)
	log.Debug("worker started")

	for {
		select {
		case <-e.ctx.Done():
			log.Debug("worker stopping")
			return
		case jobID := <-e.queue:
			e.execute(jobID)
		}
	}
}

func (e *Engine) execute(jobID string) {
	job, ok := e.jobs.GetJob(jobID)
	if !ok {
		e.logger.Warn("queued job vanished from store", "jobId", jobID)
		return
	}

	log := e.logger.WithFields("jobId", job.JobID, "kind", string(job.Kind))

	if job.Kind.IsHeavy() {
		select {
		case e.heavy <- struct{}{}:
			defer func() { <-e.heavy }()
		case <-e.ctx.Done():
			return
		}
	}

	if err := job.MarkProcessing(); err != nil {
		log.Warn("job not runnable", "status", string(job.Status), "error", err)
		return
	}
	e.jobs.UpdateJob(job)
	log.Info("job started")

	started := time.Now()
	outputIDs, result, err := e.runJob(job)
	if err != nil {
		job.Fail(err.Error())
		e.jobs.UpdateJob(job)
		log.Warn("job failed", "error", err, "duration", time.Since(started))
		return
	}

	job.Complete(outputIDs, result)
	e.jobs.UpdateJob(job)
	log.Info("job completed", "outputs", len(outputIDs), "duration", time.Since(started))
}

// runJob materializes inputs, runs the kind's runner, and registers
// the outputs. The scratch directory is always removed.
func (e *Engine) runJob(job *domain.TransformJob) ([]string, map[string]string, error) {
	runner := e.runners[job.Kind]

	workDir := e.cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	dir := filepath.Join(workDir, job.JobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inputs, err := e.materialize(job, dir)
	if err != nil {
		return nil, nil, err
	}

	progress := func(p float64) {
		job.UpdateProgress(p)
		e.jobs.UpdateJob(job)
	}

	outputs, result, err := runner.Run(e.ctx, RunRequest{
		Dir:      dir,
		Inputs:   inputs,
		Params:   job.Params,
		Progress: progress,
	})
	if err != nil {
		return nil, nil, err
	}

	outputIDs, err := e.publish(job, outputs)
	if err != nil {
		return nil, nil, err
	}

	return outputIDs, result, nil
}

// materialize copies each input from the backend onto local disk.
func (e *Engine) materialize(job *domain.TransformJob, dir string) ([]RunInput, error) {
	inputs := make([]RunInput, 0, len(job.InputFileIDs))
	now := time.Now()

	for i, id := range job.InputFileIDs {
		file, ok := e.files.GetFile(id)
		if !ok || file.IsExpired(now) {
			return nil, apperrors.NewNotFound("file", id)
		}

		path := filepath.Join(dir, fmt.Sprintf("in-%d%s", i, filepath.Ext(file.Filename)))
		if err := e.copyToLocal(file.StorageKey, path); err != nil {
			return nil, fmt.Errorf("failed to materialize %s: %w", id, err)
		}

		inputs = append(inputs, RunInput{File: file, Path: path})
	}

	return inputs, nil
}

func (e *Engine) copyToLocal(key, path string) error {
	rc, err := e.backend.ReadRange(e.ctx, key, 0, -1)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := buffer.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// publish registers each output as a new file. A failure mid-way rolls
// back the outputs registered so far, so a failed job leaves nothing.
func (e *Engine) publish(job *domain.TransformJob, outputs []Output) ([]string, error) {
	outputIDs := make([]string, 0, len(outputs))

	rollback := func() {
		for _, id := range outputIDs {
			e.files.RemoveFile(id)
			if err := e.backend.Delete(e.ctx, storage.FileKey(id)); err != nil {
				e.logger.Warn("failed to roll back output", "fileId", id, "error", err)
			}
		}
	}

	for _, out := range outputs {
		fileID := uuid.NewString()

		size, checksum, err := e.uploadLocal(out.Path, storage.FileKey(fileID))
		if err != nil {
			rollback()
			return nil, fmt.Errorf("failed to publish %s: %w", out.Filename, err)
		}

		mimeType := "application/octet-stream"
		if detected, err := mimetype.DetectFile(out.Path); err == nil {
			mimeType = detected.String()
		}

		file := domain.NewFile(fileID, out.Filename, storage.FileKey(fileID), size, mimeType, checksum,
			map[string]string{"jobId": job.JobID, "kind": string(job.Kind)}, e.fileTTL)

		if err := e.files.PutFile(file); err != nil {
			e.backend.Delete(e.ctx, storage.FileKey(fileID))
			rollback()
			return nil, fmt.Errorf("failed to register %s: %w", out.Filename, err)
		}

		outputIDs = append(outputIDs, fileID)
	}

	return outputIDs, nil
}

func (e *Engine) uploadLocal(path, key string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := e.backend.Write(e.ctx, key, io.TeeReader(f, hasher))
	if err != nil {
		return 0, "", err
	}

	return size, hex.EncodeToString(hasher.Sum(nil)), nil
}
