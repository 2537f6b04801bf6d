package state

import (
	"fmt"
	"sync"

	"fileflow/internal/fileflow/domain"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

type JobStore interface {
	CreateJob(job *domain.TransformJob) error
	GetJob(id string) (*domain.TransformJob, bool)
	// UpdateJob overwrites the stored record. The executing worker is
	// the only writer for a given job, so write-back is race-free.
	UpdateJob(job *domain.TransformJob) error
	ListJobs() []*domain.TransformJob
	RemoveJob(id string) error
}

type jobStore struct {
	jobs   map[string]*domain.TransformJob
	mutex  sync.RWMutex
	logger *logger.Logger
}

func NewJobStore() JobStore {
	js := &jobStore{
		jobs:   make(map[string]*domain.TransformJob),
		logger: logger.WithField("component", "job-store"),
	}

	js.logger.Debug("job store initialized")
	return js
}

func (js *jobStore) CreateJob(job *domain.TransformJob) error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	if _, exists := js.jobs[job.JobID]; exists {
		js.logger.Warn("attempted to create job that already exists", "jobId", job.JobID)
		return fmt.Errorf("transform job %s already exists", job.JobID)
	}

	js.jobs[job.JobID] = job.DeepCopy()
	js.logger.Debug("job created", "jobId", job.JobID, "kind", string(job.Kind),
		"inputs", len(job.InputFileIDs))

	return nil
}

func (js *jobStore) GetJob(id string) (*domain.TransformJob, bool) {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	job, exists := js.jobs[id]
	if !exists {
		js.logger.Debug("job not found", "jobId", id)
		return nil, false
	}

	return job.DeepCopy(), true
}

func (js *jobStore) UpdateJob(job *domain.TransformJob) error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	if _, exists := js.jobs[job.JobID]; !exists {
		js.logger.Warn("attempted to update non-existent job", "jobId", job.JobID, "status", string(job.Status))
		return apperrors.NewNotFound("transform job", job.JobID)
	}

	js.jobs[job.JobID] = job.DeepCopy()
	js.logger.Debug("job updated", "jobId", job.JobID, "status", string(job.Status), "progress", job.Progress)

	return nil
}

func (js *jobStore) ListJobs() []*domain.TransformJob {
	js.mutex.RLock()
	defer js.mutex.RUnlock()

	jobs := make([]*domain.TransformJob, 0, len(js.jobs))
	for _, job := range js.jobs {
		jobs = append(jobs, job.DeepCopy())
	}

	return jobs
}

func (js *jobStore) RemoveJob(id string) error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	if _, exists := js.jobs[id]; !exists {
		js.logger.Debug("attempted to remove non-existent job", "jobId", id)
		return apperrors.NewNotFound("transform job", id)
	}

	delete(js.jobs, id)
	js.logger.Debug("job removed", "jobId", id)

	return nil
}
