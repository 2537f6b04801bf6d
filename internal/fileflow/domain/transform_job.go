package domain

import (
	"fmt"
	"time"
)

type JobKind string

const (
	KindSplitPDF     JobKind = "split-pdf"
	KindMergePDF     JobKind = "merge-pdf"
	KindCompress     JobKind = "compress"
	KindTranscode    JobKind = "transcode"
	KindExtractAudio JobKind = "extract-audio"
	KindThumbnail    JobKind = "thumbnail"
	KindChecksum     JobKind = "checksum"
)

// Kinds lists every supported transform kind.
var Kinds = []JobKind{
	KindSplitPDF,
	KindMergePDF,
	KindCompress,
	KindTranscode,
	KindExtractAudio,
	KindThumbnail,
	KindChecksum,
}

func ValidKind(kind JobKind) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// IsHeavy reports whether the kind counts against the heavy-transform
// concurrency ceiling. Codec work dominates resource usage; everything
// else is bounded by the worker pool alone.
func (k JobKind) IsHeavy() bool {
	return k == KindTranscode || k == KindExtractAudio
}

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// TransformJob is an asynchronous unit of work deriving new files from
// existing ones. Jobs reference files by identity only and move through
// queued -> processing -> {completed | failed}; terminal states never
// transition out.
type TransformJob struct {
	JobID         string
	Kind          JobKind
	Status        JobStatus
	Progress      float64 // [0,100], non-decreasing until terminal
	InputFileIDs  []string
	OutputFileIDs []string
	Params        map[string]string
	// Result carries kind-specific non-file outputs, e.g. the checksum
	// kind records algorithm and digest here
	Result      map[string]string
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

func NewTransformJob(jobID string, kind JobKind, inputFileIDs []string, params map[string]string) *TransformJob {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}

	return &TransformJob{
		JobID:        jobID,
		Kind:         kind,
		Status:       JobQueued,
		InputFileIDs: append([]string(nil), inputFileIDs...),
		Params:       p,
		CreatedAt:    time.Now(),
	}
}

func (j *TransformJob) IsTerminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

// MarkProcessing transitions the job from queued to processing
func (j *TransformJob) MarkProcessing() error {
	if j.Status != JobQueued {
		return fmt.Errorf("cannot mark job as processing: current status is %s, expected %s", j.Status, JobQueued)
	}

	j.Status = JobProcessing
	now := time.Now()
	j.StartedAt = &now
	return nil
}

// UpdateProgress raises progress toward 100. Lower values and updates
// after a terminal transition are ignored, keeping observed progress
// monotonic.
func (j *TransformJob) UpdateProgress(progress float64) {
	if j.IsTerminal() {
		return
	}
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
}

// Complete marks the job successful, recording its outputs
func (j *TransformJob) Complete(outputFileIDs []string, result map[string]string) error {
	if j.Status != JobProcessing {
		return fmt.Errorf("cannot complete job: current status is %s, expected %s", j.Status, JobProcessing)
	}

	j.Status = JobCompleted
	j.Progress = 100
	j.OutputFileIDs = append([]string(nil), outputFileIDs...)
	if len(result) > 0 {
		j.Result = make(map[string]string, len(result))
		for k, v := range result {
			j.Result[k] = v
		}
	}
	now := time.Now()
	j.CompletedAt = &now
	return nil
}

// Fail marks the job failed with a diagnostic message
func (j *TransformJob) Fail(message string) error {
	if j.IsTerminal() {
		return fmt.Errorf("cannot fail job: current status is %s, already terminal", j.Status)
	}

	j.Status = JobFailed
	j.Error = message
	now := time.Now()
	j.CompletedAt = &now
	return nil
}

// Duration returns how long the job has been running or took to finish
func (j *TransformJob) Duration() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	if j.CompletedAt != nil {
		return j.CompletedAt.Sub(*j.StartedAt)
	}
	return time.Since(*j.StartedAt)
}

// DeepCopy creates a deep copy of the job
func (j *TransformJob) DeepCopy() *TransformJob {
	if j == nil {
		return nil
	}

	cp := &TransformJob{
		JobID:         j.JobID,
		Kind:          j.Kind,
		Status:        j.Status,
		Progress:      j.Progress,
		InputFileIDs:  append([]string(nil), j.InputFileIDs...),
		OutputFileIDs: append([]string(nil), j.OutputFileIDs...),
		Error:         j.Error,
		CreatedAt:     j.CreatedAt,
	}

	if len(j.Params) > 0 {
		cp.Params = make(map[string]string, len(j.Params))
		for k, v := range j.Params {
			cp.Params[k] = v
		}
	}
	if len(j.Result) > 0 {
		cp.Result = make(map[string]string, len(j.Result))
		for k, v := range j.Result {
			cp.Result[k] = v
		}
	}
	if j.StartedAt != nil {
		startedCopy := *j.StartedAt
		cp.StartedAt = &startedCopy
	}
	if j.CompletedAt != nil {
		completedCopy := *j.CompletedAt
		cp.CompletedAt = &completedCopy
	}

	return cp
}
