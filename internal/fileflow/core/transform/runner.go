package transform

import (
	"context"
	"strconv"

	"fileflow/internal/fileflow/domain"
	apperrors "fileflow/pkg/errors"
)

// RunRequest is everything a runner gets for one job execution.
type RunRequest struct {
	// Dir is a scratch directory private to the job, removed after the
	// run regardless of outcome.
	Dir string
	// Inputs are the job's files materialized on local disk, in
	// InputFileIDs order.
	Inputs []RunInput
	Params map[string]string
	// Progress reports forward progress in [0,100]. Regressions are
	// ignored upstream.
	Progress func(float64)
}

type RunInput struct {
	File *domain.File
	Path string
}

// Output is an artifact a runner produced and wants registered.
type Output struct {
	// Path is the local file holding the artifact's bytes.
	Path string
	// Filename is the logical name the registry records.
	Filename string
}

// Runner executes one transform kind.
type Runner interface {
	Kind() domain.JobKind
	// Validate vets input cardinality and params before the job is
	// queued, so bad submissions fail synchronously.
	Validate(inputs []*domain.File, params map[string]string) error
	// Run performs the transform. Returned outputs are registered by
	// the engine; the result map lands on the job record verbatim.
	Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error)
}

func intParam(params map[string]string, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperrors.Validationf(key, "must be an integer, got %q", v)
	}
	return n, nil
}
