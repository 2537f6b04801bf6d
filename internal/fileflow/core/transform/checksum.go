package transform

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"os"
	"strconv"

	"fileflow/internal/fileflow/domain"
	"fileflow/pkg/buffer"
	apperrors "fileflow/pkg/errors"
)

// checksumRunner digests a file. It is the one kind with no output
// files: the digest travels on the job's result map.
type checksumRunner struct{}

func (r *checksumRunner) Kind() domain.JobKind { return domain.KindChecksum }

func (r *checksumRunner) Validate(inputs []*domain.File, params map[string]string) error {
	if len(inputs) != 1 {
		return apperrors.NewValidation("inputFileIds", "checksum takes exactly one input")
	}
	switch params["algorithm"] {
	case "", "sha256", "sha512", "sha1", "md5":
	default:
		return apperrors.Validationf("algorithm", "unsupported algorithm %q", params["algorithm"])
	}
	return nil
}

func (r *checksumRunner) Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error) {
	algorithm := req.Params["algorithm"]
	if algorithm == "" {
		algorithm = "sha256"
	}

	var hasher hash.Hash
	switch algorithm {
	case "sha256":
		hasher = sha256.New()
	case "sha512":
		hasher = sha512.New()
	case "sha1":
		hasher = sha1.New()
	case "md5":
		hasher = md5.New()
	}

	in := req.Inputs[0]
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	req.Progress(10)
	size, err := buffer.Copy(hasher, f)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to digest %s: %w", in.File.FileID, err)
	}
	req.Progress(90)

	return nil, map[string]string{
		"algorithm": algorithm,
		"digest":    hex.EncodeToString(hasher.Sum(nil)),
		"bytes":     strconv.FormatInt(size, 10),
	}, nil
}
