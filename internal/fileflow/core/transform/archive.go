package transform

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"fileflow/internal/fileflow/domain"
	"fileflow/pkg/buffer"
	apperrors "fileflow/pkg/errors"
)

// archiveRunner bundles the input files into a zip or tar.gz archive.
type archiveRunner struct{}

func (r *archiveRunner) Kind() domain.JobKind { return domain.KindCompress }

func (r *archiveRunner) Validate(inputs []*domain.File, params map[string]string) error {
	switch params["format"] {
	case "", "zip", "tar.gz", "tgz":
	default:
		return apperrors.Validationf("format", "must be zip or tar.gz, got %q", params["format"])
	}
	return nil
}

func (r *archiveRunner) Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error) {
	format := req.Params["format"]
	switch format {
	case "":
		format = "zip"
	case "tgz":
		format = "tar.gz"
	}

	name := req.Params["archiveName"]
	if name == "" {
		name = "archive." + format
	}
	name = filepath.Base(name)

	outPath := filepath.Join(req.Dir, "out."+format)

	var err error
	switch format {
	case "zip":
		err = writeZip(outPath, req)
	case "tar.gz":
		err = writeTarGz(outPath, req)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build %s archive: %w", format, err)
	}

	return []Output{{Path: outPath, Filename: name}}, map[string]string{
		"format":  format,
		"entries": strconv.Itoa(len(req.Inputs)),
	}, nil
}

func writeZip(outPath string, req RunRequest) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	names := newEntryNames()

	for i, in := range req.Inputs {
		w, err := zw.Create(names.unique(in.File.Filename))
		if err != nil {
			return err
		}
		if err := copyLocal(w, in.Path); err != nil {
			return err
		}
		req.Progress(float64(i+1) / float64(len(req.Inputs)) * 90)
	}

	if err := zw.Close(); err != nil {
		return err
	}
	return f.Close()
}

func writeTarGz(outPath string, req RunRequest) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	names := newEntryNames()

	for i, in := range req.Inputs {
		info, err := os.Stat(in.Path)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name:    names.unique(in.File.Filename),
			Mode:    0o644,
			Size:    info.Size(),
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if err := copyLocal(tw, in.Path); err != nil {
			return err
		}
		req.Progress(float64(i+1) / float64(len(req.Inputs)) * 90)
	}

	if err := tw.Close(); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return f.Close()
}

func copyLocal(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = buffer.Copy(dst, f)
	return err
}

// entryNames deduplicates archive member names, turning the second
// report.pdf into report-1.pdf.
type entryNames struct {
	seen map[string]int
}

func newEntryNames() *entryNames {
	return &entryNames{seen: make(map[string]int)}
}

func (n *entryNames) unique(name string) string {
	name = filepath.Base(name)
	count, taken := n.seen[name]
	n.seen[name]++
	if !taken {
		return name
	}

	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), count, ext)
}
