package transform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"fileflow/internal/fileflow/domain"
	apperrors "fileflow/pkg/errors"
)

// pdfConfiguration relaxes validation so slightly malformed real-world
// PDFs still process.
func pdfConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// pdfSplitRunner splits one PDF into parts of pagesPerFile pages.
type pdfSplitRunner struct{}

func (r *pdfSplitRunner) Kind() domain.JobKind { return domain.KindSplitPDF }

func (r *pdfSplitRunner) Validate(inputs []*domain.File, params map[string]string) error {
	if len(inputs) != 1 {
		return apperrors.NewValidation("inputFileIds", "split-pdf takes exactly one input")
	}
	span, err := intParam(params, "pagesPerFile", 1)
	if err != nil {
		return err
	}
	if span < 1 {
		return apperrors.NewValidation("pagesPerFile", "must be at least 1")
	}
	return nil
}

func (r *pdfSplitRunner) Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error) {
	span, _ := intParam(req.Params, "pagesPerFile", 1)
	in := req.Inputs[0]

	pages, err := api.PageCountFile(in.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read page count: %w", err)
	}
	req.Progress(10)

	outDir := filepath.Join(req.Dir, "split")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, nil, err
	}

	if err := api.SplitFile(in.Path, outDir, span, pdfConfiguration()); err != nil {
		return nil, nil, fmt.Errorf("failed to split: %w", err)
	}
	req.Progress(80)

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	// output names carry a numeric page suffix; lexicographic order
	// puts part 10 before part 2
	sort.Slice(names, func(i, j int) bool {
		return splitOrdinal(names[i]) < splitOrdinal(names[j])
	})

	base := strings.TrimSuffix(in.File.Filename, filepath.Ext(in.File.Filename))
	outputs := make([]Output, 0, len(names))
	for i, name := range names {
		outputs = append(outputs, Output{
			Path:     filepath.Join(outDir, name),
			Filename: fmt.Sprintf("%s-part-%d.pdf", base, i+1),
		})
	}

	return outputs, map[string]string{
		"pages": strconv.Itoa(pages),
		"parts": strconv.Itoa(len(outputs)),
	}, nil
}

// splitOrdinal extracts the first page number from a split output name
// like report_3.pdf or report_11-20.pdf.
func splitOrdinal(name string) int {
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return 0
	}
	digits := name[idx+1:]
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(digits[:end])
	return n
}

// pdfMergeRunner concatenates PDFs in input order.
type pdfMergeRunner struct{}

func (r *pdfMergeRunner) Kind() domain.JobKind { return domain.KindMergePDF }

func (r *pdfMergeRunner) Validate(inputs []*domain.File, params map[string]string) error {
	if len(inputs) < 2 {
		return apperrors.NewValidation("inputFileIds", "merge-pdf takes at least two inputs")
	}
	return nil
}

func (r *pdfMergeRunner) Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error) {
	paths := make([]string, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		paths = append(paths, in.Path)
	}

	outPath := filepath.Join(req.Dir, "merged.pdf")
	if err := api.MergeCreateFile(paths, outPath, false, pdfConfiguration()); err != nil {
		return nil, nil, fmt.Errorf("failed to merge: %w", err)
	}
	req.Progress(80)

	pages, err := api.PageCountFile(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read merged page count: %w", err)
	}

	name := req.Params["outputName"]
	if name == "" {
		name = "merged.pdf"
	}

	return []Output{{Path: outPath, Filename: name}}, map[string]string{
		"pages":  strconv.Itoa(pages),
		"merged": strconv.Itoa(len(paths)),
	}, nil
}
