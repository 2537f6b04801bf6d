package transform

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"fileflow/internal/fileflow/domain"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

var (
	videoFormats = map[string]bool{"mp4": true, "webm": true, "mkv": true, "mov": true, "avi": true}
	audioFormats = map[string]bool{"mp3": true, "aac": true, "wav": true, "flac": true, "ogg": true}
)

// MediaConverter performs codec work. The production implementation
// shells out to ffmpeg; tests substitute their own.
type MediaConverter interface {
	Transcode(ctx context.Context, inPath, outPath string) error
	ExtractAudio(ctx context.Context, inPath, outPath string) error
}

type ffmpegConverter struct {
	bin    string
	logger *logger.Logger
}

func NewFFmpegConverter(bin string) MediaConverter {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &ffmpegConverter{
		bin:    bin,
		logger: logger.WithField("component", "ffmpeg"),
	}
}

func (c *ffmpegConverter) Transcode(ctx context.Context, inPath, outPath string) error {
	return c.run(ctx, "-i", inPath, "-y", outPath)
}

func (c *ffmpegConverter) ExtractAudio(ctx context.Context, inPath, outPath string) error {
	return c.run(ctx, "-i", inPath, "-vn", "-y", outPath)
}

func (c *ffmpegConverter) run(ctx context.Context, args ...string) error {
	full := append([]string{"-nostdin", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, c.bin, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug("running converter", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s: %w", c.bin, err)
		}
		return fmt.Errorf("%s: %w: %s", c.bin, err, msg)
	}

	return nil
}

// transcodeRunner re-encodes a video into the requested container.
type transcodeRunner struct {
	converter MediaConverter
}

func (r *transcodeRunner) Kind() domain.JobKind { return domain.KindTranscode }

func (r *transcodeRunner) Validate(inputs []*domain.File, params map[string]string) error {
	if len(inputs) != 1 {
		return apperrors.NewValidation("inputFileIds", "transcode takes exactly one input")
	}
	format := params["format"]
	if format == "" {
		return apperrors.NewValidation("format", "must be set")
	}
	if !videoFormats[format] {
		return apperrors.Validationf("format", "unsupported container %q", format)
	}
	return nil
}

func (r *transcodeRunner) Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error) {
	format := req.Params["format"]
	in := req.Inputs[0]

	outPath := filepath.Join(req.Dir, "out."+format)
	req.Progress(10)

	if err := r.converter.Transcode(ctx, in.Path, outPath); err != nil {
		return nil, nil, err
	}
	req.Progress(90)

	return []Output{{
		Path:     outPath,
		Filename: replaceExt(in.File.Filename, format),
	}}, map[string]string{"format": format}, nil
}

// extractAudioRunner strips the audio track into its own file.
type extractAudioRunner struct {
	converter MediaConverter
}

func (r *extractAudioRunner) Kind() domain.JobKind { return domain.KindExtractAudio }

func (r *extractAudioRunner) Validate(inputs []*domain.File, params map[string]string) error {
	if len(inputs) != 1 {
		return apperrors.NewValidation("inputFileIds", "extract-audio takes exactly one input")
	}
	if format := params["format"]; format != "" && !audioFormats[format] {
		return apperrors.Validationf("format", "unsupported audio format %q", format)
	}
	return nil
}

func (r *extractAudioRunner) Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error) {
	format := req.Params["format"]
	if format == "" {
		format = "mp3"
	}
	in := req.Inputs[0]

	outPath := filepath.Join(req.Dir, "audio."+format)
	req.Progress(10)

	if err := r.converter.ExtractAudio(ctx, in.Path, outPath); err != nil {
		return nil, nil, err
	}
	req.Progress(90)

	return []Output{{
		Path:     outPath,
		Filename: replaceExt(in.File.Filename, format),
	}}, map[string]string{"format": format}, nil
}

func replaceExt(filename, ext string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + "." + ext
}
