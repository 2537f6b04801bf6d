package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"fileflow/internal/fileflow/domain"
	apperrors "fileflow/pkg/errors"
)

const (
	defaultThumbWidth   = 256
	defaultThumbQuality = 85
)

// thumbnailRunner renders a scaled-down image. chai2010/webp registers
// the webp format on import, so image.Decode covers it alongside the
// stdlib formats.
type thumbnailRunner struct{}

func (r *thumbnailRunner) Kind() domain.JobKind { return domain.KindThumbnail }

func (r *thumbnailRunner) Validate(inputs []*domain.File, params map[string]string) error {
	if len(inputs) != 1 {
		return apperrors.NewValidation("inputFileIds", "thumbnail takes exactly one input")
	}

	width, err := intParam(params, "width", 0)
	if err != nil {
		return err
	}
	height, err := intParam(params, "height", 0)
	if err != nil {
		return err
	}
	if width < 0 || height < 0 {
		return apperrors.NewValidation("width", "dimensions must not be negative")
	}

	quality, err := intParam(params, "quality", defaultThumbQuality)
	if err != nil {
		return err
	}
	if quality < 1 || quality > 100 {
		return apperrors.NewValidation("quality", "must be between 1 and 100")
	}

	switch params["format"] {
	case "", "jpeg", "jpg", "png", "webp":
	default:
		return apperrors.Validationf("format", "unsupported image format %q", params["format"])
	}

	return nil
}

func (r *thumbnailRunner) Run(ctx context.Context, req RunRequest) ([]Output, map[string]string, error) {
	width, _ := intParam(req.Params, "width", 0)
	height, _ := intParam(req.Params, "height", 0)
	if width == 0 && height == 0 {
		width = defaultThumbWidth
	}
	quality, _ := intParam(req.Params, "quality", defaultThumbQuality)

	format := req.Params["format"]
	if format == "" || format == "jpg" {
		format = "jpeg"
	}

	in := req.Inputs[0]
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode image: %w", err)
	}
	req.Progress(30)

	var thumb image.Image
	if width > 0 && height > 0 {
		// both bounds set: fit inside the box preserving aspect ratio
		thumb = imaging.Fit(img, width, height, imaging.Lanczos)
	} else {
		thumb = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	req.Progress(60)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: quality})
	case "png":
		err = png.Encode(&buf, thumb)
	case "webp":
		err = webp.Encode(&buf, thumb, &webp.Options{Quality: float32(quality)})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	outPath := filepath.Join(req.Dir, "thumb."+ext)
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return nil, nil, err
	}
	req.Progress(90)

	bounds := thumb.Bounds()
	base := strings.TrimSuffix(in.File.Filename, filepath.Ext(in.File.Filename))

	return []Output{{
			Path:     outPath,
			Filename: fmt.Sprintf("%s-thumb.%s", base, ext),
		}}, map[string]string{
			"width":  strconv.Itoa(bounds.Dx()),
			"height": strconv.Itoa(bounds.Dy()),
			"format": format,
		}, nil
}
