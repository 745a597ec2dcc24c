// Package transform renders crop, rotate, resize and flip edits of raster
// images. Every call is a pure function of the input bytes and parameters.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/msomdec/gallery/internal/domain"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

// MaxPixels bounds the decoded size of a source image. A small file can
// declare dimensions whose pixel buffer would not fit in memory.
const MaxPixels = 50_000_000

var _ domain.TransformEngine = (*Engine)(nil)

// Engine implements domain.TransformEngine on top of the image codecs
// registered in this package.
type Engine struct {
	scaler draw.Scaler
}

// NewEngine returns an engine that resamples with Catmull-Rom.
func NewEngine() *Engine {
	return &Engine{scaler: draw.CatmullRom}
}

// Apply decodes src, applies t and re-encodes in the source format. WebP
// input is re-encoded as PNG.
func (e *Engine) Apply(ctx context.Context, src []byte, t domain.Transform) (*domain.Rendered, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: missing transform", domain.ErrInvalidInput)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransformFailed, err)
	}

	if _, _, _, err := Probe(src); err != nil {
		return nil, err
	}

	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: decode image: %w", domain.ErrTransformFailed, err)
	}

	var out image.Image
	switch t := t.(type) {
	case domain.Crop:
		b := img.Bounds()
		if !t.WithinBounds(b.Dx(), b.Dy()) {
			return nil, fmt.Errorf("%w: crop %dx%d+%d+%d exceeds image %dx%d",
				domain.ErrInvalidInput, t.Width, t.Height, t.X, t.Y, b.Dx(), b.Dy())
		}
		out = crop(img, t)
	case domain.Rotate:
		out = rotate(img, t.Degrees)
	case domain.Resize:
		out = e.resize(img, t)
	case domain.Flip:
		out = flip(img, t.Direction)
	default:
		return nil, fmt.Errorf("%w: unsupported transform %q", domain.ErrInvalidInput, t.Kind())
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransformFailed, err)
	}

	data, outFormat, err := encode(out, format)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %w", domain.ErrTransformFailed, format, err)
	}

	b := out.Bounds()
	return &domain.Rendered{
		Data:   data,
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: outFormat,
	}, nil
}

// Probe implements domain.TransformEngine.
func (e *Engine) Probe(data []byte) (width, height int, format string, err error) {
	return Probe(data)
}

// Probe reads only the image header and reports its dimensions and format.
// Images larger than MaxPixels are rejected with ErrInvalidInput.
func Probe(data []byte) (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("%w: decode image header: %w", domain.ErrTransformFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxPixels/cfg.Height {
		return 0, 0, "", fmt.Errorf("%w: image %dx%d exceeds %d pixels",
			domain.ErrInvalidInput, cfg.Width, cfg.Height, MaxPixels)
	}
	return cfg.Width, cfg.Height, format, nil
}

func encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		format = "png"
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), format, nil
}
