package domain

import (
	"context"
)

// FileStore abstracts raw file byte storage.
// Keys are slash-separated paths (directory + file name of a Location).
// Save must refuse to overwrite an existing key so rendered editions
// are never truncated by a later write.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Rendered is the output of a single transform invocation.
type Rendered struct {
	Data   []byte
	Width  int
	Height int
	Format string // "jpeg", "png", "gif", "bmp", "tiff"
}

// TransformEngine wraps the pixel-transform implementation. Implementations
// are stateless: the output depends only on src and t.
type TransformEngine interface {
	Apply(ctx context.Context, src []byte, t Transform) (*Rendered, error)
	// Probe reads the dimensions and format from an image header. It fails
	// for anything that is not a decodable raster image, and with
	// ErrInvalidInput for an image too large to decode.
	Probe(data []byte) (width, height int, format string, err error)
}

// ContentTypeForFormat maps an image format name to its MIME type.
func ContentTypeForFormat(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// ExtensionForFormat returns the file extension used for a rendered format,
// or "" when the format is unknown.
func ExtensionForFormat(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "png", "gif", "bmp", "tiff", "webp":
		return "." + format
	default:
		return ""
	}
}
