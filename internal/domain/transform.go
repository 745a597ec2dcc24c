package domain

import "fmt"

// EditKind names a transform variant.
type EditKind string

const (
	EditCrop   EditKind = "crop"
	EditRotate EditKind = "rotate"
	EditResize EditKind = "resize"
	EditFlip   EditKind = "flip"
)

// ResizeFit controls how a resize maps the source onto the requested box.
type ResizeFit string

const (
	FitCover   ResizeFit = "cover"
	FitContain ResizeFit = "contain"
	FitFill    ResizeFit = "fill"
	FitInside  ResizeFit = "inside"
)

// FlipDirection is the mirror axis of a flip.
type FlipDirection string

const (
	FlipHorizontal FlipDirection = "horizontal"
	FlipVertical   FlipDirection = "vertical"
)

// Transform is one of Crop, Rotate, Resize or Flip.
type Transform interface {
	Kind() EditKind
	// Validate checks the parameter contract without looking at pixels.
	Validate() error
}

type Crop struct {
	X, Y          int
	Width, Height int
}

type Rotate struct {
	Degrees int
}

type Resize struct {
	Width, Height int
	Fit           ResizeFit
}

type Flip struct {
	Direction FlipDirection
}

func (Crop) Kind() EditKind   { return EditCrop }
func (Rotate) Kind() EditKind { return EditRotate }
func (Resize) Kind() EditKind { return EditResize }
func (Flip) Kind() EditKind   { return EditFlip }

func (c Crop) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: crop width and height must be positive", ErrInvalidInput)
	}
	if c.X < 0 || c.Y < 0 {
		return fmt.Errorf("%w: crop offset must not be negative", ErrInvalidInput)
	}
	return nil
}

// WithinBounds reports whether the crop rectangle fits a width x height source.
func (c Crop) WithinBounds(width, height int) bool {
	return c.X <= width && c.Width <= width-c.X &&
		c.Y <= height && c.Height <= height-c.Y
}

func (r Rotate) Validate() error {
	switch r.Degrees {
	case 90, 180, 270:
		return nil
	}
	return fmt.Errorf("%w: rotation must be 90, 180 or 270 degrees, got %d", ErrInvalidInput, r.Degrees)
}

func (r Resize) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: resize width and height must be positive", ErrInvalidInput)
	}
	switch r.Fit {
	case FitCover, FitContain, FitFill, FitInside:
		return nil
	}
	return fmt.Errorf("%w: unknown resize fit %q", ErrInvalidInput, r.Fit)
}

func (f Flip) Validate() error {
	switch f.Direction {
	case FlipHorizontal, FlipVertical:
		return nil
	}
	return fmt.Errorf("%w: flip direction must be horizontal or vertical, got %q", ErrInvalidInput, f.Direction)
}
