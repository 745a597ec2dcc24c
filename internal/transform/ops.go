package transform

import (
	"image"

	"github.com/msomdec/gallery/internal/domain"
	"golang.org/x/image/draw"
)

// toNRGBA copies img into a zero-origin NRGBA buffer.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func crop(img image.Image, c domain.Crop) image.Image {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(dst, dst.Bounds(), img, image.Pt(b.Min.X+c.X, b.Min.Y+c.Y), draw.Src)
	return dst
}

// rotate turns the image clockwise by a multiple of 90 degrees.
func rotate(img image.Image, degrees int) image.Image {
	src := toNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()

	var dst *image.NRGBA
	var mapPt func(x, y int) (int, int)
	switch degrees {
	case 90:
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
		mapPt = func(x, y int) (int, int) { return h - 1 - y, x }
	case 180:
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
		mapPt = func(x, y int) (int, int) { return w - 1 - x, h - 1 - y }
	case 270:
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
		mapPt = func(x, y int) (int, int) { return y, w - 1 - x }
	default:
		return src
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := mapPt(x, y)
			copyPixel(dst, dx, dy, src, x, y)
		}
	}
	return dst
}

func flip(img image.Image, dir domain.FlipDirection) image.Image {
	src := toNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(src.Rect)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if dir == domain.FlipHorizontal {
				copyPixel(dst, w-1-x, y, src, x, y)
			} else {
				copyPixel(dst, x, h-1-y, src, x, y)
			}
		}
	}
	return dst
}

func copyPixel(dst *image.NRGBA, dx, dy int, src *image.NRGBA, sx, sy int) {
	si := src.PixOffset(sx, sy)
	di := dst.PixOffset(dx, dy)
	copy(dst.Pix[di:di+4], src.Pix[si:si+4])
}

// resize never enlarges: the requested box is clamped to the source size
// before the fit is applied.
func (e *Engine) resize(img image.Image, r domain.Resize) image.Image {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	boxW, boxH := min(r.Width, srcW), min(r.Height, srcH)

	switch r.Fit {
	case domain.FitFill:
		return e.scale(img, b, boxW, boxH)

	case domain.FitCover:
		// Largest centred region of the source with the box's aspect ratio.
		cropW, cropH := srcW, srcW*boxH/boxW
		if cropH > srcH {
			cropW, cropH = srcH*boxW/boxH, srcH
		}
		cropW, cropH = max(cropW, 1), max(cropH, 1)
		x0 := b.Min.X + (srcW-cropW)/2
		y0 := b.Min.Y + (srcH-cropH)/2
		return e.scale(img, image.Rect(x0, y0, x0+cropW, y0+cropH), boxW, boxH)

	case domain.FitContain:
		w, h := fitInside(srcW, srcH, r.Width, r.Height)
		scaled := e.scale(img, b, w, h)
		canvas := image.NewNRGBA(image.Rect(0, 0, max(boxW, w), max(boxH, h)))
		off := image.Pt((canvas.Rect.Dx()-w)/2, (canvas.Rect.Dy()-h)/2)
		draw.Draw(canvas, image.Rectangle{Min: off, Max: off.Add(image.Pt(w, h))}, scaled, image.Point{}, draw.Src)
		return canvas

	default: // domain.FitInside
		w, h := fitInside(srcW, srcH, r.Width, r.Height)
		return e.scale(img, b, w, h)
	}
}

func (e *Engine) scale(img image.Image, from image.Rectangle, w, h int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	e.scaler.Scale(dst, dst.Bounds(), img, from, draw.Src, nil)
	return dst
}

// fitInside returns the largest size with the source aspect ratio that fits
// the box and does not exceed the source.
func fitInside(srcW, srcH, boxW, boxH int) (int, int) {
	scale := min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH), 1)
	w := max(int(float64(srcW)*scale+0.5), 1)
	h := max(int(float64(srcH)*scale+0.5), 1)
	return w, h
}
