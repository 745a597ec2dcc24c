package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/msomdec/gallery/internal/domain"
)

func TestTransformValidate(t *testing.T) {
	tests := []struct {
		name    string
		t       domain.Transform
		wantErr bool
	}{
		{"crop ok", domain.Crop{X: 0, Y: 0, Width: 10, Height: 10}, false},
		{"crop zero width", domain.Crop{Width: 0, Height: 10}, true},
		{"crop negative offset", domain.Crop{X: -1, Width: 10, Height: 10}, true},
		{"rotate 90", domain.Rotate{Degrees: 90}, false},
		{"rotate 270", domain.Rotate{Degrees: 270}, false},
		{"rotate 45", domain.Rotate{Degrees: 45}, true},
		{"rotate 360", domain.Rotate{Degrees: 360}, true},
		{"resize cover", domain.Resize{Width: 10, Height: 10, Fit: domain.FitCover}, false},
		{"resize bad fit", domain.Resize{Width: 10, Height: 10, Fit: "stretch"}, true},
		{"resize zero", domain.Resize{Width: 0, Height: 10, Fit: domain.FitFill}, true},
		{"flip vertical", domain.Flip{Direction: domain.FlipVertical}, false},
		{"flip diagonal", domain.Flip{Direction: "diagonal"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.t.Validate()
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCropWithinBounds(t *testing.T) {
	c := domain.Crop{X: 10, Y: 10, Width: 90, Height: 40}
	if !c.WithinBounds(100, 50) {
		t.Fatal("crop touching the edges should fit")
	}
	if c.WithinBounds(99, 50) {
		t.Fatal("crop one pixel past the right edge should not fit")
	}

	huge := []domain.Crop{
		{X: 1, Width: math.MaxInt, Height: 10},
		{Y: 1, Width: 10, Height: math.MaxInt},
		{X: math.MaxInt, Width: 1, Height: 1},
		{X: 200, Width: 1, Height: 1},
	}
	for _, c := range huge {
		if err := c.Validate(); err != nil {
			t.Fatalf("Validate(%+v): %v", c, err)
		}
		if c.WithinBounds(100, 100) {
			t.Fatalf("%+v should not fit 100x100", c)
		}
	}
}

func TestFormatMappings(t *testing.T) {
	if got := domain.ExtensionForFormat("jpeg"); got != ".jpg" {
		t.Fatalf("jpeg extension: got %q", got)
	}
	if got := domain.ExtensionForFormat("mp4"); got != "" {
		t.Fatalf("unknown extension: got %q", got)
	}
	if got := domain.ContentTypeForFormat("tiff"); got != "image/tiff" {
		t.Fatalf("tiff content type: got %q", got)
	}
}

func TestLocationKey(t *testing.T) {
	loc := domain.Location{Directory: "originals/a1/versions/a1", FileName: "beach_v2.jpg"}
	if got := loc.Key(); got != "originals/a1/versions/a1/beach_v2.jpg" {
		t.Fatalf("Key() = %q", got)
	}
}
