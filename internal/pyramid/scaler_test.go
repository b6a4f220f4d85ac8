package pyramid

import (
	"bytes"
	"testing"

	"github.com/disintegration/imaging"
)

func TestScaleToFit(t *testing.T) {
	testCases := []struct {
		name         string
		w, h         int
		max          int
		wantW, wantH int
	}{
		{name: "landscape shrinks", w: 1000, h: 500, max: 256, wantW: 256, wantH: 128},
		{name: "portrait shrinks", w: 400, h: 800, max: 200, wantW: 100, wantH: 200},
		{name: "square shrinks", w: 512, h: 512, max: 256, wantW: 256, wantH: 256},
		{name: "smaller is not enlarged", w: 100, h: 50, max: 256, wantW: 100, wantH: 50},
		{name: "exact fit is kept", w: 256, h: 100, max: 256, wantW: 256, wantH: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := gradientImage(tc.w, tc.h)
			got := ScaleToFit(src, tc.max, imaging.Lanczos)
			b := got.Bounds()
			if b.Dx() != tc.wantW || b.Dy() != tc.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tc.wantW, tc.wantH, b.Dx(), b.Dy())
			}
			if b.Min.X != 0 || b.Min.Y != 0 {
				t.Errorf("Expected origin at 0,0, got %v", b.Min)
			}
		})
	}
}

func TestScaleToFitNeverUpscales(t *testing.T) {
	for _, size := range [][2]int{{10, 10}, {300, 20}, {20, 300}, {700, 699}} {
		for _, target := range []int{16, 256, 512, 4096} {
			got := ScaleToFit(gradientImage(size[0], size[1]), target, imaging.Box).Bounds()
			if longest := max(got.Dx(), got.Dy()); longest > max(size[0], size[1]) {
				t.Errorf("%v to %d: result %v is larger than the source", size, target, got)
			}
		}
	}
}

func TestScaleToFitLeavesSourceAlone(t *testing.T) {
	src := gradientImage(400, 300)
	before := append([]byte(nil), src.Pix...)

	small := ScaleToFit(src, 100, imaging.Lanczos)
	same := ScaleToFit(src, 1000, imaging.Lanczos)

	if src.Bounds().Dx() != 400 || src.Bounds().Dy() != 300 {
		t.Errorf("Source bounds changed to %v", src.Bounds())
	}
	if !bytes.Equal(before, src.Pix) {
		t.Error("Source pixels changed")
	}
	if small.Bounds().Dx() != 100 {
		t.Errorf("Expected width 100, got %d", small.Bounds().Dx())
	}

	// The unscaled result is a copy, not the source itself.
	same.Pix[0] ^= 0xff
	if src.Pix[0] != before[0] {
		t.Error("Expected an unscaled result to be a copy of the source")
	}
}
