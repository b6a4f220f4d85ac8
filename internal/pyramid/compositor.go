package pyramid

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CenterOffset returns the top-left position that centers a w x h image on a
// square canvas. Odd remainders put the extra pixel on the right/bottom.
func CenterOffset(canvasSize, w, h int) image.Point {
	return image.Pt((canvasSize-w)/2, (canvasSize-h)/2)
}

// Compose returns a canvasSize x canvasSize image filled with background with
// scaled pasted at its center.
func Compose(scaled image.Image, canvasSize int, background color.NRGBA) *image.NRGBA {
	canvas := imaging.New(canvasSize, canvasSize, background)
	b := scaled.Bounds()
	pos := CenterOffset(canvasSize, b.Dx(), b.Dy())

	// Over a fully transparent canvas, compositing is a plain copy.
	if background.A == 0 {
		return imaging.Paste(canvas, scaled, pos)
	}
	return imaging.Overlay(canvas, scaled, pos, 1.0)
}
