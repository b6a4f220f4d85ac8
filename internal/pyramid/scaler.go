package pyramid

import (
	"image"

	"github.com/disintegration/imaging"
)

// ScaleToFit shrinks img so its longer side equals maxDimension, keeping the
// aspect ratio. Images that already fit are copied, never enlarged. The input
// is not modified.
func ScaleToFit(img image.Image, maxDimension int, filter imaging.ResampleFilter) *image.NRGBA {
	return imaging.Fit(img, maxDimension, maxDimension, filter)
}
