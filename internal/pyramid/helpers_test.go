package pyramid

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/paulmach/orb/maptile"
)

// recordingSink keeps every tile it receives.
type recordingSink struct {
	mu    sync.Mutex
	tiles map[maptile.Tile]image.Image
	puts  int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{tiles: make(map[maptile.Tile]image.Image)}
}

func (s *recordingSink) Put(ctx context.Context, t maptile.Tile, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	s.tiles[t] = img
	return nil
}

// coordinateCanvas returns a size x size image whose pixel (x, y) has R=x and
// G=y, so every pixel of a crop tells where it came from. size must be <= 256.
func coordinateCanvas(size int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), A: 0xff})
		}
	}
	return img
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// gradientImage is an opaque test source with some structure for resampling.
func gradientImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x ^ y) & 0xff), A: 0xff})
		}
	}
	return img
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}
