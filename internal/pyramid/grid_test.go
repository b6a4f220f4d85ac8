package pyramid

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/paulmach/orb/maptile"

	"github.com/kiesman99/pyramid/pkg/tile"
)

func TestSliceExactTiling(t *testing.T) {
	const tileSize = 16

	for zoom := 0; zoom <= 3; zoom++ {
		size := tile.CanvasSize(tileSize, zoom)
		canvas := coordinateCanvas(size)
		sink := newRecordingSink()

		n, err := (&Grid{Workers: 4}).Slice(context.Background(), canvas, zoom, tileSize, sink)
		if err != nil {
			t.Fatalf("zoom %d: unexpected error: %v", zoom, err)
		}

		wantTiles := 1 << (2 * zoom)
		if n != wantTiles || len(sink.tiles) != wantTiles || sink.puts != wantTiles {
			t.Fatalf("zoom %d: expected %d tiles, got n=%d unique=%d puts=%d", zoom, wantTiles, n, len(sink.tiles), sink.puts)
		}

		covered := make([]int, size*size)
		for addr, img := range sink.tiles {
			if int(addr.Z) != zoom || !tile.Valid(addr) {
				t.Fatalf("zoom %d: unexpected address %v", zoom, addr)
			}
			b := img.Bounds()
			if b.Dx() != tileSize || b.Dy() != tileSize {
				t.Fatalf("zoom %d: tile %v is %v", zoom, addr, b)
			}

			origin := nrgbaAt(img, b.Min.X, b.Min.Y)
			if int(origin.R) != int(addr.X)*tileSize || int(origin.G) != int(addr.Y)*tileSize {
				t.Errorf("zoom %d: tile %v starts at canvas %d,%d", zoom, addr, origin.R, origin.G)
			}

			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					c := nrgbaAt(img, x, y)
					covered[int(c.G)*size+int(c.R)]++
				}
			}
		}

		for i, count := range covered {
			if count != 1 {
				t.Fatalf("zoom %d: canvas pixel %d,%d covered %d times", zoom, i%size, i/size, count)
			}
		}
	}
}

func TestSliceZeroLevel(t *testing.T) {
	for _, size := range [][2]int{{256, 256}, {300, 200}, {10, 10}} {
		// offset bounds so the crop has to honor Bounds().Min
		canvas := gradientImage(size[0]+10, size[1]+10)
		sub := canvas.SubImage(image.Rect(10, 10, size[0]+10, size[1]+10))
		sink := newRecordingSink()

		n, err := (&Grid{}).Slice(context.Background(), sub, 0, 256, sink)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", size, err)
		}
		if n != 1 || len(sink.tiles) != 1 {
			t.Fatalf("%v: expected one tile, got %d", size, n)
		}

		img, ok := sink.tiles[maptile.New(0, 0, 0)]
		if !ok {
			t.Fatalf("%v: expected tile 0/0/0, got %v", size, sink.tiles)
		}
		if img.Bounds().Dx() != size[0] || img.Bounds().Dy() != size[1] {
			t.Errorf("%v: expected tile to cover the whole canvas, got %v", size, img.Bounds())
		}
	}
}

func TestSliceDimensionMismatch(t *testing.T) {
	sink := newRecordingSink()
	canvas := coordinateCanvas(100)

	_, err := (&Grid{}).Slice(context.Background(), canvas, 1, 64, sink)

	var dm *tile.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("Expected DimensionMismatchError, got %v", err)
	}
	if dm.Zoom != 1 || dm.Width != 100 || dm.TileSize != 64 {
		t.Errorf("Unexpected error fields: %+v", dm)
	}
	if sink.puts != 0 {
		t.Errorf("Expected no tiles written, got %d", sink.puts)
	}
}

func TestSliceSinkError(t *testing.T) {
	boom := errors.New("disk full")
	sink := tile.SinkFunc(func(ctx context.Context, addr maptile.Tile, img image.Image) error {
		if addr.X == 1 && addr.Y == 1 {
			return boom
		}
		return nil
	})

	_, err := (&Grid{Workers: 1}).Slice(context.Background(), coordinateCanvas(32), 1, 16, sink)
	if !errors.Is(err, boom) {
		t.Errorf("Expected sink error, got %v", err)
	}
}

func TestSliceCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := newRecordingSink()

	_, err := (&Grid{}).Slice(ctx, coordinateCanvas(64), 2, 16, sink)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if sink.puts != 0 {
		t.Errorf("Expected no tiles after cancel, got %d", sink.puts)
	}
}
