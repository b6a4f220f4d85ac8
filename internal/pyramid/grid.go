package pyramid

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Grid cuts a level canvas into tiles and hands them to a sink
type Grid struct {
	// Workers bounds the number of tiles cropped and written at once.
	Workers  int
	Observer tile.Observer
}

func (g *Grid) workers() int {
	if g == nil || g.Workers <= 0 {
		return runtime.NumCPU()
	}
	return g.Workers
}

// Slice partitions canvas into 2^zoom x 2^zoom tiles of tileSize pixels and
// puts each one into sink. The canvas must be exactly tileSize*2^zoom square;
// at zoom 0 any canvas becomes a single tile. It returns the number of tiles
// written. The first error cancels the remaining tiles.
func (g *Grid) Slice(ctx context.Context, canvas image.Image, zoom, tileSize int, sink tile.Sink) (int, error) {
	bounds := canvas.Bounds()
	if zoom != 0 {
		want := tile.CanvasSize(tileSize, zoom)
		if bounds.Dx() != want || bounds.Dy() != want {
			return 0, &tile.DimensionMismatchError{
				Zoom:     zoom,
				TileSize: tileSize,
				Width:    bounds.Dx(),
				Height:   bounds.Dy(),
			}
		}
	}

	var observer tile.Observer
	if g != nil {
		observer = g.Observer
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers())

	var written atomic.Int64
	n := tile.GridSize(zoom)

schedule:
	for col := 0; col < n; col++ {
		for row := 0; row < n; row++ {
			if egctx.Err() != nil {
				break schedule
			}

			rect := bounds
			if zoom != 0 {
				rect = image.Rect(col*tileSize, row*tileSize, (col+1)*tileSize, (row+1)*tileSize).
					Add(bounds.Min)
			}
			addr := tile.At(zoom, col, row)

			eg.Go(func() error {
				if err := egctx.Err(); err != nil {
					return err
				}
				img := imaging.Crop(canvas, rect)
				if err := sink.Put(egctx, addr, img); err != nil {
					return fmt.Errorf("failed to put tile %d/%d/%d: %w", addr.Z, addr.X, addr.Y, err)
				}
				written.Add(1)
				observer.Notify(tile.Event{Kind: tile.EventTileWritten, Zoom: zoom, Tile: addr})
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return int(written.Load()), err
	}
	// A cancellation that arrived between scheduling and Wait leaves tiles unwritten.
	if err := ctx.Err(); err != nil {
		return int(written.Load()), err
	}
	return int(written.Load()), nil
}
