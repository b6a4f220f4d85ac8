package tile

import (
	"context"
	"image"
	"runtime"

	"github.com/paulmach/orb/maptile"
)

// DefaultTileSize is the edge length of a tile in pixels.
const DefaultTileSize = 256

// MaxZoom is the highest zoom level accepted. Tile coordinates are uint32.
const MaxZoom = 30

// PyramidOptions contains all configuration for building a tile pyramid
type PyramidOptions struct {
	MaxZoom    int
	TileSize   int
	Background Background
	Resample   Resample
	Workers    int
}

// DefaultPyramidOptions returns options for a single-level pyramid with
// 256px transparent tiles.
func DefaultPyramidOptions() PyramidOptions {
	return PyramidOptions{
		MaxZoom:    0,
		TileSize:   DefaultTileSize,
		Background: Transparent(),
		Resample:   ResampleLanczos,
		Workers:    runtime.NumCPU(),
	}
}

// Sink receives every tile of a pyramid. Put may be called concurrently for
// distinct addresses.
type Sink interface {
	Put(ctx context.Context, t maptile.Tile, img image.Image) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, t maptile.Tile, img image.Image) error

func (f SinkFunc) Put(ctx context.Context, t maptile.Tile, img image.Image) error {
	return f(ctx, t, img)
}

// Store serves encoded tiles back by address.
type Store interface {
	Get(ctx context.Context, t maptile.Tile) ([]byte, error)
}

// At returns the address of the tile in the given column and row of a zoom level.
func At(zoom, column, row int) maptile.Tile {
	return maptile.New(uint32(column), uint32(row), maptile.Zoom(zoom))
}

// GridSize returns the number of columns (and rows) at a zoom level.
func GridSize(zoom int) int {
	return 1 << uint(zoom)
}

// CanvasSize returns the edge length of the square canvas for a zoom level.
func CanvasSize(tileSize, zoom int) int {
	return tileSize << uint(zoom)
}

// Valid reports whether t lies inside the grid of its zoom level.
func Valid(t maptile.Tile) bool {
	if int(t.Z) > MaxZoom {
		return false
	}
	n := uint32(GridSize(int(t.Z)))
	return t.X < n && t.Y < n
}
