package tile

import (
	"errors"
	"fmt"
)

// ErrTileNotFound is returned by a Store when no tile exists at an address.
var ErrTileNotFound = errors.New("tile not found")

// InvalidDestinationError reports a destination that is missing or is not a directory
type InvalidDestinationError struct {
	Path   string
	Reason string
}

func (e *InvalidDestinationError) Error() string {
	return fmt.Sprintf("invalid destination %q: %s", e.Path, e.Reason)
}

// DimensionMismatchError is returned when a canvas handed to the tile grid is
// not exactly TileSize*2^Zoom pixels square.
type DimensionMismatchError struct {
	Zoom     int
	TileSize int
	Width    int
	Height   int
}

func (e *DimensionMismatchError) Error() string {
	want := CanvasSize(e.TileSize, e.Zoom)
	return fmt.Sprintf("canvas %dx%d does not match zoom %d (want %dx%d)",
		e.Width, e.Height, e.Zoom, want, want)
}
