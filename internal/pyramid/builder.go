package pyramid

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Result summarizes a finished build
type Result struct {
	Source     image.Point
	Levels     []int // rendered, highest first
	Skipped    []int // dropped by the degradation guard, highest first
	Tiles      int
	Background color.NRGBA
	Elapsed    time.Duration
}

// MaxLevel returns the highest rendered zoom level, or -1 if nothing was rendered.
func (r *Result) MaxLevel() int {
	if len(r.Levels) == 0 {
		return -1
	}
	return r.Levels[0]
}

// Builder renders every level of a pyramid from one source image
type Builder struct {
	options  tile.PyramidOptions
	observer tile.Observer
	grid     *Grid
}

// NewBuilder validates opts and returns a builder. observer may be nil.
func NewBuilder(opts tile.PyramidOptions, observer tile.Observer) (*Builder, error) {
	if opts.TileSize <= 0 {
		return nil, fmt.Errorf("tile size must be positive, got %d", opts.TileSize)
	}
	if opts.MaxZoom < 0 || opts.MaxZoom > tile.MaxZoom {
		return nil, fmt.Errorf("zoom must be between 0 and %d, got %d", tile.MaxZoom, opts.MaxZoom)
	}
	if _, err := tile.ParseResample(string(opts.Resample)); err != nil {
		return nil, err
	}

	return &Builder{
		options:  opts,
		observer: observer,
		grid: &Grid{
			Workers:  opts.Workers,
			Observer: observer,
		},
	}, nil
}

// Options returns the builder configuration.
func (b *Builder) Options() tile.PyramidOptions {
	return b.options
}

// Build renders the pyramid for src into sink. src is only read. Any level
// failure aborts the whole build.
func (b *Builder) Build(ctx context.Context, src image.Image, sink tile.Sink) (*Result, error) {
	start := time.Now()
	size := src.Bounds().Size()
	tileSize := b.options.TileSize

	result := &Result{
		Source:     size,
		Background: b.options.Background.Resolve(src),
	}
	for z := b.options.MaxZoom; z >= 0; z-- {
		if Supported(size.X, size.Y, tileSize, z) {
			break
		}
		result.Skipped = append(result.Skipped, z)
	}
	result.Levels = PlanLevels(size.X, size.Y, tileSize, b.options.MaxZoom)

	b.observer.Notify(tile.Event{
		Kind:   tile.EventBuildStarted,
		Zoom:   b.options.MaxZoom,
		Source: size,
	})
	for _, z := range result.Skipped {
		b.observer.Notify(tile.Event{
			Kind:       tile.EventLevelSkipped,
			Zoom:       z,
			Source:     size,
			CanvasSize: tile.CanvasSize(tileSize, z),
			Ratio:      Ratio(size.X, size.Y, tileSize, z),
		})
	}

	filter := b.options.Resample.Filter()
	for _, z := range result.Levels {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		levelStart := time.Now()
		canvasSize := tile.CanvasSize(tileSize, z)
		b.observer.Notify(tile.Event{
			Kind:       tile.EventLevelStarted,
			Zoom:       z,
			Source:     size,
			CanvasSize: canvasSize,
			Ratio:      Ratio(size.X, size.Y, tileSize, z),
		})

		scaled := ScaleToFit(src, canvasSize, filter)
		canvas := Compose(scaled, canvasSize, result.Background)

		n, err := b.grid.Slice(ctx, canvas, z, tileSize, sink)
		result.Tiles += n
		if err != nil {
			return result, fmt.Errorf("zoom level %d: %w", z, err)
		}

		b.observer.Notify(tile.Event{
			Kind:       tile.EventLevelCompleted,
			Zoom:       z,
			CanvasSize: canvasSize,
			Tiles:      n,
			Elapsed:    time.Since(levelStart),
		})
	}

	result.Elapsed = time.Since(start)
	b.observer.Notify(tile.Event{
		Kind:    tile.EventBuildCompleted,
		Zoom:    result.MaxLevel(),
		Source:  size,
		Tiles:   result.Tiles,
		Elapsed: result.Elapsed,
	})
	return result, nil
}
