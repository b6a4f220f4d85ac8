package sink

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/paulmach/orb/maptile"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Dir writes tiles to root/{z}/{x}/{y}.{ext}. Distinct tiles never share a
// file, so Put needs no locking.
type Dir struct {
	root      string
	processor *tile.Processor
	counter   counter
}

// NewDir returns a directory sink rooted at root. root must already exist.
func NewDir(root string, p *tile.Processor) *Dir {
	return &Dir{root: root, processor: p}
}

// Path returns the file a tile is stored in.
func (d *Dir) Path(t maptile.Tile) string {
	return filepath.Join(d.root,
		strconv.FormatUint(uint64(t.Z), 10),
		strconv.FormatUint(uint64(t.X), 10),
		strconv.FormatUint(uint64(t.Y), 10)+"."+d.processor.Format().Ext())
}

func (d *Dir) Put(ctx context.Context, t maptile.Tile, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := d.processor.EncodeBytes(img)
	if err != nil {
		return fmt.Errorf("failed to encode tile: %w", err)
	}

	path := d.Path(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	d.counter.add(len(data))
	return nil
}

func (d *Dir) Get(ctx context.Context, t maptile.Tile) ([]byte, error) {
	if !tile.Valid(t) {
		return nil, tile.ErrTileNotFound
	}
	data, err := os.ReadFile(d.Path(t))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, tile.ErrTileNotFound
	}
	return data, err
}

func (d *Dir) Stats() Stats { return d.counter.stats() }

func (d *Dir) Location() string { return d.root }

func (d *Dir) Close() error { return nil }
