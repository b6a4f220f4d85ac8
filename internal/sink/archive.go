package sink

import (
	"archive/tar"
	"cmp"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb/maptile"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Archive packs tiles into a zstd-compressed tar. Encoded tiles are held in
// memory and written at Close ordered by zoom, column and row, so identical
// pyramids produce identical archives whatever order the tiles arrive in.
// Entries are named {z}/{x}/{y}.{ext} and carry a fixed modification time.
type Archive struct {
	mu        sync.Mutex
	path      string
	w         io.Writer
	file      *os.File
	entries   map[maptile.Tile][]byte
	processor *tile.Processor
	counter   counter
}

// CreateArchive creates (or truncates) the archive file at path.
func CreateArchive(path string, p *tile.Processor) (*Archive, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	a := NewArchive(f, p)
	a.path = path
	a.file = f
	return a, nil
}

// NewArchive writes the archive to w. Closing the archive does not close w.
func NewArchive(w io.Writer, p *tile.Processor) *Archive {
	return &Archive{
		w:         w,
		entries:   make(map[maptile.Tile][]byte),
		processor: p,
	}
}

// EntryName returns the name of a tile inside the archive.
func (a *Archive) EntryName(t maptile.Tile) string {
	return fmt.Sprintf("%d/%d/%d.%s", t.Z, t.X, t.Y, a.processor.Format().Ext())
}

func (a *Archive) Put(ctx context.Context, t maptile.Tile, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := a.processor.EncodeBytes(img)
	if err != nil {
		return fmt.Errorf("failed to encode tile: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.entries == nil {
		return fmt.Errorf("archive is closed")
	}
	if old, ok := a.entries[t]; ok {
		a.counter.bytes.Add(-int64(len(old)))
		a.counter.tiles.Add(-1)
	}
	a.entries[t] = data
	a.counter.add(len(data))
	return nil
}

func (a *Archive) Stats() Stats { return a.counter.stats() }

func (a *Archive) Location() string { return a.path }

// Close writes the sorted entries, flushes the tar and zstd streams, then
// closes the file if the archive owns one.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.entries == nil {
		return nil
	}
	err := a.writeEntries()
	a.entries = nil
	if a.file != nil {
		if ferr := a.file.Close(); err == nil {
			err = ferr
		}
	}
	return err
}

func (a *Archive) writeEntries() error {
	// Single-threaded encoding keeps the compressed stream reproducible.
	zw, err := zstd.NewWriter(a.w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	tw := tar.NewWriter(zw)

	tiles := make([]maptile.Tile, 0, len(a.entries))
	for t := range a.entries {
		tiles = append(tiles, t)
	}
	slices.SortFunc(tiles, compareTiles)

	for _, t := range tiles {
		data := a.entries[t]
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     a.EntryName(t),
			Mode:     0o644,
			Size:     int64(len(data)),
			ModTime:  time.Unix(0, 0),
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			zw.Close()
			return err
		}
		if _, err := tw.Write(data); err != nil {
			zw.Close()
			return err
		}
	}

	err = tw.Close()
	if zerr := zw.Close(); err == nil {
		err = zerr
	}
	return err
}

// compareTiles orders tiles by zoom, then column, then row.
func compareTiles(a, b maptile.Tile) int {
	if c := cmp.Compare(a.Z, b.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	return cmp.Compare(a.Y, b.Y)
}
