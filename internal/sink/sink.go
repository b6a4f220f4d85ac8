// Package sink stores encoded tiles: as a {z}/{x}/{y} directory tree, as a
// zstd-compressed tar archive, or in a bbolt database.
package sink

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/kiesman99/pyramid/pkg/tile"
)

// Kind selects a tile store implementation.
type Kind string

const (
	KindDir     Kind = "dir"
	KindArchive Kind = "archive"
	KindBolt    Kind = "bolt"
)

// File names used inside the destination directory.
const (
	ArchiveName = "tiles.tar.zst"
	BoltName    = "tiles.db"
)

// ParseKind validates a store name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindDir, nil
	case KindDir, KindArchive, KindBolt:
		return k, nil
	default:
		return KindDir, fmt.Errorf("unknown store: %s", s)
	}
}

// Stats counts what a sink has written so far.
type Stats struct {
	Tiles int64
	Bytes int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%s tiles, %s", humanize.Comma(s.Tiles), humanize.Bytes(uint64(s.Bytes)))
}

type counter struct {
	tiles atomic.Int64
	bytes atomic.Int64
}

func (c *counter) add(n int) {
	c.tiles.Add(1)
	c.bytes.Add(int64(n))
}

func (c *counter) stats() Stats {
	return Stats{Tiles: c.tiles.Load(), Bytes: c.bytes.Load()}
}

// Writer is a tile sink that reports progress and must be closed.
type Writer interface {
	tile.Sink
	io.Closer
	Stats() Stats
	// Location is the path tiles end up in.
	Location() string
}

// Create opens a writer of the given kind inside the destination directory.
func Create(kind Kind, destination string, p *tile.Processor) (Writer, error) {
	switch kind {
	case KindDir:
		return NewDir(destination, p), nil
	case KindArchive:
		return CreateArchive(filepath.Join(destination, ArchiveName), p)
	case KindBolt:
		return OpenBolt(filepath.Join(destination, BoltName), p)
	default:
		return nil, fmt.Errorf("unknown store: %s", kind)
	}
}

// OpenStore opens an existing pyramid for reading. The archive kind cannot be
// served.
func OpenStore(kind Kind, destination string, format tile.Format) (tile.Store, io.Closer, error) {
	switch kind {
	case KindDir:
		d := NewDir(destination, tile.NewProcessor(format, 0))
		return d, d, nil
	case KindBolt:
		b, err := OpenBoltReadOnly(filepath.Join(destination, BoltName))
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("store %s cannot be served", kind)
	}
}
