package sink

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/paulmach/orb/maptile"
	"go.etcd.io/bbolt"

	"github.com/kiesman99/pyramid/pkg/tile"
)

var tilesBucket = []byte("tiles")

// Bolt keeps encoded tiles in a bbolt database under the key "z/x/y".
// Concurrent puts are coalesced with bbolt's batch transactions.
type Bolt struct {
	db        *bbolt.DB
	processor *tile.Processor
	counter   counter
}

// OpenBolt opens or creates the database at path for writing.
func OpenBolt(path string, p *tile.Processor) (*Bolt, error) {
	db, err := bbolt.Open(path, 0660, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open tile database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tilesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db, processor: p}, nil
}

// OpenBoltReadOnly opens an existing database for serving.
func OpenBoltReadOnly(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open tile database: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Key returns the database key of a tile.
func Key(t maptile.Tile) []byte {
	return []byte(fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y))
}

func (b *Bolt) Put(ctx context.Context, t maptile.Tile, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.processor == nil {
		return fmt.Errorf("tile database is read-only")
	}
	data, err := b.processor.EncodeBytes(img)
	if err != nil {
		return fmt.Errorf("failed to encode tile: %w", err)
	}

	err = b.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(tilesBucket).Put(Key(t), data)
	})
	if err != nil {
		return err
	}
	b.counter.add(len(data))
	return nil
}

func (b *Bolt) Get(ctx context.Context, t maptile.Tile) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(tilesBucket)
		if bucket == nil {
			return tile.ErrTileNotFound
		}
		v := bucket.Get(Key(t))
		if v == nil {
			return tile.ErrTileNotFound
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

func (b *Bolt) Stats() Stats { return b.counter.stats() }

func (b *Bolt) Location() string { return b.db.Path() }

func (b *Bolt) Close() error { return b.db.Close() }
