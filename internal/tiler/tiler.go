// Package tiler runs a complete tiling job: it opens the source image,
// renders the pyramid into the configured store and writes the manifest.
package tiler

import (
	"context"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/kiesman99/pyramid/internal/pyramid"
	"github.com/kiesman99/pyramid/internal/sink"
	"github.com/kiesman99/pyramid/pkg/tile"
)

// Tiler handles one tiling run
type Tiler struct {
	config    Config
	logger    logrus.FieldLogger
	processor *tile.Processor
}

// New creates a tiler for a validated configuration.
func New(cfg Config, logger logrus.FieldLogger) *Tiler {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &Tiler{
		config:    cfg,
		logger:    logger,
		processor: tile.NewProcessor(cfg.Format, cfg.Quality),
	}
}

// Run decodes the source image and builds its pyramid.
func (t *Tiler) Run(ctx context.Context) (*pyramid.Result, error) {
	src, err := t.processor.Open(t.config.Source)
	if err != nil {
		return nil, err
	}
	return t.Tile(ctx, src)
}

// Tile builds the pyramid of an already decoded source image.
func (t *Tiler) Tile(ctx context.Context, src image.Image) (*pyramid.Result, error) {
	builder, err := pyramid.NewBuilder(t.config.Pyramid, LogObserver(t.logger))
	if err != nil {
		return nil, err
	}

	w, err := sink.Create(t.config.Store, t.config.Destination, t.processor)
	if err != nil {
		return nil, err
	}

	res, err := builder.Build(ctx, src, w)
	if cerr := w.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s store: %w", t.config.Store, cerr)
	}
	if err != nil {
		return res, err
	}

	if len(res.Levels) == 0 {
		t.logger.WithField("source", dims(res.Source.X, res.Source.Y)).
			Warn("Source image is too small for any zoom level, no tiles written")
	}
	t.logger.WithFields(logrus.Fields{
		"store":    t.config.Store,
		"location": w.Location(),
		"written":  w.Stats().String(),
	}).Info("Tiles stored")

	if t.config.Manifest {
		m, err := NewManifest(t.config, res)
		if err != nil {
			return res, err
		}
		if err := WriteManifest(t.config.Destination, m); err != nil {
			return res, fmt.Errorf("failed to write manifest: %w", err)
		}
	}
	return res, nil
}
