package tiler

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mitchellh/go-homedir"

	"github.com/kiesman99/pyramid/internal/sink"
	"github.com/kiesman99/pyramid/pkg/tile"
)

// Params holds raw, unvalidated settings as they come from flags, the config
// file or the environment.
type Params struct {
	Source      string
	Destination string
	Zoom        int
	TileSize    int
	Background  string
	Format      string
	Quality     int
	Resample    string
	Workers     int
	Store       string
	Manifest    bool
}

// Config is a validated tiling run. Build it with NewConfig.
type Config struct {
	Source      string
	Destination string
	Store       sink.Kind
	Format      tile.Format
	Quality     int
	Manifest    bool
	Pyramid     tile.PyramidOptions
}

// NewConfig validates p. Every check happens here so nothing is rendered for
// a bad configuration.
func NewConfig(p Params) (Config, error) {
	var cfg Config

	source, err := homedir.Expand(p.Source)
	if err != nil {
		return cfg, fmt.Errorf("invalid source path: %w", err)
	}
	if source == "" {
		return cfg, fmt.Errorf("source image is required")
	}
	info, err := os.Stat(source)
	if err != nil {
		return cfg, fmt.Errorf("invalid source image: %w", err)
	}
	if info.IsDir() {
		return cfg, fmt.Errorf("source image %q is a directory", source)
	}

	destination, err := ValidateDestination(p.Destination)
	if err != nil {
		return cfg, err
	}

	if p.Zoom < 0 || p.Zoom > tile.MaxZoom {
		return cfg, fmt.Errorf("zoom must be between 0 and %d", tile.MaxZoom)
	}
	if p.TileSize <= 0 {
		return cfg, fmt.Errorf("tile size must be positive")
	}

	background, err := tile.ParseBackground(p.Background)
	if err != nil {
		return cfg, err
	}
	format, err := tile.ParseFormat(p.Format)
	if err != nil {
		return cfg, err
	}
	resample, err := tile.ParseResample(p.Resample)
	if err != nil {
		return cfg, err
	}
	store, err := sink.ParseKind(p.Store)
	if err != nil {
		return cfg, err
	}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return Config{
		Source:      source,
		Destination: destination,
		Store:       store,
		Format:      format,
		Quality:     p.Quality,
		Manifest:    p.Manifest,
		Pyramid: tile.PyramidOptions{
			MaxZoom:    p.Zoom,
			TileSize:   p.TileSize,
			Background: background,
			Resample:   resample,
			Workers:    workers,
		},
	}, nil
}

// ValidateDestination expands path and checks that it is an existing
// directory.
func ValidateDestination(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", &tile.InvalidDestinationError{Path: path, Reason: err.Error()}
	}
	if expanded == "" {
		return "", &tile.InvalidDestinationError{Path: path, Reason: "destination is required"}
	}

	info, err := os.Stat(expanded)
	switch {
	case os.IsNotExist(err):
		return "", &tile.InvalidDestinationError{Path: expanded, Reason: "directory does not exist"}
	case err != nil:
		return "", &tile.InvalidDestinationError{Path: expanded, Reason: err.Error()}
	case !info.IsDir():
		return "", &tile.InvalidDestinationError{Path: expanded, Reason: "path is a file, not a directory"}
	}
	return expanded, nil
}
