package tiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/kiesman99/pyramid/internal/pyramid"
)

// ManifestName is the file the manifest is written to inside the destination.
const ManifestName = "pyramid.json"

// Dimensions is a width/height pair
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Manifest describes a generated pyramid so viewers and the tile server know
// what levels exist.
type Manifest struct {
	TileSize      int        `json:"tile_size"`
	Format        string     `json:"format"`
	Store         string     `json:"store"`
	RequestedZoom int        `json:"requested_zoom"`
	MinZoom       int        `json:"min_zoom"`
	MaxZoom       int        `json:"max_zoom"`
	Levels        []int      `json:"levels"`
	Skipped       []int      `json:"skipped,omitempty"`
	Source        Dimensions `json:"source"`
	Background    string     `json:"background"`
	Tiles         int        `json:"tiles"`
	CreatedAt     time.Time  `json:"created_at" hash:"ignore"`
	// Fingerprint changes whenever the pyramid's content would change.
	Fingerprint string `json:"fingerprint" hash:"ignore"`
}

// NewManifest describes the result of a run of cfg.
func NewManifest(cfg Config, res *pyramid.Result) (*Manifest, error) {
	m := &Manifest{
		TileSize:      cfg.Pyramid.TileSize,
		Format:        cfg.Format.String(),
		Store:         string(cfg.Store),
		RequestedZoom: cfg.Pyramid.MaxZoom,
		MinZoom:       -1,
		MaxZoom:       res.MaxLevel(),
		Levels:        res.Levels,
		Skipped:       res.Skipped,
		Source:        Dimensions{Width: res.Source.X, Height: res.Source.Y},
		Background:    backgroundString(res),
		Tiles:         res.Tiles,
		CreatedAt:     time.Now().UTC(),
	}
	if len(res.Levels) > 0 {
		m.MinZoom = res.Levels[len(res.Levels)-1]
	}

	hash, err := hashstructure.Hash(struct {
		Manifest *Manifest
		Resample string
	}{m, string(cfg.Pyramid.Resample)}, hashstructure.FormatV2, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint manifest: %w", err)
	}
	m.Fingerprint = fmt.Sprintf("%016x", hash)
	return m, nil
}

func backgroundString(res *pyramid.Result) string {
	c := res.Background
	if c.A == 0 {
		return "transparent"
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// WriteManifest writes m to dir/pyramid.json.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), append(data, '\n'), 0o644)
}

// ReadManifest loads dir/pyramid.json.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}
