package tile

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Format is the encoding used for tiles.
type Format int

// Output format constants
const (
	FormatPNG Format = iota
	FormatJPEG
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return FormatPNG, fmt.Errorf("unknown format: %s", s)
	}
}

func (f Format) String() string {
	if f == FormatJPEG {
		return "jpeg"
	}
	return "png"
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// ContentType returns the MIME type of encoded tiles.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Resample names a resampling filter used when shrinking the source.
type Resample string

const (
	ResampleLanczos    Resample = "lanczos"
	ResampleCatmullRom Resample = "catmullrom"
	ResampleLinear     Resample = "linear"
	ResampleBox        Resample = "box"
	ResampleNearest    Resample = "nearest"
)

// ParseResample validates a filter name.
func ParseResample(s string) (Resample, error) {
	r := Resample(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return ResampleLanczos, nil
	}
	if _, ok := resampleFilters[r]; !ok {
		return ResampleLanczos, fmt.Errorf("unknown resample filter: %s", s)
	}
	return r, nil
}

var resampleFilters = map[Resample]imaging.ResampleFilter{
	ResampleLanczos:    imaging.Lanczos,
	ResampleCatmullRom: imaging.CatmullRom,
	ResampleLinear:     imaging.Linear,
	ResampleBox:        imaging.Box,
	ResampleNearest:    imaging.NearestNeighbor,
}

// Filter returns the imaging filter for r, falling back to Lanczos.
func (r Resample) Filter() imaging.ResampleFilter {
	if f, ok := resampleFilters[r]; ok {
		return f
	}
	return imaging.Lanczos
}

// Processor decodes source images and encodes tiles
type Processor struct {
	format  Format
	quality int
}

// NewProcessor creates a new tile processor
func NewProcessor(format Format, quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Processor{
		format:  format,
		quality: quality,
	}
}

// Format returns the tile encoding of the processor.
func (p *Processor) Format() Format {
	return p.format
}

// Open decodes the image file at path. EXIF orientation is applied so the
// pyramid matches what image viewers show.
func (p *Processor) Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open source image: %w", err)
	}
	return img, nil
}

// Decode detects the image format and decodes
func (p *Processor) Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Encode writes img to w in the processor's format.
func (p *Processor) Encode(w io.Writer, img image.Image) error {
	switch p.format {
	case FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(p.quality))
	default:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
	}
}

// EncodeBytes encodes img into a new buffer.
func (p *Processor) EncodeBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
