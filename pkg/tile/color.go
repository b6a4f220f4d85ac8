package tile

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
)

// Background is the flat fill behind the centered source image. With Auto set
// the fill is the dominant color of the source.
type Background struct {
	Auto  bool
	Color color.NRGBA
}

// Transparent returns a fully transparent background.
func Transparent() Background {
	return Background{}
}

// Solid returns a background filled with c.
func Solid(c color.Color) Background {
	return Background{Color: color.NRGBAModel.Convert(c).(color.NRGBA)}
}

// ParseBackground parses "transparent", "auto", or a hex color in one of the
// forms #rgb, #rrggbb or #rrggbbaa. The leading '#' is optional.
func ParseBackground(s string) (Background, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "transparent", "none":
		return Transparent(), nil
	case "auto", "dominant":
		return Background{Auto: true}, nil
	}

	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}

	alpha := uint64(0xff)
	if len(s) == 9 {
		a, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return Background{}, fmt.Errorf("invalid background alpha %q: %w", s[7:], err)
		}
		alpha = a
		s = s[:7]
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return Background{}, fmt.Errorf("invalid background color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return Background{Color: color.NRGBA{R: r, G: g, B: b, A: uint8(alpha)}}, nil
}

// Resolve returns the fill color for src.
func (b Background) Resolve(src image.Image) color.NRGBA {
	if !b.Auto {
		return b.Color
	}
	c := color.NRGBAModel.Convert(dominantcolor.Find(src)).(color.NRGBA)
	c.A = 0xff
	return c
}

func (b Background) String() string {
	switch {
	case b.Auto:
		return "auto"
	case b.Color.A == 0:
		return "transparent"
	case b.Color.A == 0xff:
		return fmt.Sprintf("#%02x%02x%02x", b.Color.R, b.Color.G, b.Color.B)
	default:
		return fmt.Sprintf("#%02x%02x%02x%02x", b.Color.R, b.Color.G, b.Color.B, b.Color.A)
	}
}
