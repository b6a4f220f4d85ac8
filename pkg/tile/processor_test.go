package tile

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		input   string
		want    Format
		ext     string
		mime    string
		wantErr bool
	}{
		{input: "", want: FormatPNG, ext: "png", mime: "image/png"},
		{input: "PNG", want: FormatPNG, ext: "png", mime: "image/png"},
		{input: "jpg", want: FormatJPEG, ext: "jpg", mime: "image/jpeg"},
		{input: "jpeg", want: FormatJPEG, ext: "jpg", mime: "image/jpeg"},
		{input: "geotiff", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFormat(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.want || got.Ext() != tc.ext || got.ContentType() != tc.mime {
				t.Errorf("Expected %v/%s/%s, got %v/%s/%s", tc.want, tc.ext, tc.mime, got, got.Ext(), got.ContentType())
			}
		})
	}
}

func TestParseResample(t *testing.T) {
	for _, name := range []string{"lanczos", "CatmullRom", "linear", "box", "nearest", ""} {
		if _, err := ParseResample(name); err != nil {
			t.Errorf("Unexpected error for %q: %v", name, err)
		}
	}
	if _, err := ParseResample("bicubic-ish"); err == nil {
		t.Error("Expected error for unknown filter")
	}
}

func TestProcessorEncodeDecode(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, A: 128})

	for _, format := range []Format{FormatPNG, FormatJPEG} {
		t.Run(format.String(), func(t *testing.T) {
			p := NewProcessor(format, 0)
			data, err := p.EncodeBytes(img)
			if err != nil {
				t.Fatalf("Failed to encode: %v", err)
			}

			decoded, err := p.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}
			if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 4 {
				t.Errorf("Expected 8x4, got %v", decoded.Bounds())
			}
		})
	}

	// PNG keeps alpha exactly
	p := NewProcessor(FormatPNG, 0)
	data, _ := p.EncodeBytes(img)
	decoded, _ := p.Decode(bytes.NewReader(data))
	got := color.NRGBAModel.Convert(decoded.At(1, 1)).(color.NRGBA)
	if got != (color.NRGBA{R: 200, A: 128}) {
		t.Errorf("Expected alpha pixel to survive PNG, got %v", got)
	}
}

func TestProcessorDecodeGarbage(t *testing.T) {
	p := NewProcessor(FormatPNG, 0)
	if _, err := p.Decode(strings.NewReader("not an image")); err == nil {
		t.Error("Expected error decoding garbage")
	}
}
