package tile

import (
	"image"
	"image/color"
	"testing"
)

func TestParseBackground(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    Background
		wantStr string
		wantErr bool
	}{
		{name: "empty", input: "", want: Transparent(), wantStr: "transparent"},
		{name: "transparent", input: "transparent", want: Transparent(), wantStr: "transparent"},
		{name: "auto", input: "AUTO", want: Background{Auto: true}, wantStr: "auto"},
		{name: "short hex", input: "#f00", want: Solid(color.NRGBA{R: 0xff, A: 0xff}), wantStr: "#ff0000"},
		{name: "long hex", input: "#102030", want: Solid(color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}), wantStr: "#102030"},
		{name: "no hash", input: "ffffff", want: Solid(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}), wantStr: "#ffffff"},
		{name: "with alpha", input: "#10203080", want: Background{Color: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x80}}, wantStr: "#10203080"},
		{name: "garbage", input: "#zzzzzz", wantErr: true},
		{name: "bad alpha", input: "#102030zz", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBackground(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %+v", tc.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("Expected %+v, got %+v", tc.want, got)
			}
			if got.String() != tc.wantStr {
				t.Errorf("Expected string %s, got %s", tc.wantStr, got.String())
			}
		})
	}
}

func TestBackgroundResolve(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i] = 0x20
		src.Pix[i+1] = 0xc0
		src.Pix[i+2] = 0x40
		src.Pix[i+3] = 0xff
	}

	solid := Solid(color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	if got := solid.Resolve(src); got != solid.Color {
		t.Errorf("Expected %v, got %v", solid.Color, got)
	}

	got := Background{Auto: true}.Resolve(src)
	if got.A != 0xff {
		t.Errorf("Expected opaque dominant color, got alpha %d", got.A)
	}
	if got.G < 0x80 || got.R > 0x80 {
		t.Errorf("Expected a green dominant color, got %v", got)
	}
}
