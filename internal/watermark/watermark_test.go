package watermark

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/fogleman/gg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextPosition(t *testing.T) {
	const (
		imgW  = 200.0
		imgH  = 100.0
		textW = 40.0
		textH = 10.0
	)

	tests := []struct {
		anchor string
		x, y   float64
	}{
		{"nw", 5, 5},
		{"n", 80, 5},
		{"ne", 155, 5},
		{"w", 5, 45},
		{"c", 80, 45},
		{"e", 155, 45},
		{"sw", 5, 85},
		{"s", 80, 85},
		{"se", 155, 85},
	}

	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			x, y := textPosition(tt.anchor, imgW, imgH, textW, textH)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestAlignFor(t *testing.T) {
	assert.Equal(t, gg.AlignCenter, alignFor("n"))
	assert.Equal(t, gg.AlignCenter, alignFor("s"))
	assert.Equal(t, gg.AlignRight, alignFor("e"))
	assert.Equal(t, gg.AlignRight, alignFor("ne"))
	assert.Equal(t, gg.AlignRight, alignFor("se"))
	assert.Equal(t, gg.AlignLeft, alignFor("nw"))
	assert.Equal(t, gg.AlignLeft, alignFor("w"))
	assert.Equal(t, gg.AlignLeft, alignFor("sw"))
	assert.Equal(t, gg.AlignLeft, alignFor("c"))
}

func testFontPath(t *testing.T) string {
	t.Helper()
	candidates := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/Library/Fonts/Arial.ttf",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	t.Skip("no TTF font available")
	return ""
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRender_KeepsDimensions(t *testing.T) {
	fontPath := testFontPath(t)
	src := testImage(t, 320, 240)

	out, err := Render(src, "promo", Options{FontPath: fontPath})
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())
}

func TestRender_DrawsInk(t *testing.T) {
	fontPath := testFontPath(t)
	src := testImage(t, 320, 240)

	out, err := Render(src, "promo", Options{FontPath: fontPath, Anchor: "c", AlphaPercent: 100})
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	// A fully opaque overlay must darken at least one pixel of the white
	// source.
	darkened := false
	bounds := img.Bounds()
	for x := bounds.Min.X; x < bounds.Max.X && !darkened; x++ {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r < 0xffff || g < 0xffff || b < 0xffff {
				darkened = true
				break
			}
		}
	}
	assert.True(t, darkened)
}

func TestRender_BadInputs(t *testing.T) {
	fontPath := testFontPath(t)

	_, err := Render([]byte("not an image"), "promo", Options{FontPath: fontPath})
	assert.Error(t, err)

	_, err = Render(testImage(t, 10, 10), "promo", Options{FontPath: "/nonexistent.ttf"})
	assert.Error(t, err)
}
