// Package watermark renders a text overlay onto a photo at one of nine
// anchor positions. The font is scaled so the text spans a configurable
// fraction of the image width.
package watermark

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	_ "golang.org/x/image/webp"
)

const (
	defaultAnchor      = "sw"
	defaultAlpha       = 80
	defaultSizePercent = 50

	// margin keeps the text off the image border at edge anchors.
	margin = 5
)

// Options control the overlay placement and appearance.
type Options struct {
	// Anchor is one of n, nw, w, sw, s, se, e, ne, c.
	Anchor string
	// AlphaPercent is the text opacity, 1..100.
	AlphaPercent int
	// FontPath is a TTF file on disk.
	FontPath string
	// SizePercent is the fraction of the image width the text should span.
	SizePercent int
}

// Render draws text onto the decoded image and returns it PNG-encoded.
func Render(data []byte, text string, opts Options) ([]byte, error) {
	if opts.Anchor == "" {
		opts.Anchor = defaultAnchor
	}
	if opts.AlphaPercent <= 0 || opts.AlphaPercent > 100 {
		opts.AlphaPercent = defaultAlpha
	}
	if opts.SizePercent <= 0 || opts.SizePercent > 100 {
		opts.SizePercent = defaultSizePercent
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	fontData, err := os.ReadFile(opts.FontPath)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	fnt, err := truetype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	dc := gg.NewContextForImage(img)
	imgW := float64(img.Bounds().Dx())
	imgH := float64(img.Bounds().Dy())

	size := fitFontSize(dc, fnt, text, imgW*float64(opts.SizePercent)/100)
	dc.SetFontFace(truetype.NewFace(fnt, &truetype.Options{Size: size}))

	textW, textH := dc.MeasureMultilineString(text, 1)
	x, y := textPosition(opts.Anchor, imgW, imgH, textW, textH)

	dc.SetRGBA(0, 0, 0, float64(opts.AlphaPercent)/100)
	dc.DrawStringWrapped(text, x, y, 0, 0, textW, 1, alignFor(opts.Anchor))

	var out bytes.Buffer
	if err := png.Encode(&out, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return out.Bytes(), nil
}

// fitFontSize grows the font until the text width reaches targetWidth, then
// backs off one step.
func fitFontSize(dc *gg.Context, fnt *truetype.Font, text string, targetWidth float64) float64 {
	size := 1.0
	for {
		dc.SetFontFace(truetype.NewFace(fnt, &truetype.Options{Size: size}))
		w, _ := dc.MeasureMultilineString(text, 1)
		if w >= targetWidth || size > 512 {
			break
		}
		size++
	}
	if size > 1 {
		size--
	}
	return size
}

// textPosition maps an anchor to the top-left corner of the text block.
func textPosition(anchor string, imgW, imgH, textW, textH float64) (x, y float64) {
	x = margin
	switch anchor {
	case "n", "s", "c":
		x = (imgW - textW) / 2
	case "e", "ne", "se":
		x = imgW - textW - margin
	}

	y = margin
	switch anchor {
	case "w", "e", "c":
		y = (imgH - textH) / 2
	case "s", "sw", "se":
		y = imgH - textH - margin
	}
	return x, y
}

// alignFor picks the multi-line alignment matching the anchor's edge.
func alignFor(anchor string) gg.Align {
	switch anchor {
	case "n", "s":
		return gg.AlignCenter
	case "e", "ne", "se":
		return gg.AlignRight
	}
	return gg.AlignLeft
}
