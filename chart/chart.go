// Package chart renders the QC figures as PNG images. Bar and box charts
// are drawn directly (no charting library ships a box plot), the TIC trace
// goes through go-chart. All renderers are deterministic for identical
// input and size.
package chart

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/carbocation/pfx"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/proteomisc/proteomisc/organism"
)

// Size is the pixel dimensions of a rendered chart. Zero values fall back
// to the per-chart defaults.
type Size struct {
	Width  int
	Height int
}

func (s Size) or(defaults Size) Size {
	if s.Width <= 0 {
		s.Width = defaults.Width
	}
	if s.Height <= 0 {
		s.Height = defaults.Height
	}
	return s
}

// Per-organism colors shared by all charts, matching the lab's established
// palette so figures stay comparable across tool versions.
var organismColors = map[organism.Label]color.RGBA{
	organism.HeLa:  {R: 0x9b, G: 0x59, B: 0xb6, A: 0xff},
	organism.EColi: {R: 0xe6, G: 0x7e, B: 0x22, A: 0xff},
	organism.Yeast: {R: 0x16, G: 0xa0, B: 0x85, A: 0xff},
}

var referenceColor = color.RGBA{R: 0xf3, G: 0x9c, B: 0x12, A: 0xff}

// OrganismColor returns the chart color of an organism, gray for Unknown.
func OrganismColor(org organism.Label) color.RGBA {
	if c, ok := organismColors[org]; ok {
		return c
	}
	return color.RGBA{R: 0x7f, G: 0x8c, B: 0x8d, A: 0xff}
}

func newCanvas(size Size) *gg.Context {
	ctx := gg.NewContext(size.Width, size.Height)
	ctx.SetRGB(1, 1, 1)
	ctx.Clear()
	ctx.SetFontFace(basicfont.Face7x13)
	return ctx
}

func encodeContext(ctx *gg.Context) ([]byte, error) {
	return EncodePNG(ctx.Image())
}

// EncodePNG serializes an image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, pfx.Err(err)
	}
	return buf.Bytes(), nil
}

// DefaultPlaceholderSize is used when a placeholder is rendered standalone.
var DefaultPlaceholderSize = Size{Width: 800, Height: 400}

// Placeholder renders an empty-state panel carrying a message. Charts asked
// to draw series with no data return this instead of failing.
func Placeholder(msg string, size Size) ([]byte, error) {
	size = size.or(DefaultPlaceholderSize)

	ctx := newCanvas(size)
	ctx.SetRGB255(0x2c, 0x3e, 0x50)
	drawCenteredString(ctx, msg, float64(size.Width)/2, float64(size.Height)/2)
	return encodeContext(ctx)
}

func drawCenteredString(ctx *gg.Context, s string, x, y float64) {
	ctx.DrawStringAnchored(s, x, y, 0.5, 0.35)
}

// Thumbnail re-encodes a rendered PNG at the given width, preserving aspect
// ratio. Used for the inline preview variant of the plot endpoints.
func Thumbnail(pngBytes []byte, width int) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, pfx.Err(err)
	}

	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	return EncodePNG(resized)
}
