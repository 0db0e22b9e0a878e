package compose

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/framecast/framecast/internal/models"
)

// Design-space reference size for text layer coordinates. Layer positions and
// font sizes are authored against this and scaled by destSize/designSize.
const (
	DesignWidth  = 1080.0
	DesignHeight = 1920.0
)

var (
	regularFont *opentype.Font
	boldFont    *opentype.Font
)

func init() {
	// Embedded Go fonts; parse errors here are programmer errors.
	var err error
	regularFont, err = opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	boldFont, err = opentype.Parse(gobold.TTF)
	if err != nil {
		panic(err)
	}
}

// DrawTextLayers draws positioned, anchor-centered text layers onto dst.
// Coordinates and font sizes are in design space and scaled to the
// destination surface.
func DrawTextLayers(dst *image.RGBA, layers []models.TextLayer, designW, designH float64) {
	if designW <= 0 || designH <= 0 {
		designW, designH = DesignWidth, DesignHeight
	}

	b := dst.Bounds()
	scaleX := float64(b.Dx()) / designW
	scaleY := float64(b.Dy()) / designH

	for _, layer := range layers {
		if layer.Text == "" {
			continue
		}

		face, err := layerFace(layer, scaleY)
		if err != nil {
			continue
		}

		drawCentered(dst, face, layer.Text, parseHexColor(layer.Color),
			int(layer.X*scaleX), int(layer.Y*scaleY))
		face.Close()
	}
}

// watermarkMargin is the design-space inset of the watermark from the
// lower-right corner.
const watermarkMargin = 24.0

// DrawWatermark draws the fixed-position semi-transparent label in the
// lower-right corner. Callers gate it on models.WatermarkStatus; anything
// but exactly "removed" must draw it.
func DrawWatermark(dst *image.RGBA, label string) {
	b := dst.Bounds()
	scale := float64(b.Dy()) / DesignHeight

	face, err := opentype.NewFace(boldFont, &opentype.FaceOptions{
		Size:    36 * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return
	}
	defer face.Close()

	width := font.MeasureString(face, label).Ceil()
	metrics := face.Metrics()

	x := b.Max.X - width - int(watermarkMargin*scale)
	y := b.Max.Y - int(watermarkMargin*scale) - metrics.Descent.Ceil()

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 150}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}

func layerFace(layer models.TextLayer, scale float64) (font.Face, error) {
	f := regularFont
	if layer.Bold {
		f = boldFont
	}

	size := layer.FontSize
	if size <= 0 {
		size = 48
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// drawCentered draws text with its anchor at the center point (x, y).
func drawCentered(dst *image.RGBA, face font.Face, text string, col color.Color, x, y int) {
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	height := metrics.Ascent.Ceil() + metrics.Descent.Ceil()

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x-width/2, y-height/2+metrics.Ascent.Ceil()),
	}
	d.DrawString(text)
}

// parseHexColor parses "#RRGGBB"; unknown input falls back to white.
func parseHexColor(s string) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.White
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.White
	}

	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
}
