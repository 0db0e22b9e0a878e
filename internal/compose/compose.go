package compose

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nfnt/resize"
)

// FitRect computes where a source frame lands on a destination surface:
// aspect-fit with letterboxing. If the source is wider than the destination
// it fits the width and letterboxes vertically; otherwise it fits the height
// and letterboxes horizontally.
func FitRect(srcW, srcH, dstW, dstH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return image.Rectangle{}
	}

	srcAspect := float64(srcW) / float64(srcH)
	dstAspect := float64(dstW) / float64(dstH)

	var w, h int
	if srcAspect > dstAspect {
		w = dstW
		h = int(float64(dstW)/srcAspect + 0.5)
	} else {
		h = dstH
		w = int(float64(dstH)*srcAspect + 0.5)
	}

	x := (dstW - w) / 2
	y := (dstH - h) / 2
	return image.Rect(x, y, x+w, y+h)
}

// Compositor draws one output frame: background scaled and letterboxed onto
// an opaque black canvas, then the overlay at full destination size. It owns
// a reusable destination buffer and caches the scaled overlay, so the render
// loop pays the overlay scaling cost once, not per frame.
type Compositor struct {
	width  int
	height int
	dst    *image.RGBA

	overlaySrc    image.Image
	overlayScaled image.Image
}

// New creates a compositor for the given destination surface size.
func New(width, height int) *Compositor {
	return &Compositor{
		width:  width,
		height: height,
		dst:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// Size returns the destination surface dimensions.
func (c *Compositor) Size() (int, int) {
	return c.width, c.height
}

// Frame composites one frame: clear, letterboxed background, overlay. The
// overlay may be nil (not yet loaded); the frame is then background only.
// The returned image is owned by the compositor and valid until the next
// Frame call.
func (c *Compositor) Frame(src image.Image, overlay image.Image) *image.RGBA {
	// Clear to opaque black before every draw so no stale pixels from a
	// previous frame of differing aspect ratio bleed through.
	draw.Draw(c.dst, c.dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if src != nil {
		b := src.Bounds()
		fit := FitRect(b.Dx(), b.Dy(), c.width, c.height)

		scaled := src
		if b.Dx() != fit.Dx() || b.Dy() != fit.Dy() {
			scaled = resize.Resize(uint(fit.Dx()), uint(fit.Dy()), src, resize.Bilinear)
		}
		draw.Draw(c.dst, fit, scaled, scaled.Bounds().Min, draw.Src)
	}

	if overlay != nil {
		draw.Draw(c.dst, c.dst.Bounds(), c.scaledOverlay(overlay), image.Point{}, draw.Over)
	}

	return c.dst
}

// scaledOverlay returns the overlay stretched to the full destination size.
// The overlay is authored at the destination aspect, so this introduces no
// distortion. Cached until the overlay image changes.
func (c *Compositor) scaledOverlay(overlay image.Image) image.Image {
	if overlay == c.overlaySrc && c.overlayScaled != nil {
		return c.overlayScaled
	}

	b := overlay.Bounds()
	scaled := overlay
	if b.Dx() != c.width || b.Dy() != c.height {
		scaled = resize.Resize(uint(c.width), uint(c.height), overlay, resize.Lanczos3)
	}

	c.overlaySrc = overlay
	c.overlayScaled = scaled
	return scaled
}
