package tui

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/blacktop/go-termimg"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"
)

// SupportsGraphics reports whether the terminal can draw inline images, so
// callers can skip rendering loops that would only print captions.
func SupportsGraphics() bool {
	return supportsGraphics()
}

// supportsGraphics reports whether the terminal can draw inline images over
// the Kitty graphics protocol.
func supportsGraphics() bool {
	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}
	if strings.Contains(os.Getenv("TERM"), "kitty") {
		return true
	}
	if os.Getenv("TERM_PROGRAM") == "kitty" {
		return true
	}
	return termimg.DetectProtocol() == termimg.Kitty
}

// PreviewImage renders a decoded frame inline in the terminal, sized to
// widthCells columns. Terminals without graphics support get a one-line
// caption instead.
func PreviewImage(img image.Image, widthCells int) string {
	if widthCells < 10 {
		widthCells = 10
	}

	caption := lipgloss.NewStyle().Foreground(ColorGray).Italic(true).
		Render("(preview not supported by this terminal)")

	if !supportsGraphics() {
		return caption
	}

	b := img.Bounds()
	aspect := float64(b.Dx()) / float64(b.Dy())
	// Terminal cells are roughly twice as tall as wide.
	heightCells := int(float64(widthCells) / aspect / 2.0)
	if heightCells < 1 {
		heightCells = 1
	}

	pixelWidth := uint(widthCells * 8)
	scaled := resize.Resize(pixelWidth, uint(float64(pixelWidth)/aspect), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return caption
	}

	ti, err := termimg.From(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return caption
	}

	ti.Protocol(termimg.Kitty).
		Width(widthCells).
		Height(heightCells).
		Scale(termimg.ScaleFit)

	rendered, err := ti.Render()
	if err != nil {
		return caption
	}
	return rendered
}

// PreviewFile renders an image file inline, used to show a finished still
// export without leaving the terminal.
func PreviewFile(path string, widthCells int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return PreviewImage(img, widthCells), nil
}
