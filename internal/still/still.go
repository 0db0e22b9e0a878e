// Package still exports HD still images and single-page PDF documents: the
// source image composited with the campaign overlay and text layers at a
// fixed print resolution. The watermark is a pure function of the campaign's
// watermark status.
package still

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/signintech/gopdf"

	"github.com/framecast/framecast/internal/compose"
	"github.com/framecast/framecast/internal/models"
)

// Print resolution, roughly A4 at 300dpi. Canonical is portrait; landscape
// is the exact swap.
const (
	PrintWidth  = 2480
	PrintHeight = 3508
)

// A4 page size in PDF points.
const (
	pageWidthPt  = 595.28
	pageHeightPt = 841.89
)

// WatermarkLabel is stamped on exports until the campaign record says the
// watermark was removed.
const WatermarkLabel = "framecast"

// Dimensions returns the print surface size for an orientation.
func Dimensions(o models.Orientation) (width, height int) {
	if o == models.Landscape {
		return PrintHeight, PrintWidth
	}
	return PrintWidth, PrintHeight
}

// Format selects the artifact kind a still export produces.
type Format int

const (
	FormatPNG Format = iota
	FormatPDF
)

// Options configure one still export.
type Options struct {
	Format      Format
	Orientation models.Orientation
	// ForceOrientation keeps Options.Orientation even when the source
	// image's intrinsic orientation differs.
	ForceOrientation bool

	Overlay   image.Image
	Layers    []models.TextLayer
	Watermark models.WatermarkStatus

	OutputDir     string
	AppName       string
	CampaignTitle string
}

// Export composites the source image at print resolution and writes the
// artifact. Orientation follows the source image unless forced.
func Export(srcPath string, opts Options) (*models.ExportArtifact, error) {
	src, err := loadImage(srcPath)
	if err != nil {
		return nil, err
	}

	orientation := opts.Orientation
	if !opts.ForceOrientation {
		b := src.Bounds()
		orientation = models.OrientationFromDimensions(b.Dx(), b.Dy())
	}

	frame := Render(src, orientation, opts)

	switch opts.Format {
	case FormatPDF:
		return writePDF(frame, orientation, opts)
	default:
		return writePNG(frame, orientation, opts)
	}
}

// Render runs the compositor once at print resolution: letterboxed source,
// overlay, text layers, and the watermark unless the status is exactly
// removed.
func Render(src image.Image, orientation models.Orientation, opts Options) *image.RGBA {
	w, h := Dimensions(orientation)

	comp := compose.New(w, h)
	frame := comp.Frame(src, opts.Overlay)
	compose.DrawTextLayers(frame, opts.Layers, compose.DesignWidth, compose.DesignHeight)
	if opts.Watermark.ShowWatermark() {
		compose.DrawWatermark(frame, WatermarkLabel)
	}
	return frame
}

// pngReader encodes the frame for embedding without touching disk.
func pngReader(frame *image.RGBA) *bytes.Buffer {
	var buf bytes.Buffer
	png.Encode(&buf, frame)
	return &buf
}

// SourceOrientation classifies an image file by its intrinsic dimensions.
// Undecodable files report landscape; Export surfaces the real error.
func SourceOrientation(path string) models.Orientation {
	src, err := loadImage(path)
	if err != nil {
		return models.Landscape
	}
	b := src.Bounds()
	return models.OrientationFromDimensions(b.Dx(), b.Dy())
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func writePNG(frame *image.RGBA, orientation models.Orientation, opts Options) (*models.ExportArtifact, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}

	name := models.ArtifactFilename(opts.AppName, opts.CampaignTitle,
		"hd", orientation.String(), "png")
	outPath := filepath.Join(opts.OutputDir, name)

	f, err := os.Create(outPath)
	if err != nil {
		return nil, err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		os.Remove(outPath)
		return nil, fmt.Errorf("encoding still: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	b := frame.Bounds()
	return &models.ExportArtifact{
		Path:              outPath,
		MIMEType:          "image/png",
		SuggestedFilename: name,
		Width:             b.Dx(),
		Height:            b.Dy(),
		Orientation:       orientation,
	}, nil
}

// writePDF embeds the rendered frame as a full page. The raster already
// carries the letterboxing, so the page placement is edge to edge on a page
// matching the print orientation.
func writePDF(frame *image.RGBA, orientation models.Orientation, opts Options) (*models.ExportArtifact, error) {
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, err
	}

	pageW, pageH := pageWidthPt, pageHeightPt
	if orientation == models.Landscape {
		pageW, pageH = pageHeightPt, pageWidthPt
	}

	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: gopdf.Rect{W: pageW, H: pageH}})
	pdf.AddPage()

	holder, err := gopdf.ImageHolderByReader(pngReader(frame))
	if err != nil {
		return nil, err
	}
	if err := pdf.ImageByHolder(holder, 0, 0, &gopdf.Rect{W: pageW, H: pageH}); err != nil {
		return nil, fmt.Errorf("placing still on page: %w", err)
	}

	name := models.ArtifactFilename(opts.AppName, opts.CampaignTitle,
		"hd", orientation.String(), "pdf")
	outPath := filepath.Join(opts.OutputDir, name)

	if err := pdf.WritePdf(outPath); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	b := frame.Bounds()
	return &models.ExportArtifact{
		Path:              outPath,
		MIMEType:          "application/pdf",
		SuggestedFilename: name,
		Width:             b.Dx(),
		Height:            b.Dy(),
		Orientation:       orientation,
	}, nil
}
