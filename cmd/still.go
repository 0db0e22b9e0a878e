package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/deliver"
	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/notify"
	"github.com/framecast/framecast/internal/still"
	"github.com/framecast/framecast/internal/tui"
)

var (
	stillPDF      bool
	stillPortrait bool
	stillName     string
	stillDate     string
	stillTexts    []string
	stillPreview  bool
)

var stillCmd = &cobra.Command{
	Use:   "still <image>",
	Short: "Export a print-quality still with the campaign overlay",
	Long: `Composite a source image with the campaign overlay at print resolution
and export it as a PNG, or as a single-page A4 PDF with --pdf. Positioned
text layers for a name, a date, and free-form captions can be stamped on
top of the overlay.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := args[0]

		format := still.FormatPNG
		if stillPDF {
			format = still.FormatPDF
		}

		opts := still.Options{
			Format:        format,
			Layers:        stillLayers(),
			Watermark:     cfg.Campaign.WatermarkStatus,
			OutputDir:     cfg.OutputDir,
			AppName:       cfg.AppName,
			CampaignTitle: cfg.Campaign.Title,
		}
		if stillPortrait {
			opts.Orientation = models.Portrait
			opts.ForceOrientation = true
		}

		loader := loadOverlay(cmd.Context(), cfg)
		orientation := opts.Orientation
		if !opts.ForceOrientation {
			orientation = still.SourceOrientation(path)
		}
		opts.Overlay = overlayFor(loader, orientation)

		artifact, err := still.Export(path, opts)
		if err != nil {
			return err
		}

		result, err := deliver.Deliver(artifact, deliver.Options{DownloadDir: cfg.OutputDir})
		if err != nil {
			return err
		}

		notify.ArtifactReady(artifact.SuggestedFilename)
		fmt.Printf("Saved %s (%s)\n", result.Path, result.Strategy)

		if stillPreview && format == still.FormatPNG {
			view, err := tui.PreviewFile(result.Path, 60)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Preview unavailable: %v\n", err)
			} else {
				fmt.Println(view)
			}
		}
		return nil
	},
}

// stillLayers builds the positioned text layers from the CLI flags. The
// anchor positions follow the portrait design space; the compositor scales
// them to the destination raster.
func stillLayers() []models.TextLayer {
	var layers []models.TextLayer
	if stillName != "" {
		layers = append(layers, models.TextLayer{
			Kind:     models.FieldName,
			Text:     stillName,
			X:        540,
			Y:        1560,
			FontSize: 64,
			Color:    "#FFFFFF",
			Bold:     true,
		})
	}
	if stillDate != "" {
		layers = append(layers, models.TextLayer{
			Kind:     models.FieldDate,
			Text:     stillDate,
			X:        540,
			Y:        1650,
			FontSize: 40,
			Color:    "#FFFFFF",
		})
	}
	for i, text := range stillTexts {
		layers = append(layers, models.TextLayer{
			Kind:     models.FieldCustom,
			Text:     text,
			X:        540,
			Y:        1740 + float64(i)*70,
			FontSize: 40,
			Color:    "#FFFFFF",
		})
	}
	return layers
}

func init() {
	stillCmd.Flags().BoolVar(&stillPDF, "pdf", false, "Export a single-page A4 PDF instead of a PNG")
	stillCmd.Flags().BoolVar(&stillPortrait, "portrait", false, "Force portrait orientation")
	stillCmd.Flags().StringVar(&stillName, "name", "", "Name to stamp on the export")
	stillCmd.Flags().StringVar(&stillDate, "date", "", "Date to stamp on the export")
	stillCmd.Flags().StringArrayVar(&stillTexts, "text", nil, "Extra caption line (repeatable)")
	stillCmd.Flags().BoolVar(&stillPreview, "preview", false, "Render the result inline in supported terminals")
}
