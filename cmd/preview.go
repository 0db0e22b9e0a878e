package cmd

import (
	"fmt"
	"image"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/capture"
	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/render"
	"github.com/framecast/framecast/internal/tui"
)

var (
	previewPortrait bool
	previewCamera   string
	previewFPS      int
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the live camera viewfinder with the overlay",
	Long: `Open the camera and draw composited frames inline in the terminal,
exactly as a recording would render them. Requires a terminal with Kitty
graphics support. Press Ctrl-C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !tui.SupportsGraphics() {
			return fmt.Errorf("this terminal cannot draw inline images; try kitty")
		}

		orientation := models.Landscape
		if previewPortrait {
			orientation = models.Portrait
		}
		profile, err := models.ProfileFor(cfg.DefaultTier)
		if err != nil {
			return err
		}

		loader := loadOverlay(cmd.Context(), cfg)

		session := capture.NewSession()
		src, err := session.StartCamera(capture.Constraints{
			Device:      previewCamera,
			Orientation: orientation,
			Profile:     profile,
			FPS:         cfg.Capture.FPS,
		})
		if err != nil {
			return fmt.Errorf("opening camera: %w", err)
		}
		defer session.Stop()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w, h := profile.Dimensions(orientation)
		pipeline := render.NewPipeline(w, h, overlayFor(loader, orientation), nil, watermarkLabel(cfg))
		viewfinder := render.NewPreview(pipeline, src.Frames())

		fmt.Println("Viewfinder running. Press Ctrl-C to stop.")
		err = viewfinder.Run(ctx, previewFPS, func(frame *image.RGBA) {
			// Home the cursor so successive frames overdraw in place.
			fmt.Print("\033[H" + tui.PreviewImage(frame, 60))
		})
		if err != nil && ctx.Err() == nil {
			return err
		}
		fmt.Println()
		return nil
	},
}

func init() {
	previewCmd.Flags().BoolVar(&previewPortrait, "portrait", false, "Preview in portrait orientation")
	previewCmd.Flags().StringVar(&previewCamera, "camera", "", "Camera device (default: auto-detect)")
	previewCmd.Flags().IntVar(&previewFPS, "fps", 5, "Viewfinder refresh rate")
}
