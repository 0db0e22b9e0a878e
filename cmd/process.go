package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/capture"
	"github.com/framecast/framecast/internal/config"
	"github.com/framecast/framecast/internal/deliver"
	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/notify"
	"github.com/framecast/framecast/internal/recording"
	"github.com/framecast/framecast/internal/tui"
)

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Export a video file with the campaign overlay",
	Long: `Run an uploaded video through the compositing pipeline: every frame is
letterboxed to the quality tier, the campaign overlay is drawn on top, and
the result is re-encoded with the source audio passed through at unity
gain. Orientation follows the source file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := args[0]

		controller := recording.New(cfg, capture.NewSession())

		if noTUI {
			return processPlain(cmd, cfg, controller, path)
		}
		return processWithScreen(cmd, cfg, controller, path)
	},
}

// processOptionsFor assembles the export options for a probed source.
func processOptionsFor(cmd *cobra.Command, cfg *config.Config, orientation models.Orientation) recording.ProcessOptions {
	loader := loadOverlay(cmd.Context(), cfg)

	return recording.ProcessOptions{
		Tier:      cfg.DefaultTier,
		FPS:       cfg.Capture.FPS,
		Overlay:   overlayFor(loader, orientation),
		Watermark: watermarkLabel(cfg),
	}
}

// audioDegradedWarning surfaces a video-only fallback on both export paths.
func audioDegradedWarning(err error) {
	fmt.Fprintf(os.Stderr, "Warning: exporting video only: %v\n", err)
	notify.AudioUnavailable()
}

// sourceOrientation probes the file so the overlay matches it.
func sourceOrientation(path string) models.Orientation {
	if info, err := capture.Probe(path); err == nil {
		return models.OrientationFromDimensions(info.Width, info.Height)
	}
	return models.Landscape
}

func processPlain(cmd *cobra.Command, cfg *config.Config, controller *recording.Controller, path string) error {
	opts := processOptionsFor(cmd, cfg, sourceOrientation(path))

	opts.OnAudioDegraded = audioDegradedWarning

	fmt.Printf("Processing %s...\n", path)
	artifact, err := controller.ProcessFile(cmd.Context(), path, opts)
	if err != nil {
		notify.Error("Framecast", "Export failed: "+err.Error())
		return err
	}

	result, err := deliver.Deliver(artifact, deliver.Options{DownloadDir: cfg.OutputDir})
	if err != nil {
		return err
	}

	notify.ArtifactReady(artifact.SuggestedFilename)
	fmt.Printf("Saved %s (%s)\n", result.Path, result.Strategy)
	return nil
}

func processWithScreen(cmd *cobra.Command, cfg *config.Config, controller *recording.Controller, path string) error {
	model := tui.NewProcessingModel()
	program := tea.NewProgram(model, tea.WithAltScreen())

	var artifact *models.ExportArtifact
	var exportErr error

	go func() {
		info, err := capture.Probe(path)
		if err != nil {
			exportErr = err
			program.Send(tui.StepFailMsg{Err: err})
			return
		}
		orientation := models.OrientationFromDimensions(info.Width, info.Height)
		program.Send(tui.StepAdvanceMsg{})

		opts := processOptionsFor(cmd, cfg, orientation)
		if opts.Overlay == nil {
			program.Send(tui.StepAdvanceMsg{Skip: true})
		} else {
			program.Send(tui.StepAdvanceMsg{})
		}

		// The frame counter drives the percent bar against the probed
		// duration. Compositing and encoding run inside the export loop.
		totalFrames := int(info.Duration * float64(cfg.Capture.FPS))
		opts.OnProgress = func(frames int) {
			if totalFrames > 0 {
				program.Send(tui.PercentMsg(float64(frames) / float64(totalFrames)))
			}
		}
		opts.OnAudioDegraded = audioDegradedWarning

		a, err := controller.ProcessFile(cmd.Context(), path, opts)
		if err != nil {
			exportErr = err
			program.Send(tui.StepFailMsg{Err: err})
			return
		}
		program.Send(tui.StepAdvanceMsg{})
		program.Send(tui.StepAdvanceMsg{})

		result, err := deliver.Deliver(a, deliver.Options{DownloadDir: cfg.OutputDir})
		if err != nil {
			exportErr = err
			program.Send(tui.StepFailMsg{Err: err})
			return
		}
		a.Path = result.Path
		artifact = a
		program.Send(tui.ProcessingDoneMsg{})
	}()

	if _, err := program.Run(); err != nil {
		return err
	}
	if exportErr != nil {
		notify.Error("Framecast", "Export failed: "+exportErr.Error())
		return exportErr
	}
	if artifact == nil {
		return fmt.Errorf("export produced no artifact")
	}

	notify.ArtifactReady(artifact.SuggestedFilename)
	fmt.Printf("Saved %s\n", artifact.Path)
	return nil
}
