package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/audiograph"
	"github.com/framecast/framecast/internal/beep"
	"github.com/framecast/framecast/internal/capture"
	"github.com/framecast/framecast/internal/deliver"
	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/notify"
	"github.com/framecast/framecast/internal/recording"
	"github.com/framecast/framecast/internal/tui"
)

var (
	recordPortrait    bool
	recordNoAudio     bool
	recordCamera      string
	recordAudioDevice string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record from the camera with the campaign overlay",
	Long: `Start a live camera recording session.

The session runs a countdown, then records with the campaign overlay
composited onto every frame. Recording stops on keypress, on 'framecast
stop' from another terminal, or when the duration ceiling is reached.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if recording.SessionActive() {
			return fmt.Errorf("a session is already in progress")
		}

		orientation := models.Landscape
		if recordPortrait {
			orientation = models.Portrait
		}

		loader := loadOverlay(cmd.Context(), cfg)

		withAudio := !recordNoAudio && !cfg.Capture.NoAudio
		device := recordCamera
		if device == "" {
			device = cfg.Capture.CameraDevice
		}
		audioDevice := recordAudioDevice
		if audioDevice == "" {
			audioDevice = cfg.Capture.AudioDevice
		}

		// The interactive countdown owns the beeps and the cancel key;
		// without a terminal UI the controller ticks and beeps itself.
		countdown := cfg.Capture.CountdownSeconds
		if !noTUI {
			completed, err := tui.ShowCountdown(countdown)
			if err != nil {
				return err
			}
			if !completed {
				fmt.Println("Cancelled.")
				return nil
			}
			countdown = 0
		}

		controller := recording.New(cfg, capture.NewSession())
		opts := recording.StartOptions{
			Tier:        cfg.DefaultTier,
			Orientation: orientation,
			Device:      device,
			WithAudio:   withAudio,
			AudioDevice: audioDevice,
			FPS:         cfg.Capture.FPS,
			Countdown:   countdown,
			MaxDuration: time.Duration(cfg.Capture.MaxDurationSecs) * time.Second,
			Overlay:     overlayFor(loader, orientation),
			Watermark:   watermarkLabel(cfg),
		}
		// A failed overlay keeps retrying during the session; the pipeline
		// picks it up as soon as it resolves.
		opts.OverlayLoader = loader
		opts.OnAudioDegraded = func(err error) {
			fmt.Fprintf(os.Stderr, "Warning: recording video only: %v\n", err)
			notify.AudioUnavailable()
		}
		if noTUI {
			opts.OnCountdown = func(remaining int) {
				fmt.Printf("%d...\n", remaining)
				go beep.Play(remaining)
			}
		}

		if err := controller.Start(cmd.Context(), opts); err != nil {
			if errors.Is(err, recording.ErrSessionActive) {
				return fmt.Errorf("a session is already in progress")
			}
			var accessErr *capture.AccessError
			if errors.As(err, &accessErr) {
				return fmt.Errorf("camera unavailable: %w\ncheck permissions or pass --camera", err)
			}
			return err
		}
		notify.RecordingStarted(string(cfg.DefaultTier))

		// The meter observes the microphone; it never touches the
		// recorded audio and its failure is not a session failure.
		var level func() float64
		if withAudio {
			if meter, err := audiograph.StartMeter(audioDevice); err == nil {
				defer meter.Stop()
				level = meter.Level
			} else {
				fmt.Fprintf(os.Stderr, "Warning: level meter unavailable: %v\n", err)
				notify.AudioUnavailable()
			}
		}

		if noTUI {
			fmt.Println("Recording. Press Ctrl-C to stop.")
			waitForInterrupt(controller)
		} else {
			maxDur := time.Duration(cfg.Capture.MaxDurationSecs) * time.Second
			if _, err := tui.ShowRecording(cfg.DefaultTier, orientation, maxDur, level); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}

		// Stop also returns the result of a session the duration ceiling
		// already finalized.
		artifact, err := controller.Stop()
		if err != nil {
			notify.Error("Framecast", "Recording failed: "+err.Error())
			return err
		}
		notify.RecordingStopped()
		if artifact == nil {
			return fmt.Errorf("session ended without an artifact")
		}

		result, err := deliver.Deliver(artifact, deliver.Options{DownloadDir: cfg.OutputDir})
		if err != nil {
			return err
		}

		notify.ArtifactReady(artifact.SuggestedFilename)
		fmt.Printf("Saved %s (%s)\n", result.Path, result.Strategy)
		return nil
	},
}

// waitForInterrupt blocks until Ctrl-C or until the session finalizes on
// its own.
func waitForInterrupt(controller *recording.Controller) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	done := make(chan struct{})
	go func() {
		controller.Wait()
		close(done)
	}()

	select {
	case <-sig:
	case <-done:
	}
}

func init() {
	recordCmd.Flags().BoolVar(&recordPortrait, "portrait", false, "Record in portrait orientation")
	recordCmd.Flags().BoolVar(&recordNoAudio, "no-audio", false, "Disable audio capture")
	recordCmd.Flags().StringVar(&recordCamera, "camera", "", "Camera device (default: auto-detect)")
	recordCmd.Flags().StringVar(&recordAudioDevice, "audio-device", "", "Microphone device")
}
