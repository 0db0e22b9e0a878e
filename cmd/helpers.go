package cmd

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/framecast/framecast/internal/config"
	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/notify"
	"github.com/framecast/framecast/internal/overlay"
	"github.com/framecast/framecast/internal/still"
)

// loadConfig loads the user config and applies CLI overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if tierFlag != "" {
		cfg.DefaultTier = models.QualityTier(tierFlag)
	}
	if _, err := models.ProfileFor(cfg.DefaultTier); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadOverlay resolves the campaign overlay for the session. Load failures
// are non-fatal: the pipeline composites without the overlay and the loader
// keeps retrying in the background.
func loadOverlay(ctx context.Context, cfg *config.Config) *overlay.Loader {
	loader := overlay.NewLoader(cfg.Campaign.OverlayPortraitURI, cfg.Campaign.OverlayLandscapeURI)

	loadCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := loader.Load(loadCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		notify.OverlayUnavailable()
	}
	return loader
}

// overlayFor picks the overlay image for an orientation, or nil when the
// asset has not resolved.
func overlayFor(loader *overlay.Loader, o models.Orientation) image.Image {
	if loader == nil {
		return nil
	}
	if asset := loader.Asset(); asset != nil {
		return asset.Select(o)
	}
	return nil
}

// watermarkLabel returns the label to stamp, or empty when the campaign
// record says the watermark was removed.
func watermarkLabel(cfg *config.Config) string {
	if cfg.Campaign.WatermarkStatus.ShowWatermark() {
		return still.WatermarkLabel
	}
	return ""
}
