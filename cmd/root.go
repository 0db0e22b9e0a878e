package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/deps"
)

var (
	version   = "dev"
	debugMode bool
	outputDir string
	tierFlag  string
	noTUI     bool
)

// SetVersion sets the application version (called from main)
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "framecast",
	Short: "Event-branding media capture and export tool",
	Long: `Framecast captures live camera video or processes supplied media files,
composites a campaign frame overlay on top, and exports shareable artifacts.

It supports:
  - Live camera recording with countdown and level meter
  - Per-frame overlay compositing at 480p, 720p, or 1080p
  - Portrait and landscape output with exact quality-tier swaps
  - HD still and PDF export with positioned text layers
  - Codec fallback (h264/aac, vp9/opus, mpeg4) based on the local ffmpeg`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "deps" {
			return nil
		}
		if missing := deps.MissingRequired(); len(missing) > 0 {
			return fmt.Errorf("%s", deps.FormatMissing(missing))
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: ~/Videos/Framecast)")
	rootCmd.PersistentFlags().StringVarP(&tierFlag, "quality", "t", "", "Quality tier: 480p, 720p, or 1080p")
	rootCmd.PersistentFlags().BoolVar(&noTUI, "no-tui", false, "Disable interactive screens")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(stillCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(versionCmd)
}
