package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/capture"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List detected capture devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Cameras:")
		listCameras()

		fmt.Println()
		fmt.Println("Audio:")
		fmt.Printf("  default (%s)\n", defaultAudioBackend())
		return nil
	},
}

func listCameras() {
	if runtime.GOOS != "linux" {
		// ffmpeg enumerates devices itself on macOS and Windows; the
		// capture layer passes the default through.
		fmt.Println("  default (system camera)")
		return
	}

	found := false
	for _, dev := range []string{"/dev/video0", "/dev/video1", "/dev/video2", "/dev/video3"} {
		if _, err := os.Stat(dev); err == nil {
			marker := ""
			if def, err := capture.DetectDevice(); err == nil && def == dev {
				marker = " (default)"
			}
			fmt.Printf("  %s%s\n", dev, marker)
			found = true
		}
	}
	if !found {
		fmt.Println("  none found")
	}
}

func defaultAudioBackend() string {
	switch runtime.GOOS {
	case "linux":
		return "pulse"
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "unknown"
	}
}
