package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/recording"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the recording session started in another terminal",
	Long: `Signal the capture process of a running session. The recording
process finalizes the artifact itself; this command only requests the stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := recording.SignalStop(); err != nil {
			if errors.Is(err, recording.ErrNoSession) {
				fmt.Println("No recording in progress.")
				return nil
			}
			return err
		}
		fmt.Println("Stop requested. The recording process is finalizing.")
		return nil
	},
}
