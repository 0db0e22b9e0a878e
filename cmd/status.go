package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/models"
	"github.com/framecast/framecast/internal/recording"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session state",
	RunE: func(cmd *cobra.Command, args []string) error {
		status := recording.ReadStatus()

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}

		switch status.State {
		case models.StateIdle:
			fmt.Println("Idle. No session in progress.")
		case models.StateProcessing:
			fmt.Println("Processing an upload.")
		default:
			fmt.Printf("State:   %s\n", status.State)
			if status.Tier != "" {
				fmt.Printf("Quality: %s\n", status.Tier)
			}
			if !status.StartTime.IsZero() {
				fmt.Printf("Started: %s\n", status.StartTime.Format("15:04:05"))
				fmt.Printf("Elapsed: %s\n", status.Elapsed.Round(time.Second))
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")
}
