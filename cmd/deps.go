package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/framecast/framecast/internal/deps"
)

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Check external tool dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		required, optional := deps.CheckAll()
		fmt.Print(deps.FormatAll(required, optional))

		if !deps.HasAllRequired() {
			return fmt.Errorf("missing required dependencies")
		}
		return nil
	},
}
