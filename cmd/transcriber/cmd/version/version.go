package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X audio-transcriber/cmd/transcriber/cmd/version.version=..."
var version = "v0.1.0"

// Cmd represents the version command
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of transcriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}
