package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/jflat/display"
	"github.com/teranos/jflat/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show jflat version information",
	Long:  `Display version, build time, commit hash, and platform information for the jflat binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		info := version.Get()

		if display.ShouldOutputJSON(cmd) {
			return display.WriteJSON(out, info)
		}

		fmt.Fprintln(out, info.String())
		fmt.Fprintf(out, "Platform: %s\n", info.Platform)
		fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
		return nil
	},
}
