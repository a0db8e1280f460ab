// Package display holds output helpers shared by jflat commands.
package display

import (
	"github.com/spf13/cobra"
)

// ShouldOutputJSON reports whether a command should print machine-readable
// output: its own --json flag when explicitly set, otherwise the root's.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd == nil {
		return false
	}

	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		on, _ := cmd.Flags().GetBool("json")
		return on
	}

	on, _ := cmd.Root().PersistentFlags().GetBool("json")
	return on
}
