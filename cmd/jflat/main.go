package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/jflat/am"
	"github.com/teranos/jflat/cmd/jflat/commands"
	"github.com/teranos/jflat/logger"
)

var rootCmd = &cobra.Command{
	Use:   "jflat [input]",
	Short: "jflat - flatten JSON into CSV, TSV or Excel",
	Long: `jflat - flatten JSON documents into tables.

Each top-level record becomes one row. Nested objects become dotted column
names (user.address.city); arrays are kept as compact JSON in one cell.
Columns are the sorted union of keys across all records.

Available commands:
  convert - Convert a JSON file (also the default: jflat <input>)
  watch   - Re-run a conversion whenever the input changes
  am      - Manage jflat configuration ("I am")
  version - Show version information

Examples:
  jflat data.json                      # writes data.csv
  jflat data.json -f excel -o out.xlsx # Excel workbook
  jflat data.json -f tsv --separator _ # user_address_city columns
  cat data.json | jflat - > data.csv   # stdin to stdout`,
	Args:          cobra.MaximumNArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if !jsonOutput {
			jsonOutput = am.GetViper().GetBool("log.json")
		}
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return commands.RunConvert(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json", false, "Emit logs, progress and results as JSON")

	commands.AddConvertFlags(rootCmd)

	rootCmd.AddCommand(commands.ConvertCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		commands.PrintError(os.Stderr, err)
		os.Exit(commands.ExitCode(err))
	}
}
