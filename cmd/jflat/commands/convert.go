package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/jflat/am"
	"github.com/teranos/jflat/convert"
	"github.com/teranos/jflat/display"
	"github.com/teranos/jflat/flatten"
	"github.com/teranos/jflat/logger"
	"github.com/teranos/jflat/progress"
	"github.com/teranos/jflat/record"
	"github.com/teranos/jflat/tabular"
)

// ConvertCmd converts one JSON file
var ConvertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert a JSON file to CSV, TSV or Excel",
	Long: `Convert a JSON document into a flat table.

The input is an array of records, or a single object treated as one record.
Use "-" to read stdin. The output defaults to the input's base name with the
format's extension, in the current directory; "-o -" writes stdout.

Flags override configuration from am.toml and JFLAT_* variables.`,
	Args: cobra.ExactArgs(1),
	RunE: RunConvert,
}

func init() {
	AddConvertFlags(ConvertCmd)
}

// AddConvertFlags registers the conversion flags on cmd
func AddConvertFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("output", "o", "", "Output file (default: <input name>.<ext>, \"-\" for stdout)")
	f.StringP("format", "f", am.DefaultFormat, "Output format: "+formatList())
	f.String("separator", am.DefaultSeparator, "Separator joining nested keys")
	f.String("delimiter", am.DefaultDelimiter, "Field delimiter for csv (single character or \"tab\")")
	f.Bool("crlf", false, "Use CRLF line endings")
	f.Int("workers", 0, "Flatten workers (0 = number of CPUs)")
	f.Bool("strict", false, "Reject top-level records that are not objects")
	f.String("on-collision", am.DefaultOnCollision, "When two paths flatten to one key: last-wins or error")
	f.Bool("no-progress", false, "Disable progress bars")
}

// RunConvert converts args[0] using flags layered over the loaded configuration
func RunConvert(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	opts, err := buildOptions(cmd, cfg, args[0])
	if err != nil {
		return err
	}

	emitter, done := newEmitter(cmd, cfg, opts.InputPath)
	opts.Progress = emitter
	result, err := convert.Convert(cmd.Context(), opts)
	done()
	if err != nil {
		return err
	}

	printResult(cmd, opts.InputPath, result)
	return nil
}

// buildOptions resolves the effective conversion settings. Flags win over
// config only when set on the command line.
func buildOptions(cmd *cobra.Command, cfg *am.Config, input string) (convert.Options, error) {
	c := cfg.Convert
	flags := cmd.Flags()
	if flags.Changed("format") {
		c.Format, _ = flags.GetString("format")
	}
	if flags.Changed("delimiter") {
		c.Delimiter, _ = flags.GetString("delimiter")
	}
	if flags.Changed("separator") {
		c.Separator, _ = flags.GetString("separator")
	}
	if flags.Changed("crlf") {
		c.CRLF, _ = flags.GetBool("crlf")
	}
	if flags.Changed("workers") {
		c.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("strict") {
		c.StrictRecords, _ = flags.GetBool("strict")
	}
	if flags.Changed("on-collision") {
		c.OnCollision, _ = flags.GetString("on-collision")
	}

	effective := *cfg
	effective.Convert = c
	if err := effective.Validate(); err != nil {
		return convert.Options{}, err
	}

	delimiter, err := c.DelimiterRune()
	if err != nil {
		return convert.Options{}, err
	}
	collision, err := flatten.ParseCollisionPolicy(c.OnCollision)
	if err != nil {
		return convert.Options{}, err
	}
	output, _ := flags.GetString("output")

	return convert.Options{
		InputPath:         input,
		OutputPath:        output,
		Format:            c.Format,
		Delimiter:         delimiter,
		CRLF:              c.CRLF,
		Separator:         c.Separator,
		Collision:         collision,
		StrictRecords:     c.StrictRecords,
		Workers:           c.EffectiveWorkers(),
		ParallelThreshold: c.ParallelThreshold,
		ChunkRows:         c.SpreadsheetChunkRows,
	}, nil
}

// newEmitter picks the progress sink. JSON mode streams events to stderr;
// otherwise bars appear only on a terminal and only for large inputs.
// done flushes pending events and must be called once the conversion returns.
func newEmitter(cmd *cobra.Command, cfg *am.Config, input string) (progress.Emitter, func()) {
	if display.ShouldOutputJSON(cmd) {
		return progress.NewJSONEmitter(cmd.ErrOrStderr()), func() {}
	}

	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if !cfg.Progress.Enabled || noProgress || !isTerminal(os.Stdout) {
		return nil, func() {}
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	gated := progress.NewGate(progress.NewCLIEmitterTo(cmd.ErrOrStderr(), verbosity), map[string]int64{
		progress.StageRead:    cfg.Progress.MinBytes,
		progress.StageFlatten: int64(cfg.Progress.MinRows),
		progress.StageWrite:   int64(cfg.Progress.MinRows),
	})
	async := progress.NewAsync(gated, progress.DefaultBuffer)
	return async, func() {
		async.Close()
		if n := async.Dropped(); n > 0 {
			logger.Debugw("Dropped progress events", "dropped", n, logger.FieldInput, input)
		}
	}
}

func printResult(cmd *cobra.Command, input string, result *convert.Result) {
	// keep stdout clean when it carries the table
	out := cmd.OutOrStdout()
	if result.OutputPath == tabular.StdoutPath {
		out = cmd.ErrOrStderr()
	}

	if display.ShouldOutputJSON(cmd) {
		_ = display.WriteJSONLine(out, resultPayload(input, result))
		return
	}

	if result.Empty {
		pterm.Warning.WithWriter(cmd.ErrOrStderr()).Println("No data found in the input file")
		return
	}
	fmt.Fprintf(out, "Converted %s to %s in %.2fs (%d records, %d columns)\n",
		displayPath(input, "stdin"), displayPath(result.OutputPath, "stdout"), result.Duration.Seconds(),
		result.Records, result.Columns)
}

func resultPayload(input string, result *convert.Result) map[string]interface{} {
	return map[string]interface{}{
		logger.FieldRunID:      result.RunID,
		logger.FieldInput:      input,
		logger.FieldOutput:     result.OutputPath,
		logger.FieldRecords:    result.Records,
		logger.FieldColumns:    result.Columns,
		logger.FieldDurationMS: result.Duration.Milliseconds(),
		"empty":                result.Empty,
	}
}

// displayPath names "-" after the standard stream it stands for
func displayPath(path, stream string) string {
	if path == record.StdinPath {
		return stream
	}
	return path
}

func formatList() string {
	return strings.Join(tabular.Formats(), ", ")
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
