package commands

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/jflat/am"
	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/logger"
	"github.com/teranos/jflat/record"
	"github.com/teranos/jflat/watch"
)

// WatchCmd re-runs a conversion whenever its input or configuration changes
var WatchCmd = &cobra.Command{
	Use:   "watch <input>",
	Short: "Convert now and again on every change to the input",
	Long: `Convert the input, then keep watching it and re-convert after each change.

Configuration files (am.toml) are watched too; editing one reloads settings
before the next conversion. Bursts of writes are debounced (watch.debounce_ms).
A failed conversion is reported and watching continues. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	AddConvertFlags(WatchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	input := args[0]
	if input == record.StdinPath {
		return errors.New("cannot watch stdin; pass a file path")
	}
	log := logger.ComponentLogger("watch")

	cfg, err := am.Load()
	if err != nil {
		return err
	}
	runOnce(cmd, args)

	paths, configs := watchTargets(input)

	w, err := watch.New(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, paths...)
	if err != nil {
		return err
	}
	log.Infow("Watching for changes", logger.FieldInput, input)

	return w.Run(cmd.Context(), func(ctx context.Context, changed []string) {
		for _, path := range changed {
			if configs[path] {
				log.Infow("Configuration changed, reloading", logger.FieldFile, path)
				am.Reset()
				break
			}
		}
		runOnce(cmd, args)
	})
}

// watchTargets returns the input plus every config file location whose
// directory exists. The working directory's am.toml is included even before it
// is created, so a project config added mid-watch is picked up.
func watchTargets(input string) ([]string, map[string]bool) {
	candidates := am.CandidatePaths()
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, am.SourceInfo{Source: am.SourceProject, Path: filepath.Join(cwd, am.ConfigFileName)})
	}

	paths := []string{input}
	configs := map[string]bool{}
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate.Path)
		if err != nil || configs[abs] {
			continue
		}
		// directories that do not exist cannot be watched
		if _, err := os.Stat(filepath.Dir(abs)); err != nil {
			continue
		}
		paths = append(paths, abs)
		configs[abs] = true
	}
	return paths, configs
}

// runOnce converts and reports, keeping the watch loop alive on failure
func runOnce(cmd *cobra.Command, args []string) {
	if err := RunConvert(cmd, args); err != nil {
		PrintError(cmd.ErrOrStderr(), err)
	}
}
