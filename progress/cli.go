package progress

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/pterm/pterm"
)

// CLIEmitter renders progress to a terminal using pterm. Counted stages get a
// progress bar; everything else prints a line.
type CLIEmitter struct {
	verbosity int
	out       io.Writer

	mu   sync.Mutex
	bars map[string]*pterm.ProgressbarPrinter
}

// NewCLIEmitter creates a CLI progress emitter writing to stderr
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return NewCLIEmitterTo(os.Stderr, verbosity)
}

// NewCLIEmitterTo creates a CLI progress emitter writing to out
func NewCLIEmitterTo(out io.Writer, verbosity int) *CLIEmitter {
	return &CLIEmitter{
		verbosity: verbosity,
		out:       out,
		bars:      make(map[string]*pterm.ProgressbarPrinter),
	}
}

// EmitStage prints a stage announcement
func (e *CLIEmitter) EmitStage(stage string, message string) {
	if e.verbosity >= 1 {
		fmt.Fprintf(e.out, "%s: %s\n", pterm.LightCyan(stage), message)
	}
}

// EmitProgress advances the stage's bar, starting one on first use
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	stage, total := stageOf(metadata), totalOf(metadata)
	if stage == "" || total <= 0 {
		if e.verbosity >= 1 {
			fmt.Fprintf(e.out, "Processed %s items\n", pterm.Green(fmt.Sprintf("%d", count)))
		}
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bar, ok := e.bars[stage]
	if !ok {
		started, err := pterm.DefaultProgressbar.
			WithTotal(int(total)).
			WithTitle(stage).
			WithWriter(e.out).
			WithRemoveWhenDone(true).
			Start()
		if err != nil {
			return
		}
		bar = started
		e.bars[stage] = bar
	}

	if delta := count - bar.Current; delta > 0 {
		bar.Add(delta)
	}
	if bar.Current >= bar.Total {
		bar.Stop()
		delete(e.bars, stage)
	}
}

// EmitComplete stops any open bars and prints the summary at -v
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	e.stopAll()
	if e.verbosity >= 1 {
		keys := make([]string, 0, len(summary))
		for k := range summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(e.out, "  %s: %v\n", k, summary[k])
		}
	}
}

// EmitError stops open bars so the error line is not interleaved with them
func (e *CLIEmitter) EmitError(stage string, err error) {
	e.stopAll()
	if e.verbosity >= 1 {
		fmt.Fprintf(e.out, "%s in %s: %v\n", pterm.Red("error"), stage, err)
	}
}

// EmitInfo prints informational message
func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity >= 1 {
		fmt.Fprintln(e.out, message)
	}
}

func (e *CLIEmitter) stopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for stage, bar := range e.bars {
		bar.Stop()
		delete(e.bars, stage)
	}
}
