// Package convert runs the full JSON to tabular pipeline: load, flatten,
// unify the schema, then write atomically.
package convert

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
	"github.com/teranos/jflat/logger"
	"github.com/teranos/jflat/progress"
	"github.com/teranos/jflat/record"
	"github.com/teranos/jflat/tabular"
)

// DefaultFormat is used when Options.Format is empty
const DefaultFormat = "csv"

// Options configures one conversion
type Options struct {
	InputPath  string // "-" reads stdin
	OutputPath string // "" derives from the input, "-" writes stdout
	Format     string // registered tabular format name

	Delimiter rune // delimited formats only; 0 = ','
	CRLF      bool
	Separator string // 0-length = flatten.DefaultSeparator

	Collision     flatten.CollisionPolicy
	StrictRecords bool

	// Workers > 1 flattens in parallel once there are ParallelThreshold records
	Workers           int
	ParallelThreshold int
	// ChunkRows is how often write progress is reported
	ChunkRows int

	// Progress receives stage and count updates. nil disables reporting.
	Progress progress.Emitter
}

// Result summarizes a finished conversion
type Result struct {
	RunID      string
	Records    int
	Columns    int
	OutputPath string
	// Empty is set when the input held zero records. No file is written and
	// Notice carries the soft EmptyInput error for display.
	Empty    bool
	Notice   error
	Duration time.Duration
}

// Convert runs the pipeline. The format is validated before any I/O; on
// failure no output file is left behind and the returned error keeps the
// classification of the stage that raised it.
func Convert(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	emit := progress.OrNop(opts.Progress)
	log := logger.ComponentLogger("convert").With(logger.FieldRunID, runID)

	format := opts.Format
	if format == "" {
		format = DefaultFormat
	}

	var total atomic.Int64
	chunk := opts.ChunkRows
	if chunk <= 0 {
		chunk = tabular.DefaultChunkRows
	}
	writer, err := tabular.New(format, tabular.Options{
		Delimiter: opts.Delimiter,
		UseCRLF:   opts.CRLF,
		ChunkRows: chunk,
		OnRows: func(written int) {
			emit.EmitProgress(written, progress.Counter(progress.StageWrite, total.Load(), "rows"))
		},
	})
	if err != nil {
		return nil, err
	}
	if d, ok := writer.(*tabular.Delimited); ok && d.Delimiter != 0 {
		if err := tabular.ValidDelimiter(d.Delimiter); err != nil {
			return nil, err
		}
	}

	output := ResolveOutputPath(opts.InputPath, opts.OutputPath, writer)
	result := &Result{RunID: runID, OutputPath: output}
	log.Debugw("Starting conversion",
		logger.FieldInput, opts.InputPath,
		logger.FieldOutput, output,
		logger.FieldFormat, format)

	fail := func(stage string, err error) (*Result, error) {
		if errors.KindOf(err) == errors.KindUnknown && errors.IsAny(err, context.Canceled, context.DeadlineExceeded) {
			err = errors.NewInterruptedError(stage, err)
		}
		emit.EmitError(stage, err)
		log.Debugw("Conversion failed",
			"stage", stage,
			logger.FieldError, err,
			logger.FieldErrorKind, errors.KindOf(err).String())
		return nil, err
	}

	// Read
	checkMemory(opts.InputPath, log)
	emit.EmitStage(progress.StageRead, "Reading "+displayName(opts.InputPath))
	set, err := record.LoadFile(ctx, opts.InputPath, record.WithProgress(-1, func(read, size int64) {
		emit.EmitProgress(int(read), progress.Counter(progress.StageRead, size, "bytes"))
	}))
	if err != nil {
		return fail(progress.StageRead, err)
	}

	if len(set) == 0 {
		result.Empty = true
		result.Notice = errors.NewEmptyInputError(opts.InputPath)
		result.Duration = time.Since(start)
		log.Warnw("No data found in the input file", logger.FieldInput, opts.InputPath)
		emit.EmitInfo("No data found in the input file")
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return fail(progress.StageRead, err)
	}

	// Flatten
	emit.EmitStage(progress.StageFlatten, "Flattening records")
	f := &flatten.Flattener{
		Separator:     opts.Separator,
		Collision:     opts.Collision,
		StrictRecords: opts.StrictRecords,
	}
	var flattened atomic.Int64
	records, err := f.All(ctx, set, opts.Workers, opts.ParallelThreshold, func() {
		if n := flattened.Add(1); n%int64(chunk) == 0 || n == int64(len(set)) {
			emit.EmitProgress(int(n), progress.Counter(progress.StageFlatten, int64(len(set)), "records"))
		}
	})
	if err != nil {
		return fail(progress.StageFlatten, err)
	}
	schema := flatten.Unify(records)

	// Write
	if err := ctx.Err(); err != nil {
		return fail(progress.StageWrite, err)
	}
	total.Store(int64(len(records)))
	emit.EmitStage(progress.StageWrite, "Converting to "+strings.ToUpper(format))
	if err := tabular.WriteFile(output, writer, schema, records); err != nil {
		return fail(progress.StageWrite, err)
	}

	result.Records = len(records)
	result.Columns = len(schema)
	result.Duration = time.Since(start)

	emit.EmitComplete(map[string]interface{}{
		logger.FieldRunID:      runID,
		logger.FieldRecords:    result.Records,
		logger.FieldColumns:    result.Columns,
		logger.FieldOutput:     output,
		logger.FieldDurationMS: result.Duration.Milliseconds(),
	})
	log.Infow("Conversion finished",
		logger.FieldInput, opts.InputPath,
		logger.FieldOutput, output,
		logger.FieldRecords, result.Records,
		logger.FieldColumns, result.Columns,
		logger.FieldDurationMS, result.Duration.Milliseconds())
	return result, nil
}

// DefaultOutputPath names the output after the input's base name, in the
// working directory, with the format's extension. Stdin maps to stdout for
// delimited formats and to "output" otherwise.
func DefaultOutputPath(input, format string) (string, error) {
	w, err := tabular.New(format, tabular.Options{})
	if err != nil {
		return "", err
	}
	return ResolveOutputPath(input, "", w), nil
}

// ResolveOutputPath applies DefaultOutputPath rules when output is empty, and
// forces the .xlsx extension for spreadsheets.
func ResolveOutputPath(input, output string, w tabular.Writer) string {
	if output == "" {
		switch {
		case input == record.StdinPath && w.Kind() == tabular.KindDelimited:
			return tabular.StdoutPath
		case input == record.StdinPath:
			output = "output"
		default:
			base := filepath.Base(input)
			output = strings.TrimSuffix(base, filepath.Ext(base))
		}
		return output + w.Extension()
	}

	if w.Kind() == tabular.KindSpreadsheet && output != tabular.StdoutPath {
		ext := strings.ToLower(filepath.Ext(output))
		if ext != ".xlsx" && ext != ".xls" {
			output = strings.TrimSuffix(output, filepath.Ext(output)) + w.Extension()
		}
	}
	return output
}

func displayName(path string) string {
	if path == record.StdinPath {
		return "stdin"
	}
	return filepath.Base(path)
}
