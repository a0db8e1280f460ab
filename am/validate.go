package am

import (
	"strings"
	"unicode/utf8"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
	"github.com/teranos/jflat/tabular"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := tabular.ParseFormat(c.Convert.Format); err != nil {
		return errors.Wrap(err, "convert.format")
	}
	if _, err := c.Convert.DelimiterRune(); err != nil {
		return err
	}
	if c.Convert.Separator == "" {
		return errors.New("convert.separator cannot be empty")
	}

	// Workers: 0 = NumCPU, negative = invalid
	if c.Convert.Workers < 0 {
		return errors.Newf("convert.workers must be >= 0, got %d", c.Convert.Workers)
	}
	if c.Convert.ParallelThreshold < 0 {
		return errors.Newf("convert.parallel_threshold must be >= 0, got %d", c.Convert.ParallelThreshold)
	}
	if _, err := flatten.ParseCollisionPolicy(c.Convert.OnCollision); err != nil {
		return errors.Wrap(err, "convert.on_collision")
	}
	if c.Convert.SpreadsheetChunkRows < 0 {
		return errors.Newf("convert.spreadsheet_chunk_rows must be >= 0, got %d", c.Convert.SpreadsheetChunkRows)
	}

	if c.Progress.MinBytes < 0 {
		return errors.Newf("progress.min_bytes must be >= 0, got %d", c.Progress.MinBytes)
	}
	if c.Progress.MinRows < 0 {
		return errors.Newf("progress.min_rows must be >= 0, got %d", c.Progress.MinRows)
	}

	if c.Watch.DebounceMS < 0 {
		return errors.Newf("watch.debounce_ms must be >= 0, got %d", c.Watch.DebounceMS)
	}

	return nil
}

// DelimiterRune decodes the configured delimiter. Accepts a single character,
// the escape `\t`, or the word "tab".
func (c ConvertConfig) DelimiterRune() (rune, error) {
	return ParseDelimiter(c.Delimiter)
}

// ParseDelimiter decodes a delimiter setting or flag value
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, errors.WithHint(
			errors.Newf("convert.delimiter must be a single character, got %q", s),
			"use \"tab\" for tab-separated output")
	}
	r, _ := utf8.DecodeRuneInString(s)
	if err := tabular.ValidDelimiter(r); err != nil {
		return 0, errors.Wrap(err, "convert.delimiter")
	}
	return r, nil
}
