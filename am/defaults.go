package am

import (
	"fmt"
	"runtime"

	"github.com/spf13/viper"
)

// Default values, also used by flag definitions in cmd/jflat
const (
	DefaultFormat               = "csv"
	DefaultDelimiter            = ","
	DefaultSeparator            = "."
	DefaultParallelThreshold    = 1000
	DefaultOnCollision          = "last-wins"
	DefaultSpreadsheetChunkRows = 1000
	DefaultProgressMinBytes     = 1_000_000
	DefaultProgressMinRows      = 100
	DefaultWatchDebounceMS      = 500
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Conversion defaults
	v.SetDefault("convert.format", DefaultFormat)
	v.SetDefault("convert.delimiter", DefaultDelimiter)
	v.SetDefault("convert.separator", DefaultSeparator)
	v.SetDefault("convert.crlf", false)
	v.SetDefault("convert.workers", runtime.NumCPU())
	v.SetDefault("convert.parallel_threshold", DefaultParallelThreshold)
	v.SetDefault("convert.on_collision", DefaultOnCollision)
	v.SetDefault("convert.strict_records", false)
	v.SetDefault("convert.spreadsheet_chunk_rows", DefaultSpreadsheetChunkRows)

	// Progress defaults: small inputs finish without a bar
	v.SetDefault("progress.enabled", true)
	v.SetDefault("progress.min_bytes", DefaultProgressMinBytes)
	v.SetDefault("progress.min_rows", DefaultProgressMinRows)

	v.SetDefault("log.json", false)

	v.SetDefault("watch.debounce_ms", DefaultWatchDebounceMS)
}

// DefaultConfig returns the configuration built from defaults alone
func DefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}

// EffectiveWorkers returns Workers, or NumCPU when unset
func (c ConvertConfig) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Convert: {Format: %s, Separator: %q, Workers: %d}, Progress: {Enabled: %t}}",
		c.Convert.Format, c.Convert.Separator, c.Convert.Workers, c.Progress.Enabled)
}
