// Package am loads jflat's layered configuration.
//
// Sources, lowest precedence first: built-in defaults, /etc/jflat/am.toml,
// ~/.jflat/am.toml, the nearest am.toml found walking up from the working
// directory, then JFLAT_* environment variables. Command-line flags override
// all of these in cmd/jflat.
package am

// Config represents the complete jflat configuration
type Config struct {
	Convert  ConvertConfig  `mapstructure:"convert"`
	Progress ProgressConfig `mapstructure:"progress"`
	Log      LogConfig      `mapstructure:"log"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// ConvertConfig configures the conversion pipeline
type ConvertConfig struct {
	Format               string `mapstructure:"format"`                 // csv, tsv, xlsx, excel, parquet
	Delimiter            string `mapstructure:"delimiter"`              // single character, or "tab"
	Separator            string `mapstructure:"separator"`              // joins nested key paths
	CRLF                 bool   `mapstructure:"crlf"`                   // delimited line endings
	Workers              int    `mapstructure:"workers"`                // 0 = NumCPU
	ParallelThreshold    int    `mapstructure:"parallel_threshold"`     // records before flattening goes parallel
	OnCollision          string `mapstructure:"on_collision"`           // last-wins or error
	StrictRecords        bool   `mapstructure:"strict_records"`         // reject non-object records
	SpreadsheetChunkRows int    `mapstructure:"spreadsheet_chunk_rows"` // rows between progress updates
}

// ProgressConfig configures progress display. Bars only appear for inputs at
// least MinBytes long or outputs of at least MinRows rows.
type ProgressConfig struct {
	Enabled  bool  `mapstructure:"enabled"`
	MinBytes int64 `mapstructure:"min_bytes"`
	MinRows  int   `mapstructure:"min_rows"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// WatchConfig configures `jflat watch`
type WatchConfig struct {
	DebounceMS int `mapstructure:"debounce_ms"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// Config locations
const (
	EnvPrefix      = "JFLAT"
	ConfigFileName = "am.toml"
	SystemConfig   = "/etc/jflat/am.toml"
	UserConfigDir  = ".jflat"
)
