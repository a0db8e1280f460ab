package tabular

import (
	"sort"
	"strings"
	"sync"

	"github.com/teranos/jflat/errors"
)

// Options carries the settings a Factory may honor
type Options struct {
	Delimiter rune
	UseCRLF   bool
	ChunkRows int
	OnRows    RowFunc
}

// Factory builds a Writer for one format name
type Factory func(opts Options) Writer

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func init() {
	Register("csv", func(o Options) Writer {
		return &Delimited{Delimiter: o.Delimiter, UseCRLF: o.UseCRLF, ChunkRows: o.ChunkRows, OnRows: o.OnRows}
	})
	Register("tsv", func(o Options) Writer {
		return &Delimited{Delimiter: '\t', UseCRLF: o.UseCRLF, ChunkRows: o.ChunkRows, OnRows: o.OnRows}
	})
	spreadsheet := func(o Options) Writer {
		return &Spreadsheet{ChunkRows: o.ChunkRows, OnRows: o.OnRows}
	}
	Register("xlsx", spreadsheet)
	Register("excel", spreadsheet)
	Register("parquet", func(o Options) Writer {
		return &Parquet{ChunkRows: o.ChunkRows, OnRows: o.OnRows}
	})
}

// Register adds or replaces the factory for name (case-insensitive).
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[normalize(name)] = f
}

// Lookup returns the factory registered for name
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[normalize(name)]
	return f, ok
}

// Formats lists registered format names, sorted
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseFormat resolves name to its factory or fails with an UnsupportedFormat error.
func ParseFormat(name string) (Factory, error) {
	if f, ok := Lookup(name); ok {
		return f, nil
	}
	return nil, errors.NewUnsupportedFormatError(name, Formats())
}

// New resolves name and builds its Writer
func New(name string, opts Options) (Writer, error) {
	f, err := ParseFormat(name)
	if err != nil {
		return nil, err
	}
	return f(opts), nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
