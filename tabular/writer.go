// Package tabular renders flattened records as delimited text, a spreadsheet
// or a columnar parquet file.
//
// Every writer emits one header row in schema order followed by one row per
// record, aligned to the schema: a column the record lacks is an empty cell.
// Writers never reorder or drop columns based on an individual record's keys.
package tabular

import (
	"io"

	"github.com/teranos/jflat/flatten"
)

// Kind identifies a family of output formats
type Kind int

const (
	KindDelimited Kind = iota
	KindSpreadsheet
	KindColumnar
)

func (k Kind) String() string {
	switch k {
	case KindDelimited:
		return "delimited"
	case KindSpreadsheet:
		return "spreadsheet"
	case KindColumnar:
		return "columnar"
	default:
		return "unknown"
	}
}

// DefaultChunkRows is how many rows are written between flushes and OnRows callbacks
const DefaultChunkRows = 1000

// Writer serializes a schema and its records to w
type Writer interface {
	Kind() Kind
	// Extension is the conventional file suffix including the dot
	Extension() string
	Write(w io.Writer, schema flatten.Schema, records []flatten.Record) error
}

// RowFunc observes the running count of data rows written. It must not block.
type RowFunc func(written int)

func chunkSize(n int) int {
	if n <= 0 {
		return DefaultChunkRows
	}
	return n
}
