package tabular

import (
	"encoding/csv"
	"io"
	"unicode/utf8"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
)

// Delimited writes RFC 4180 style text: CSV, TSV or any single-rune delimiter.
type Delimited struct {
	Delimiter rune // ',' when zero
	UseCRLF   bool
	ChunkRows int
	OnRows    RowFunc
}

func (d *Delimited) Kind() Kind { return KindDelimited }

func (d *Delimited) Extension() string {
	if d.delimiter() == '\t' {
		return ".tsv"
	}
	return ".csv"
}

func (d *Delimited) delimiter() rune {
	if d.Delimiter == 0 {
		return ','
	}
	return d.Delimiter
}

// ValidDelimiter rejects runes encoding/csv cannot use as a field separator
func ValidDelimiter(r rune) error {
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError || !utf8.ValidRune(r) {
		return errors.Newf("invalid delimiter %q", r)
	}
	return nil
}

// Write emits the header row then one row per record. Cells: null is empty,
// booleans are true/false, numbers keep their source literal.
func (d *Delimited) Write(w io.Writer, schema flatten.Schema, records []flatten.Record) error {
	if err := ValidDelimiter(d.delimiter()); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = d.delimiter()
	cw.UseCRLF = d.UseCRLF

	if err := cw.Write(schema); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	chunk := chunkSize(d.ChunkRows)
	row := make([]string, len(schema))
	for i, r := range records {
		for j, col := range schema {
			row[j] = r[col].Text()
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+1)
		}
		if (i+1)%chunk == 0 {
			cw.Flush()
			if err := cw.Error(); err != nil {
				return errors.Wrapf(err, "failed to flush rows up to %d", i+1)
			}
			if d.OnRows != nil {
				d.OnRows(i + 1)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "failed to flush output")
	}
	if d.OnRows != nil && len(records)%chunk != 0 {
		d.OnRows(len(records))
	}
	return nil
}
