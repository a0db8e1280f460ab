package tabular

import (
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
)

// SheetName is the only worksheet a spreadsheet output contains
const SheetName = "Sheet1"

// Spreadsheet writes a single-sheet xlsx workbook through excelize's stream writer.
type Spreadsheet struct {
	ChunkRows int
	OnRows    RowFunc
}

func (s *Spreadsheet) Kind() Kind         { return KindSpreadsheet }
func (s *Spreadsheet) Extension() string { return ".xlsx" }

func (s *Spreadsheet) Write(w io.Writer, schema flatten.Schema, records []flatten.Record) error {
	if len(schema) > excelize.MaxColumns {
		return errors.NewWriteError("", "spreadsheet column limit exceeded",
			errors.Newf("%d columns, max %d", len(schema), excelize.MaxColumns))
	}
	// header occupies the first row
	if len(records)+1 > excelize.TotalRows {
		return errors.NewWriteError("", "spreadsheet row limit exceeded",
			errors.Newf("%d rows, max %d", len(records)+1, excelize.TotalRows))
	}

	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return errors.Wrap(err, "failed to open sheet stream")
	}

	header := make([]interface{}, len(schema))
	for i, col := range schema {
		if err := storableText(col, 0, col); err != nil {
			return err
		}
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	chunk := chunkSize(s.ChunkRows)
	row := make([]interface{}, len(schema))
	for i, r := range records {
		for j, col := range schema {
			row[j] = cellValue(r[col])
			if text, ok := row[j].(string); ok {
				if err := storableText(text, i+1, col); err != nil {
					return err
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrapf(err, "row %d", i+1)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+1)
		}
		if s.OnRows != nil && (i+1)%chunk == 0 {
			s.OnRows(i + 1)
		}
	}

	if err := sw.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush sheet")
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	if s.OnRows != nil && len(records)%chunk != 0 {
		s.OnRows(len(records))
	}
	return nil
}

// cellValue maps a terminal value to the type excelize stores natively.
// Integers that fit int64 stay exact; other numbers go through float64, and
// literals float64 cannot hold are kept as text.
func cellValue(v flatten.Value) interface{} {
	switch v.Kind() {
	case flatten.Null:
		return nil
	case flatten.Bool:
		return v.Bool()
	case flatten.Number:
		lit := string(v.Number())
		if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return n
		}
		if f, ok := v.Float(); ok {
			return f
		}
		return lit
	default:
		return v.Str()
	}
}

// storableText rejects text excelize would alter on write: cells longer than
// the per-cell limit are cut and characters outside the XML range are replaced.
// Row 0 is the header.
func storableText(text string, row int, col string) error {
	if utf8.RuneCountInString(text) > excelize.TotalCellChars {
		return unstorableCell(row, col,
			errors.Newf("%d characters, max %d", utf8.RuneCountInString(text), excelize.TotalCellChars))
	}
	for _, r := range text {
		if !xmlChar(r) {
			return unstorableCell(row, col, errors.Newf("character %U is not allowed in a cell", r))
		}
	}
	return nil
}

func xmlChar(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r >= 0x20 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return true
	default:
		return r >= 0x10000 && r <= utf8.MaxRune
	}
}

func unstorableCell(row int, col string, cause error) error {
	if row == 0 {
		cause = errors.Wrapf(cause, "header, column %q", col)
	} else {
		cause = errors.Wrapf(cause, "row %d, column %q", row, col)
	}
	return errors.WithHint(
		errors.NewWriteError("", "value cannot be stored in a spreadsheet cell", cause),
		"use csv or tsv output, which keeps every value intact")
}
