package tabular

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/common"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
)

// parquetParallelism is the number of goroutines parquet-go uses to encode a row group
const parquetParallelism = 4

// Parquet writes a snappy-compressed parquet file. Every column is an optional
// UTF-8 string holding the same text a delimited cell would; null stays null.
type Parquet struct {
	ChunkRows int
	OnRows    RowFunc
}

func (p *Parquet) Kind() Kind         { return KindColumnar }
func (p *Parquet) Extension() string { return ".parquet" }

func (p *Parquet) Write(w io.Writer, schema flatten.Schema, records []flatten.Record) error {
	// parquet-go cannot lay out a row group without a column chunk
	if len(schema) == 0 {
		return errors.WithHint(
			errors.NewWriteError("", "parquet output needs at least one column",
				errors.Newf("%d records produced no keys", len(records))),
			"records holding only empty objects have no columns; choose csv output for a header-less file")
	}

	def, err := parquetSchema(schema)
	if err != nil {
		return err
	}

	pfw := writerfile.NewWriterFile(w)
	defer pfw.Close()

	pw, err := writer.NewJSONWriter(def, pfw, parquetParallelism)
	if err != nil {
		return errors.Wrap(err, "failed to build parquet schema")
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	chunk := chunkSize(p.ChunkRows)
	row := make(map[string]interface{}, len(schema))
	for i, r := range records {
		for _, col := range schema {
			v := r[col]
			if v.IsNull() {
				row[col] = nil
			} else {
				row[col] = v.Text()
			}
		}
		data, err := json.Marshal(row)
		if err != nil {
			_ = pw.WriteStop()
			return errors.Wrapf(err, "failed to encode row %d", i+1)
		}
		if err := pw.Write(string(data)); err != nil {
			_ = pw.WriteStop()
			return errors.Wrapf(err, "failed to write row %d", i+1)
		}
		if p.OnRows != nil && (i+1)%chunk == 0 {
			p.OnRows(i + 1)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return errors.Wrap(err, "failed to finish parquet file")
	}
	if p.OnRows != nil && len(records)%chunk != 0 {
		p.OnRows(len(records))
	}
	return nil
}

// parquetSchema builds parquet-go's JSON schema definition. Column names are
// embedded in comma separated tags, so names that would break the tag are rejected.
func parquetSchema(schema flatten.Schema) (string, error) {
	fields := make([]map[string]string, 0, len(schema))
	internal := make(map[string]string, len(schema))
	for _, col := range schema {
		if col == "" || strings.ContainsAny(col, ",=") || strings.TrimSpace(col) != col {
			return "", unstorable(col, "")
		}
		in := parquetIdentifier(col)
		if other, dup := internal[in]; dup {
			return "", unstorable(col, other)
		}
		internal[in] = col
		fields = append(fields, map[string]string{
			"Tag": "name=" + col + ", type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL",
		})
	}

	def, err := json.Marshal(map[string]interface{}{
		"Tag":    "name=parquet_go_root, repetitiontype=REQUIRED",
		"Fields": fields,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode parquet schema")
	}
	return string(def), nil
}

// parquetIdentifier is the field identifier parquet-go derives from a column
// name. Two columns mapping to one identifier would share storage.
func parquetIdentifier(col string) string {
	return common.StringToVariableName(col)
}

func unstorable(col, clash string) error {
	cause := errors.Newf("column %q", col)
	if clash != "" {
		cause = errors.Newf("columns %q and %q map to the same parquet field", clash, col)
	}
	return errors.WithHint(
		errors.NewWriteError("", "column cannot be stored in parquet", cause),
		"rename the keys, use another --separator, or choose csv output")
}
