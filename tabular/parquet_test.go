package tabular

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
)

// readParquet reads every row back as column name to value, nil for null
func readParquet(t *testing.T, data []byte, schema flatten.Schema) []map[string]*string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	pf, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer pf.Close()

	pr, err := reader.NewParquetReader(pf, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	objs, err := pr.ReadByNumber(int(pr.GetNumRows()))
	require.NoError(t, err)

	rows := make([]map[string]*string, len(objs))
	for i, obj := range objs {
		v := reflect.ValueOf(obj)
		rows[i] = make(map[string]*string, len(schema))
		for _, col := range schema {
			f := v.FieldByName(parquetIdentifier(col))
			require.True(t, f.IsValid(), "no field for column %q", col)
			if !f.IsNil() {
				s := f.Elem().String()
				rows[i][col] = &s
			} else {
				rows[i][col] = nil
			}
		}
	}
	return rows
}

func text(s string) *string { return &s }

func TestParquet_Write(t *testing.T) {
	schema, records := flat(t, `[{"a":1,"b":{"c":"x"}},{"a":2,"b":{"d":true}},{"a":null,"tags":[1,"two"]}]`)

	var rows []int
	p := &Parquet{ChunkRows: 2, OnRows: func(n int) { rows = append(rows, n) }}
	var buf bytes.Buffer
	require.NoError(t, p.Write(&buf, schema, records))
	assert.Equal(t, []int{2, 3}, rows)

	data := buf.Bytes()
	require.Greater(t, len(data), 8)
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))

	got := readParquet(t, data, schema)
	assert.Equal(t, []map[string]*string{
		{"a": text("1"), "b.c": text("x"), "b.d": nil, "tags": nil},
		{"a": text("2"), "b.c": nil, "b.d": text("true"), "tags": nil},
		{"a": nil, "b.c": nil, "b.d": nil, "tags": text(`[1,"two"]`)},
	}, got)
}

func TestParquet_PunctuatedKeys(t *testing.T) {
	// "a.b" and "a_b" get distinct parquet identifiers
	schema, records := flat(t, `[{"a.b":"dot","a_b":"underscore"},{"a_b":"only"}]`)

	var buf bytes.Buffer
	require.NoError(t, (&Parquet{}).Write(&buf, schema, records))

	got := readParquet(t, buf.Bytes(), schema)
	assert.Equal(t, []map[string]*string{
		{"a.b": text("dot"), "a_b": text("underscore")},
		{"a.b": nil, "a_b": text("only")},
	}, got)
}

func TestParquet_NoColumns(t *testing.T) {
	for _, doc := range []string{`[{}]`, `[{},{"a":{}}]`} {
		t.Run(doc, func(t *testing.T) {
			schema, records := flat(t, doc)
			require.Empty(t, schema)

			var buf bytes.Buffer
			err := (&Parquet{}).Write(&buf, schema, records)
			require.Error(t, err)
			assert.Equal(t, errors.KindWrite, errors.KindOf(err))
			assert.Zero(t, buf.Len())
		})
	}
}

func TestParquet_RejectsUnstorableColumns(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"comma in key", `[{"a,b":1}]`},
		{"equals in key", `[{"a=b":1}]`},
		{"unnamed column", `[1]`},
		{"identifier clash", `[{"b.c":"dot","b46c":"plain"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, records := flat(t, tt.doc)
			var buf bytes.Buffer
			err := (&Parquet{}).Write(&buf, schema, records)
			require.Error(t, err)
			assert.Equal(t, errors.KindWrite, errors.KindOf(err))
		})
	}
}

func TestParquetIdentifier(t *testing.T) {
	assert.Equal(t, "User46name", parquetIdentifier("user.name"))
	assert.Equal(t, "A_b", parquetIdentifier("a_b"))
	assert.Equal(t, parquetIdentifier("b.c"), parquetIdentifier("b46c"))
	assert.NotEqual(t, parquetIdentifier("a.b"), parquetIdentifier("a_b"))
}
