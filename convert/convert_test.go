package convert

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xuri/excelize/v2"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
	"github.com/teranos/jflat/progress"
	"github.com/teranos/jflat/tabular"
)

type recorder struct {
	mu       sync.Mutex
	stages   []string
	errors   []string
	complete map[string]interface{}
	counts   map[string]int
}

func (r *recorder) EmitStage(stage, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recorder) EmitProgress(count int, md map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	stage, _ := md[progress.KeyStage].(string)
	if count > r.counts[stage] {
		r.counts[stage] = count
	}
}

func (r *recorder) EmitComplete(summary map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = summary
}

func (r *recorder) EmitError(stage string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, stage)
}

func (r *recorder) EmitInfo(string) {}

func writeInput(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConvert_CSV(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "data.json", `[{"a":1,"b":{"c":2}},{"a":3,"b":{"d":4}}]`)
	out := filepath.Join(dir, "out.csv")

	rec := &recorder{}
	res, err := Convert(context.Background(), Options{
		InputPath:  in,
		OutputPath: out,
		Progress:   rec,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 3, res.Columns)
	assert.Equal(t, out, res.OutputPath)
	assert.False(t, res.Empty)
	assert.NotEmpty(t, res.RunID)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a,b.c,b.d\n1,2,\n3,,4\n", string(got))

	assert.Equal(t, []string{progress.StageRead, progress.StageFlatten, progress.StageWrite}, rec.stages)
	assert.Equal(t, 2, rec.counts[progress.StageFlatten])
	assert.Equal(t, 2, rec.counts[progress.StageWrite])
	require.NotNil(t, rec.complete)
	assert.Equal(t, 2, rec.complete["records"])
}

func TestConvert_SingleObject(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "one.json", `{"x":{"y":[1,2]},"z":null}`)
	out := filepath.Join(dir, "one.tsv")

	_, err := Convert(context.Background(), Options{InputPath: in, OutputPath: out, Format: "tsv"})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "x.y\tz\n[1,2]\t\n", string(got))
}

func TestConvert_CustomSeparatorAndDelimiter(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "d.json", `[{"a":{"b":"x;y"}}]`)
	out := filepath.Join(dir, "d.csv")

	_, err := Convert(context.Background(), Options{
		InputPath:  in,
		OutputPath: out,
		Separator:  "_",
		Delimiter:  ';',
		CRLF:       true,
	})
	require.NoError(t, err)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a_b\r\n\"x;y\"\r\n", string(got))
}

func TestConvert_Parallel(t *testing.T) {
	dir := t.TempDir()
	body := "["
	for i := 0; i < 500; i++ {
		if i > 0 {
			body += ","
		}
		body += `{"n":` + strconv.Itoa(i) + `}`
	}
	body += "]"
	in := writeInput(t, dir, "many.json", body)
	out := filepath.Join(dir, "many.csv")

	res, err := Convert(context.Background(), Options{
		InputPath:         in,
		OutputPath:        out,
		Workers:           4,
		ParallelThreshold: 10,
		ChunkRows:         100,
	})
	require.NoError(t, err)
	assert.Equal(t, 500, res.Records)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	want := "n\n"
	for i := 0; i < 500; i++ {
		want += strconv.Itoa(i) + "\n"
	}
	assert.Equal(t, want, string(got))
}

func TestConvert_Spreadsheet(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "s.json", `[{"a":1,"b":true}]`)

	res, err := Convert(context.Background(), Options{
		InputPath:  in,
		OutputPath: filepath.Join(dir, "report.dat"),
		Format:     "excel",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.xlsx"), res.OutputPath)

	f, err := excelize.OpenFile(res.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(tabular.SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "TRUE"}}, rows)
}

func TestConvert_Parquet(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "p.json", `[{"a":1,"b":{"c":"x"}},{"a":2}]`)

	res, err := Convert(context.Background(), Options{
		InputPath:  in,
		OutputPath: filepath.Join(dir, "p.parquet"),
		Format:     "parquet",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 2, res.Columns)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))

	pf, err := local.NewLocalFileReader(res.OutputPath)
	require.NoError(t, err)
	defer pf.Close()
	pr, err := reader.NewParquetReader(pf, nil, 1)
	require.NoError(t, err)
	defer pr.ReadStop()
	objs, err := pr.ReadByNumber(int(pr.GetNumRows()))
	require.NoError(t, err)
	require.Len(t, objs, 2)

	// parquet field identifiers for "a" and "b.c"
	cell := func(row int, field string) interface{} {
		f := reflect.ValueOf(objs[row]).FieldByName(field)
		require.True(t, f.IsValid(), field)
		if f.IsNil() {
			return nil
		}
		return f.Elem().String()
	}
	assert.Equal(t, "1", cell(0, "A"))
	assert.Equal(t, "x", cell(0, "B46c"))
	assert.Equal(t, "2", cell(1, "A"))
	assert.Nil(t, cell(1, "B46c"))
}

func TestConvert_ParquetWithoutColumns(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "hollow.json", `[{},{"a":{}}]`)
	out := filepath.Join(dir, "hollow.parquet")

	_, err := Convert(context.Background(), Options{InputPath: in, OutputPath: out, Format: "parquet"})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindWrite))
	assert.NoFileExists(t, out)
}

func TestConvert_EmptyInput(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "empty.json", `[]`)
	out := filepath.Join(dir, "empty.csv")

	res, err := Convert(context.Background(), Options{InputPath: in, OutputPath: out})
	require.NoError(t, err)
	assert.True(t, res.Empty)
	assert.True(t, errors.IsKind(res.Notice, errors.KindEmptyInput))
	assert.NoFileExists(t, out)
}

func TestConvert_Errors(t *testing.T) {
	dir := t.TempDir()
	valid := writeInput(t, dir, "ok.json", `[{"a":1}]`)
	broken := writeInput(t, dir, "bad.json", `[{"a":1},`)
	collide := writeInput(t, dir, "col.json", `[{"a.b":1,"a":{"b":2}}]`)
	scalar := writeInput(t, dir, "scalar.json", `[1]`)

	tests := []struct {
		name  string
		opts  Options
		kind  errors.Kind
		stage string
	}{
		{"unsupported format", Options{InputPath: valid, Format: "pdf"}, errors.KindUnsupportedFormat, ""},
		{"missing input", Options{InputPath: filepath.Join(dir, "nope.json")}, errors.KindNotFound, progress.StageRead},
		{"directory input", Options{InputPath: dir}, errors.KindNotFound, progress.StageRead},
		{"malformed json", Options{InputPath: broken}, errors.KindParse, progress.StageRead},
		{"collision", Options{InputPath: collide, Collision: flatten.CollisionError}, errors.KindSchemaCollision, progress.StageFlatten},
		{"strict records", Options{InputPath: scalar, StrictRecords: true}, errors.KindRecordShape, progress.StageFlatten},
		{"missing output dir", Options{InputPath: valid, OutputPath: filepath.Join(dir, "no", "out.csv")}, errors.KindNotFound, progress.StageWrite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			tt.opts.Progress = rec
			if tt.opts.OutputPath == "" {
				tt.opts.OutputPath = filepath.Join(t.TempDir(), "out.csv")
			}

			res, err := Convert(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.kind, errors.KindOf(err), "got %v", err)
			assert.NoFileExists(t, tt.opts.OutputPath)

			if tt.stage == "" {
				assert.Empty(t, rec.stages, "format is checked before any I/O")
			} else {
				assert.Equal(t, []string{tt.stage}, rec.errors)
			}
		})
	}
}

func TestConvert_InvalidDelimiter(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "ok.json", `[{"a":1}]`)
	_, err := Convert(context.Background(), Options{InputPath: in, OutputPath: filepath.Join(dir, "o.csv"), Delimiter: '"'})
	require.Error(t, err)
}

func TestConvert_Cancelled(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "ok.json", `[{"a":1}]`)
	out := filepath.Join(dir, "o.csv")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Convert(ctx, Options{InputPath: in, OutputPath: out})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInterrupted))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, out)
}

func TestConvert_DeadlineExceeded(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "ok.json", `[{"a":1},{"a":2}]`)
	out := filepath.Join(dir, "o.csv")

	ctx, cancel := context.WithTimeout(context.Background(), -1)
	defer cancel()
	rec := &recorder{}
	_, err := Convert(ctx, Options{InputPath: in, OutputPath: out, Progress: rec})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInterrupted))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotEmpty(t, rec.errors)
	assert.NoFileExists(t, out)
}

func TestResolveOutputPath(t *testing.T) {
	csv := &tabular.Delimited{}
	tsv := &tabular.Delimited{Delimiter: '\t'}
	xlsx := &tabular.Spreadsheet{}

	tests := []struct {
		name   string
		input  string
		output string
		w      tabular.Writer
		want   string
	}{
		{"default csv uses input stem", "/data/in/people.json", "", csv, "people.csv"},
		{"default tsv", "people.json", "", tsv, "people.tsv"},
		{"default xlsx", "dir/people.data.json", "", xlsx, "people.data.xlsx"},
		{"no extension", "people", "", csv, "people.csv"},
		{"stdin to stdout", "-", "", csv, "-"},
		{"stdin spreadsheet", "-", "", xlsx, "output.xlsx"},
		{"explicit kept", "a.json", "out/b.txt", csv, "out/b.txt"},
		{"xlsx suffix kept", "a.json", "b.xlsx", xlsx, "b.xlsx"},
		{"xls suffix kept", "a.json", "b.XLS", xlsx, "b.XLS"},
		{"xlsx suffix replaced", "a.json", "out/b.csv", xlsx, "out/b.xlsx"},
		{"xlsx suffix added", "a.json", "report", xlsx, "report.xlsx"},
		{"xlsx stdout", "a.json", "-", xlsx, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveOutputPath(tt.input, tt.output, tt.w))
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	got, err := DefaultOutputPath("x/report.json", "excel")
	require.NoError(t, err)
	assert.Equal(t, "report.xlsx", got)

	_, err = DefaultOutputPath("x.json", "pdf")
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedFormat))
}

func TestExceedsMemory(t *testing.T) {
	assert.False(t, exceedsMemory(100, 1000))
	assert.True(t, exceedsMemory(300, 1000))
	assert.False(t, exceedsMemory(300, 0))
	assert.False(t, exceedsMemory(0, 1000))
}
