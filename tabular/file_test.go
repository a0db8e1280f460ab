package tabular

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/flatten"
)

// failingWriter writes a partial header then fails
type failingWriter struct{}

func (failingWriter) Kind() Kind        { return KindDelimited }
func (failingWriter) Extension() string { return ".csv" }
func (failingWriter) Write(w io.Writer, _ flatten.Schema, _ []flatten.Record) error {
	io.WriteString(w, "partial,")
	return errors.New("disk on fire")
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	schema, records := flat(t, `[{"a":1,"b":{"c":2}},{"a":3,"b":{"d":4}}]`)

	require.NoError(t, WriteFile(path, &Delimited{}, schema, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b.c,b.d\n1,2,\n3,,4\n", string(data))
	assert.Equal(t, []string{"out.csv"}, dirEntries(t, dir))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestWriteFile_NoRecordsNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	require.NoError(t, WriteFile(path, &Delimited{}, nil, nil))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, dirEntries(t, dir))
}

func TestWriteFile_FailureLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	schema, records := flat(t, `[{"a":1}]`)

	t.Run("fresh target", func(t *testing.T) {
		path := filepath.Join(dir, "fresh.csv")
		err := WriteFile(path, failingWriter{}, schema, records)
		require.Error(t, err)
		assert.True(t, errors.IsKind(err, errors.KindWrite))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("existing target untouched", func(t *testing.T) {
		path := filepath.Join(dir, "existing.csv")
		require.NoError(t, os.WriteFile(path, []byte("old\n"), 0644))

		err := WriteFile(path, failingWriter{}, schema, records)
		require.Error(t, err)

		data, readErr := os.ReadFile(path)
		require.NoError(t, readErr)
		assert.Equal(t, "old\n", string(data))
	})

	assert.ElementsMatch(t, []string{"existing.csv"}, dirEntries(t, dir))
}

func TestWriteFile_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0644))

	schema, records := flat(t, `{"a":1}`)
	require.NoError(t, WriteFile(path, &Delimited{}, schema, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(data))
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.csv")
	schema, records := flat(t, `{"a":1}`)

	err := WriteFile(path, &Delimited{}, schema, records)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestWriteFile_TargetIsDirectory(t *testing.T) {
	dir := t.TempDir()
	schema, records := flat(t, `{"a":1}`)

	err := WriteFile(dir, &Delimited{}, schema, records)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindWrite))
}

func TestWriteFile_Spreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	schema, records := flat(t, `[{"a":1},{"b":"x"}]`)

	require.NoError(t, WriteFile(path, &Spreadsheet{}, schema, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	f := openWorkbook(t, data)
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rows[0])
}

func TestIsBrokenPipe(t *testing.T) {
	assert.True(t, IsBrokenPipe(io.ErrClosedPipe))
	assert.True(t, IsBrokenPipe(errors.Wrap(io.ErrClosedPipe, "write")))
	assert.False(t, IsBrokenPipe(nil))
	assert.False(t, IsBrokenPipe(io.EOF))
}
