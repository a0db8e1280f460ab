package am

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), UserConfigDir, ConfigFileName)

	require.NoError(t, SetValue(path, "convert.format", "xlsx"))
	require.NoError(t, SetValue(path, "convert.workers", "3"))
	require.NoError(t, SetValue(path, "convert.crlf", "true"))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "xlsx", cfg.Convert.Format)
	assert.Equal(t, 3, cfg.Convert.Workers)
	assert.True(t, cfg.Convert.CRLF)

	// every write after the first rotated a backup
	for _, suffix := range []string{".back1", ".back2"} {
		_, err := os.Stat(path + suffix)
		assert.NoError(t, err, suffix)
	}
	_, err = os.Stat(path + ".back3")
	assert.True(t, os.IsNotExist(err))
}

func TestSetValue_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	assert.Error(t, SetValue(path, "convert.nope", "1"), "unknown key")
	assert.Error(t, SetValue(path, "convert", "x"), "section")
	assert.Error(t, SetValue(path, "convert.format", "pdf"), "invalid value")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing written on rejection")
}

func TestCreateBackup_Rotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	for _, content := range []string{"one", "two", "three", "four"} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		require.NoError(t, createBackup(path))
	}

	read := func(p string) string {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, "four", read(path+".back1"))
	assert.Equal(t, "three", read(path+".back2"))
	assert.Equal(t, "two", read(path+".back3"))
}
