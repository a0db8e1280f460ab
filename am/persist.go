package am

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/teranos/jflat/errors"
	"github.com/teranos/jflat/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Losing the oldest backup is not worth failing the save
		logger.Warnw("Failed to delete old config backup", logger.FieldFile, back3, logger.FieldError, err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadOrInitialize reads a TOML config file into a map, or returns an empty map
// when the file does not exist yet.
func loadOrInitialize(configPath string) (map[string]interface{}, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", filepath.Dir(configPath))
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

// SetValue writes key = value into the config file at configPath, keeping
// rotating backups of the previous contents. The key must be a known setting
// and the resulting configuration must validate.
func SetValue(configPath, key, raw string) error {
	defaults := viperDefaults()
	if !defaults.IsSet(key) {
		return errors.WithHint(errors.Newf("unknown setting %q", key), "run 'jflat am show' to list settings")
	}
	if _, section := defaults.Get(key).(map[string]interface{}); section {
		return errors.Newf("%q is a section, not a setting", key)
	}
	value := coerce(raw, defaults.Get(key))

	config, err := loadOrInitialize(configPath)
	if err != nil {
		return err
	}
	setNested(config, strings.Split(key, "."), value)

	// Validate the merged result before touching the file
	check := viperDefaults()
	if err := check.MergeConfigMap(config); err != nil {
		return errors.Wrap(err, "failed to merge config")
	}
	cfg, err := LoadWithViper(check)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "refusing to write %s", key)
	}

	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

func viperDefaults() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

// coerce converts raw to the type of the setting's default value
func coerce(raw string, def interface{}) interface{} {
	switch def.(type) {
	case bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	case int, int64:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	}
	return raw
}

func setNested(m map[string]interface{}, path []string, value interface{}) {
	for _, part := range path[:len(path)-1] {
		next, ok := m[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[part] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}
