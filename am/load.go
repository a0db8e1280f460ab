package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/jflat/errors"
)

var (
	loadMu        sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records which file last set each key during loading.
	// Keys absent here come from defaults or the environment.
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the jflat configuration using Viper. The result is cached until Reset.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}

	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	loadMu.Lock()
	defer loadMu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path on top of defaults
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Set defaults but don't bind environment variables for this specific load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load config from %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (used by tests and watch reloads)
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

// initViper initializes Viper with configuration sources and defaults.
// Callers hold loadMu.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	// JFLAT_CONVERT_FORMAT overrides convert.format, and so on
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Merge configs in precedence order: system -> user -> project; env vars win over all
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// UserConfigPath returns ~/.jflat/am.toml, or "" when there is no home directory
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, ConfigFileName)
}

// findProjectConfig searches for am.toml by walking up the directory tree.
// Returns the path to the first file found, or empty string if none found.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(amPath); err == nil && !info.IsDir() {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop searching
			break
		}
		dir = parent
	}

	return ""
}

// CandidatePaths lists every config file location in precedence order
// (lowest first), whether or not the file exists.
func CandidatePaths() []SourceInfo {
	candidates := []SourceInfo{
		{Source: SourceSystem, Path: SystemConfig},
		{Source: SourceUser, Path: UserConfigPath()},
		{Source: SourceProject, Path: findProjectConfig()},
	}

	seen := map[string]bool{}
	paths := make([]SourceInfo, 0, len(candidates))
	for _, c := range candidates {
		// the nearest am.toml can be the user file itself when run from ~/.jflat
		if c.Path == "" || seen[c.Path] {
			continue
		}
		seen[c.Path] = true
		paths = append(paths, c)
	}
	return paths
}

// mergeConfigFiles merges configuration files in precedence order.
// MergeConfigMap keeps environment variables above every file.
func mergeConfigFiles(v *viper.Viper) {
	for _, candidate := range CandidatePaths() {
		if _, err := os.Stat(candidate.Path); err != nil {
			continue
		}

		fileViper := viper.New()
		fileViper.SetConfigFile(candidate.Path)
		fileViper.SetConfigType("toml")
		if err := fileViper.ReadInConfig(); err != nil {
			continue
		}

		if err := v.MergeConfigMap(fileViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range fileViper.AllKeys() {
			ConfigSources[key] = candidate
		}
	}
}

// LoadedFiles returns the config files that contributed to the active configuration
func LoadedFiles() []string {
	GetViper()

	loadMu.Lock()
	defer loadMu.Unlock()

	seen := map[string]bool{}
	var files []string
	for _, candidate := range CandidatePaths() {
		for _, si := range ConfigSources {
			if si.Path == candidate.Path && !seen[si.Path] {
				seen[si.Path] = true
				files = append(files, si.Path)
			}
		}
	}
	return files
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return GetViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return GetViper().GetString(key)
}
