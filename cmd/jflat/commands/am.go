package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/jflat/am"
	"github.com/teranos/jflat/display"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: "Manage jflat configuration",
	Long: `am - Manage jflat configuration ("I am")

Display and manage the settings conversions start from.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (JFLAT_* prefix, e.g. JFLAT_CONVERT_SEPARATOR)
3. Project config (./am.toml, searched upwards)
4. User config (~/.jflat/am.toml)
5. System config (/etc/jflat/am.toml)
6. Default values

Examples:
  jflat am show                       # Show current configuration
  jflat am show --format json         # Show configuration in JSON format
  jflat am get convert.separator      # Get specific config value
  jflat am set convert.format tsv     # Write ./am.toml
  jflat am set --user convert.crlf true
  jflat am validate                   # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the effective jflat configuration from all sources",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., convert.format, progress.min_rows)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Write a setting to ./am.toml, or ~/.jflat/am.toml with --user.

The previous file is kept as a rotating backup. Unknown keys and values that
would make the configuration invalid are rejected without writing.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the effective jflat configuration is valid",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which files exist and which settings each one provides.`,
	RunE: runAmWhere,
}

func init() {
	amShowCmd.Flags().String("format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().Bool("user", false, "Write the user config instead of ./am.toml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	settings := am.GetViper().AllSettings()
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		return display.WriteJSON(out, settings)

	case "yaml":
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Fprintf(out, "# jflat configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Fprintf(out, "# jflat configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", format)
	}

	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := am.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	fmt.Fprintln(cmd.OutOrStdout(), am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	path := am.ConfigFileName
	if user, _ := cmd.Flags().GetBool("user"); user {
		path = am.UserConfigPath()
		if path == "" {
			return fmt.Errorf("no home directory for the user config")
		}
	}

	if err := am.SetValue(path, args[0], args[1]); err != nil {
		return err
	}
	am.Reset()

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], abs)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	intro := am.GetConfigIntrospection()

	fmt.Fprintln(out, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(out, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintf(out, "  2. [SYSTEM]   %s\n", am.SystemConfig)
	fmt.Fprintf(out, "  3. [USER]     ~/%s/%s\n", am.UserConfigDir, am.ConfigFileName)
	fmt.Fprintf(out, "  4. [PROJECT]  ./%s (searches up directories)\n", am.ConfigFileName)
	fmt.Fprintf(out, "  5. [ENV]      %s_* environment variables\n", am.EnvPrefix)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Files checked:")
	for _, candidate := range am.CandidatePaths() {
		status := "missing"
		if _, err := os.Stat(candidate.Path); err == nil {
			status = "found"
		}
		fmt.Fprintf(out, "  %-8s %s (%s)\n", candidate.Source, candidate.Path, status)
	}
	fmt.Fprintln(out)

	// Group settings by the file (or pseudo-source) they came from
	type group struct {
		source   am.ConfigSource
		path     string
		settings []am.SettingInfo
	}
	groups := map[string]*group{}
	for _, setting := range intro.Settings {
		key := setting.SourcePath
		if key == "" || setting.Source == am.SourceEnvironment {
			key = string(setting.Source)
		}
		g, ok := groups[key]
		if !ok {
			g = &group{source: setting.Source, path: setting.SourcePath}
			groups[key] = g
		}
		g.settings = append(g.settings, setting)
	}

	sourceOrder := []am.ConfigSource{
		am.SourceDefault,
		am.SourceSystem,
		am.SourceUser,
		am.SourceProject,
		am.SourceEnvironment,
	}

	fmt.Fprintln(out, "Active configuration:")
	for _, source := range sourceOrder {
		var matched []*group
		for _, g := range groups {
			if g.source == source {
				matched = append(matched, g)
			}
		}
		sort.Slice(matched, func(i, j int) bool { return matched[i].path < matched[j].path })

		for _, g := range matched {
			switch {
			case g.path != "" && source != am.SourceEnvironment:
				fmt.Fprintf(out, "\n%s: %d settings from %s\n", source, len(g.settings), g.path)
			case source == am.SourceEnvironment:
				fmt.Fprintf(out, "\n%s: %d settings from environment variables\n", source, len(g.settings))
			default:
				fmt.Fprintf(out, "\n%s: %d settings\n", source, len(g.settings))
			}

			for _, setting := range g.settings {
				value := fmt.Sprintf("%v", setting.Value)
				if len(value) > 50 {
					value = value[:47] + "..."
				}
				fmt.Fprintf(out, "  %s = %s\n", setting.Key, value)
			}
		}
	}

	return nil
}
