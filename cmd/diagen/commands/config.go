package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kenjpais/diagram-generator/am"
	"github.com/kenjpais/diagram-generator/display"
	"github.com/kenjpais/diagram-generator/errors"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage diagen configuration",
		Long: `Display and manage diagen configuration settings.

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/diagen/config.toml)
3. User config (~/.diagen/config.toml)
4. Project config (./diagen.toml, searched upward)
5. --config file
6. .env in the working directory
7. Environment variables (DIAGEN_* and the documented bare names)

Examples:
  diagen config show                    # Show current configuration
  diagen config show --format json      # Show configuration as JSON
  diagen config get render.format       # Get a single value
  diagen config set render.format png   # Persist a value to ~/.diagen/config.toml
  diagen config validate                # Validate the configuration
  diagen config where                   # Show where each value came from`,
	}
	cmd.AddCommand(
		newConfigShowCmd(app),
		newConfigGetCmd(app),
		newConfigSetCmd(app),
		newConfigValidateCmd(app),
		newConfigWhereCmd(app),
	)
	return cmd
}

func newConfigShowCmd(app *App) *cobra.Command {
	var format string
	var sources bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the merged configuration from all sources. API keys are masked.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := app.loader()
			cfg, err := l.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load config")
			}
			if sources {
				intro, err := l.Introspect()
				if err != nil {
					return err
				}
				return writeFormatted(cmd.OutOrStdout(), format, intro)
			}
			return writeFormatted(cmd.OutOrStdout(), format, masked(cfg))
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")
	cmd.Flags().BoolVar(&sources, "sources", false, "Show each key with the source that set it")
	return cmd
}

func writeFormatted(w io.Writer, format string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "yaml":
		data, err = yaml.Marshal(v)
	case "toml":
		data, err = toml.Marshal(v)
	default:
		return errors.NewInvalidRequestError("unknown format %q (valid: toml, json, yaml)", format)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to marshal config to %s", format)
	}
	_, err = w.Write(data)
	return err
}

// masked returns a copy of cfg with credentials masked
func masked(cfg *am.Config) *am.Config {
	c := *cfg
	c.Gemini.APIKey = am.Mask(c.Gemini.APIKey)
	c.Anthropic.APIKey = am.Mask(c.Anthropic.APIKey)
	c.OpenRouter.APIKey = am.Mask(c.OpenRouter.APIKey)
	return &c
}

func newConfigGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value",
		Long:  "Get a configuration value using dot notation (e.g. render.format, llm.provider)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := app.loader()
			if _, err := l.Load(); err != nil {
				return errors.Wrap(err, "failed to load config")
			}
			key := args[0]
			if !l.Viper().IsSet(key) {
				return errors.WithHint(errors.NewInvalidRequestError("unknown config key %q", key),
					"run 'diagen config show' to list keys")
			}
			value := l.Viper().Get(key)
			if s, ok := value.(string); ok && am.IsSensitive(key) {
				value = am.Mask(s)
			}
			src := l.SourceOf(key)
			if app.jsonOutput(cmd) {
				return display.OutputJSON(map[string]interface{}{
					"key": key, "value": value, "source": src.Source, "source_path": src.Path,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newConfigSetCmd(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a configuration value",
		Long: `Write one key to the user config (~/.diagen/config.toml, or --file).
The previous file is kept as a numbered backup. The value is converted to
the key's type.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := file
			if path == "" {
				path = am.UserConfigPath("")
			}
			if path == "" {
				return errors.New("cannot determine home directory; pass --file")
			}
			if err := am.SetValue(path, args[0], args[1]); err != nil {
				return err
			}
			if cfg, _, err := app.loadConfig(); err != nil {
				display.Warning("%s was written but the configuration no longer validates", path)
				return err
			} else if app.Verbosity > 0 {
				display.Info("Effective: %s", cfg.String())
			}
			display.Success("Set %s = %s in %s", args[0], args[1], path)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Config file to modify (default ~/.diagen/config.toml)")
	return cmd
}

func newConfigValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		Long:  "Check value ranges and enums, and report keys in config files that diagen does not recognise.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := app.loader()
			cfg, err := l.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load config")
			}

			unknown := make(map[string][]string)
			for _, f := range l.Files() {
				keys, err := am.UnknownKeys(f)
				if err != nil {
					return err
				}
				if len(keys) > 0 {
					unknown[f] = keys
				}
			}
			validErr := cfg.Validate()

			if app.jsonOutput(cmd) {
				out := map[string]interface{}{"valid": validErr == nil, "unknown_keys": unknown}
				if validErr != nil {
					out["error"] = validErr.Error()
				}
				if err := display.OutputJSON(out); err != nil {
					return err
				}
				return validErr
			}

			files := make([]string, 0, len(unknown))
			for f := range unknown {
				files = append(files, f)
			}
			sort.Strings(files)
			for _, f := range files {
				for _, k := range unknown[f] {
					display.Warning("%s: unknown key %q", f, k)
				}
			}
			if validErr != nil {
				return validErr
			}
			display.Success("Configuration is valid")
			return nil
		},
	}
}

func newConfigWhereCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "where",
		Short: "Show where configuration is loaded from",
		Long: `Show the configuration cascade and which source set each value.

Lists sources in order of precedence with the settings each one supplied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := app.loader()
			if _, err := l.Load(); err != nil {
				return errors.Wrap(err, "failed to load config")
			}
			intro, err := l.Introspect()
			if err != nil {
				return errors.Wrap(err, "failed to get config introspection")
			}
			if app.jsonOutput(cmd) {
				return display.OutputJSON(intro)
			}
			printCascade(cmd.OutOrStdout(), intro)
			return nil
		},
	}
}

var sourceOrder = []am.ConfigSource{
	am.SourceDefault,
	am.SourceSystem,
	am.SourceUser,
	am.SourceProject,
	am.SourceFlag,
	am.SourceDotEnv,
	am.SourceEnvironment,
}

func printCascade(w io.Writer, intro *am.ConfigIntrospection) {
	fmt.Fprintln(w, "Configuration cascade (later overrides earlier):")
	fmt.Fprintln(w, "  1. [DEFAULT]  Built-in defaults")
	fmt.Fprintln(w, "  2. [SYSTEM]   /etc/diagen/config.toml")
	fmt.Fprintln(w, "  3. [USER]     ~/.diagen/config.toml")
	fmt.Fprintln(w, "  4. [PROJECT]  ./diagen.toml (searches up directories)")
	fmt.Fprintln(w, "  5. [FLAG]     --config file")
	fmt.Fprintln(w, "  6. [DOTENV]   ./.env")
	fmt.Fprintln(w, "  7. [ENV]      DIAGEN_* and bare environment variables")
	fmt.Fprintln(w)

	// group settings by source, then by the file or variable that set them
	bySource := make(map[am.ConfigSource]map[string][]am.SettingInfo)
	for _, s := range intro.Settings {
		if bySource[s.Source] == nil {
			bySource[s.Source] = make(map[string][]am.SettingInfo)
		}
		origin := s.SourcePath
		if perVariable(s.Source) || s.Source == am.SourceDefault {
			origin = ""
		}
		bySource[s.Source][origin] = append(bySource[s.Source][origin], s)
	}

	fmt.Fprintln(w, "Active configuration:")
	for _, source := range sourceOrder {
		groups := bySource[source]
		origins := make([]string, 0, len(groups))
		for o := range groups {
			origins = append(origins, o)
		}
		sort.Strings(origins)

		for _, origin := range origins {
			settings := groups[origin]
			switch {
			case origin != "":
				fmt.Fprintf(w, "\n%s: %d settings from %s\n", source, len(settings), origin)
			case source == am.SourceEnvironment:
				fmt.Fprintf(w, "\n%s: %d settings from environment variables\n", source, len(settings))
			case source == am.SourceDotEnv:
				fmt.Fprintf(w, "\n%s: %d settings from .env\n", source, len(settings))
			default:
				fmt.Fprintf(w, "\n%s: %d settings\n", source, len(settings))
			}
			for _, s := range settings {
				value := fmt.Sprintf("%v", s.Value)
				if len(value) > 50 {
					value = value[:47] + "..."
				}
				if perVariable(source) {
					fmt.Fprintf(w, "  %s = %s (%s)\n", s.Key, value, s.SourcePath)
				} else {
					fmt.Fprintf(w, "  %s = %s\n", s.Key, value)
				}
			}
		}
	}
}

// perVariable reports whether each setting from source names its own variable
func perVariable(s am.ConfigSource) bool {
	return s == am.SourceEnvironment || s == am.SourceDotEnv
}
