package am

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kenjpais/diagram-generator/errors"
)

// EnvPrefix is prepended to every config key when read from the environment,
// e.g. DIAGEN_RENDER_FORMAT for render.format.
const EnvPrefix = "DIAGEN"

// ProjectConfigName is searched for from the working directory upward.
const ProjectConfigName = "diagen.toml"

// LoadOptions locates configuration sources. Zero values mean the standard
// locations; tests point them at temporary directories.
type LoadOptions struct {
	ConfigFile string // explicit --config file, highest file precedence
	SystemPath string // default /etc/diagen/config.toml
	HomeDir    string // default os.UserHomeDir()
	WorkDir    string // start of the project config search, default os.Getwd()
	EnvFile    string // default .env in WorkDir
	SkipDotEnv bool
	SkipSystem bool
}

// Loader reads configuration once and remembers where every value came from.
type Loader struct {
	opts    LoadOptions
	v       *viper.Viper
	sources map[string]SourceInfo
	files   []string
}

// NewLoader prepares a Loader; nothing is read until Load.
func NewLoader(opts LoadOptions) *Loader {
	return &Loader{opts: opts}
}

// Load reads defaults, config files, .env and the environment in precedence order.
func Load(opts LoadOptions) (*Config, error) {
	return NewLoader(opts).Load()
}

// LoadWithViper unmarshals a prepared viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// Load builds the merged configuration. Precedence, lowest to highest:
// defaults, system, user, project, --config, .env, environment.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindSensitiveEnvVars(v)
	SetDefaults(v)

	l.v = v
	l.sources = make(map[string]SourceInfo)
	l.files = nil

	for _, f := range l.configFiles() {
		if err := l.mergeFile(f.path, f.source, f.required); err != nil {
			return nil, err
		}
	}

	if !l.opts.SkipDotEnv {
		if err := l.applyDotEnv(); err != nil {
			return nil, err
		}
	}

	return LoadWithViper(v)
}

// Viper exposes the merged instance for key lookups (config get).
func (l *Loader) Viper() *viper.Viper { return l.v }

// Files lists the config files that were read, lowest precedence first.
func (l *Loader) Files() []string { return append([]string(nil), l.files...) }

// Options returns the options the loader was built with.
func (l *Loader) Options() LoadOptions { return l.opts }

type configFile struct {
	path     string
	source   ConfigSource
	required bool
}

// configFiles returns candidate files in ascending precedence.
func (l *Loader) configFiles() []configFile {
	var files []configFile
	if !l.opts.SkipSystem {
		sys := l.opts.SystemPath
		if sys == "" {
			sys = "/etc/diagen/config.toml"
		}
		files = append(files, configFile{path: sys, source: SourceSystem})
	}
	if user := UserConfigPath(l.opts.HomeDir); user != "" {
		files = append(files, configFile{path: user, source: SourceUser})
	}
	if project := findProjectConfig(l.workDir()); project != "" {
		files = append(files, configFile{path: project, source: SourceProject})
	}
	if l.opts.ConfigFile != "" {
		files = append(files, configFile{path: l.opts.ConfigFile, source: SourceFlag, required: true})
	}
	return files
}

func (l *Loader) workDir() string {
	if l.opts.WorkDir != "" {
		return l.opts.WorkDir
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}

// mergeFile layers one TOML file under the environment. A missing optional
// file is skipped; a malformed one is an error.
func (l *Loader) mergeFile(path string, source ConfigSource, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if required {
			return errors.Wrapf(err, "config file %s", path)
		}
		return nil
	}

	tmp := viper.New()
	tmp.SetConfigFile(path)
	tmp.SetConfigType("toml")
	if err := tmp.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := l.v.MergeConfigMap(tmp.AllSettings()); err != nil {
		return errors.Wrapf(err, "failed to merge config file %s", path)
	}
	for _, key := range tmp.AllKeys() {
		l.sources[key] = SourceInfo{Source: source, Path: path}
	}
	l.files = append(l.files, path)
	return nil
}

// applyDotEnv reads .env without touching the process environment. A value
// is applied only when none of the key's real environment names is set.
func (l *Loader) applyDotEnv() error {
	path := l.opts.EnvFile
	if path == "" {
		path = filepath.Join(l.workDir(), ".env")
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}

	index := envIndex(l.v.AllKeys())
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	// bare names first so DIAGEN_* in the same file wins
	sort.Slice(names, func(i, j int) bool {
		pi, pj := strings.HasPrefix(names[i], EnvPrefix+"_"), strings.HasPrefix(names[j], EnvPrefix+"_")
		if pi != pj {
			return !pi
		}
		return names[i] < names[j]
	})

	for _, name := range names {
		key, ok := index[name]
		if !ok || envOverride(key) != "" {
			continue
		}
		l.v.Set(key, vars[name])
		l.sources[key] = SourceInfo{Source: SourceDotEnv, Path: path + ":" + name}
	}
	return nil
}

// EnvNames lists every environment variable that can set key.
func EnvNames(key string) []string {
	if names, ok := bareEnvBindings[key]; ok {
		return names
	}
	return []string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
}

// envOverride returns the name of the first non-empty environment variable
// for key. Empty values are ignored, as viper ignores them.
func envOverride(key string) string {
	for _, name := range EnvNames(key) {
		if os.Getenv(name) != "" {
			return name
		}
	}
	return ""
}

func envIndex(keys []string) map[string]string {
	index := make(map[string]string)
	for _, key := range keys {
		for _, name := range EnvNames(key) {
			index[name] = key
		}
	}
	return index
}

// UserConfigPath returns ~/.diagen/config.toml, or "" when home is unknown.
func UserConfigPath(home string) string {
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(home, ".diagen", "config.toml")
}

// findProjectConfig walks up from dir looking for diagen.toml
func findProjectConfig(dir string) string {
	if dir == "" {
		return ""
	}
	for {
		path := filepath.Join(dir, ProjectConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
