package am

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/kenjpais/diagram-generator/errors"
)

// KnownKeys lists every settable configuration key.
func KnownKeys() []string {
	v := viper.New()
	SetDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// SetValue persists one key to the TOML file at path, creating the file
// and its directory when needed. The value is converted to the type of the
// key's default. Existing content is rotated into .back1-.back3 first.
func SetValue(path, key, raw string) error {
	defaults := viper.New()
	SetDefaults(defaults)
	if !defaults.IsSet(key) {
		return errors.WithHintf(errors.Newf("unknown config key %q", key), "run 'diagen config show' to list keys")
	}
	value, err := convertValue(defaults.Get(key), raw)
	if err != nil {
		return errors.Wrapf(err, "invalid value for %s", key)
	}

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	doc := make(map[string]interface{})
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse %s", path)
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to read %s", path)
	}

	if err := setNested(doc, strings.Split(key, "."), value); err != nil {
		return err
	}

	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	data, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func setNested(doc map[string]interface{}, parts []string, value interface{}) error {
	for i, part := range parts[:len(parts)-1] {
		next, ok := doc[part]
		if !ok {
			m := make(map[string]interface{})
			doc[part] = m
			doc = m
			continue
		}
		m, ok := next.(map[string]interface{})
		if !ok {
			return errors.Newf("%s is not a table", strings.Join(parts[:i+1], "."))
		}
		doc = m
	}
	doc[parts[len(parts)-1]] = value
	return nil
}

func convertValue(def interface{}, raw string) (interface{}, error) {
	switch def.(type) {
	case bool:
		return strconv.ParseBool(raw)
	case int:
		return strconv.Atoi(raw)
	case float64:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	// .back3 is dropped, .back2 -> .back3, .back1 -> .back2
	for i := backupCount; i > 1; i-- {
		from := backupName(configPath, i-1)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, backupName(configPath, i)); err != nil {
				return errors.Wrapf(err, "failed to rotate %s", from)
			}
		}
	}

	if err := os.WriteFile(backupName(configPath, 1), content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}

const backupCount = 3

func backupName(path string, n int) string {
	return path + ".back" + strconv.Itoa(n)
}

// isBackupFile checks if the file is a backup file (.back1, .back2, .back3)
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	if !strings.HasPrefix(ext, ".back") {
		return false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(ext, ".back"))
	return err == nil && n >= 1 && n <= backupCount
}
