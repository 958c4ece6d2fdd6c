package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/spf13/viper"
)

const (
	// GlobalConfigDir is the directory for the settings file, relative to home.
	GlobalConfigDir = ".config/flowbridge"
	// GlobalConfigFile is the settings file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix namespaces environment overrides (FLOWBRIDGE_LOG_LEVEL, ...).
	EnvPrefix = "FLOWBRIDGE"
)

// Load reads settings from the specified path, with FLOWBRIDGE_* environment
// overrides applied on top.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Create "+filepath.Join("~", GlobalConfigDir, GlobalConfigFile)+" or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the settings file using the search order:
// 1. Explicit path (from --config flag)
// 2. ~/.config/flowbridge/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		explicit = ExpandTilde(explicit)
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", nil
	}
	global := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
	if _, err := os.Stat(global); err == nil {
		return global, nil
	}
	return "", nil
}

// LoadOrDefault loads the settings file named by explicit (or the global one),
// falling back to defaults plus environment overrides when none exists.
func LoadOrDefault(explicit string) (*Config, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		return parseConfig(newViper(), "")
	}

	return Load(path)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		where := "the environment"
		if path != "" {
			where = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the settings in "+where)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it even when
// the file omits it.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("exec.timeout", def.Exec.Timeout.String())
	v.SetDefault("cache.debounce", def.Cache.Debounce.String())
	v.SetDefault("output.color", def.Output.Color)
}

// ExpandTilde replaces ~ or ~/path with the user's home directory.
// Does not support ~username syntax - just ~ for the current user.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return unchanged if we can't get home
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
