package config

import "time"

// CurrentConfigVersion is the schema version for the settings file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the flowbridge settings file. Every field is optional;
// missing values fall back to DefaultConfig.
type Config struct {
	Version int          `yaml:"version" mapstructure:"version"`
	Log     LogConfig    `yaml:"log" mapstructure:"log"`
	Exec    ExecConfig   `yaml:"exec" mapstructure:"exec"`
	Cache   CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Output  OutputConfig `yaml:"output" mapstructure:"output"`
}

// LogConfig controls diagnostic logging to stderr.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level" mapstructure:"level"`

	// Format is one of "text", "logfmt", "json".
	Format string `yaml:"format" mapstructure:"format"`
}

// ExecConfig controls how the flow binary is invoked.
type ExecConfig struct {
	// Timeout bounds synchronous invocations. Zero means no limit.
	// Streaming runs are never bounded by it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig controls the workspace cache watcher.
type CacheConfig struct {
	// Debounce coalesces bursts of filesystem events into one reload.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Exec: ExecConfig{
			Timeout: 0,
		},
		Cache: CacheConfig{
			Debounce: 100 * time.Millisecond,
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}
