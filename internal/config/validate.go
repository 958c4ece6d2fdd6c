package config

import (
	"fmt"
	"time"

	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/logger"
)

var (
	validLogFormats = map[string]bool{"text": true, "logfmt": true, "json": true}
	validColorModes = map[string]bool{"auto": true, "always": true, "never": true}
)

// Validate checks the settings for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but flowbridge only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade flowbridge or lower the 'version' key.")
	}

	if err := validateLog(cfg.Log); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'log' section in your config.")
	}

	if cfg.Exec.Timeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("exec.timeout can't be negative (got %s)", cfg.Exec.Timeout),
			"Use 0 for no limit, or a duration like '30s'.")
	}

	if err := validateDebounce(cfg.Cache.Debounce); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'cache' section in your config.")
	}

	if !validColorModes[cfg.Output.Color] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("output.color '%s' isn't valid", cfg.Output.Color),
			"Use one of: auto, always, never.")
	}

	return nil
}

func validateLog(l LogConfig) error {
	if _, err := logger.ParseLevel(l.Level); err != nil {
		return err
	}
	if !validLogFormats[l.Format] {
		return fmt.Errorf("log.format '%s' isn't valid (allowed: text, logfmt, json)", l.Format)
	}
	return nil
}

func validateDebounce(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("cache.debounce can't be negative (got %s)", d)
	}
	if d > 10*time.Second {
		return fmt.Errorf("cache.debounce %s is too long; updates would lag behind flow", d)
	}
	return nil
}
