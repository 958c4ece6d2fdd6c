package doctor

import (
	"context"
	"fmt"

	"github.com/flowexec/flowbridge/internal/config"
)

// ConfigCheck verifies the settings file, when one exists, loads and
// validates. A missing file is fine: defaults apply.
type ConfigCheck struct {
	// Path is the explicit --config value, or empty to search.
	Path string
}

func (c *ConfigCheck) Name() string     { return "config" }
func (c *ConfigCheck) Category() string { return "CONFIG" }

func (c *ConfigCheck) Run(_ context.Context) CheckResult {
	path, err := config.Find(c.Path)
	if err != nil {
		return result(c, StatusFail, fmt.Sprintf("Cannot locate config: %s", c.Path),
			"Check the --config path is correct")
	}
	if path == "" {
		return result(c, StatusPass, "No config file, using defaults", "")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return result(c, StatusFail, "Failed to load "+path, "Check the YAML syntax in your config file")
	}
	if err := config.Validate(cfg); err != nil {
		return result(c, StatusFail, "Invalid settings in "+path, firstLine(err.Error()))
	}
	return result(c, StatusPass, "Config file: "+path, "")
}
