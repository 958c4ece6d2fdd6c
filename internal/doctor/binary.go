package doctor

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowexec/flowbridge/internal/config"
	"github.com/flowexec/flowbridge/internal/errors"
)

// VersionChecker is the part of the process runner the binary checks use.
type VersionChecker interface {
	Binary() config.BinaryConfig
	CheckBinary(ctx context.Context) (string, error)
}

// BinaryCheck verifies the flow binary can be spawned.
type BinaryCheck struct {
	Runner VersionChecker
}

func (c *BinaryCheck) Name() string     { return "flow_binary" }
func (c *BinaryCheck) Category() string { return "BINARY" }

func (c *BinaryCheck) Run(ctx context.Context) CheckResult {
	bin := c.Runner.Binary()
	version, err := c.Runner.CheckBinary(ctx)
	if err != nil {
		suggestion := "Install flow or set FLOW_BINARY_PATH in a development build"
		if cmdErr, ok := errors.AsCommandError(err); ok {
			if cmdErr.Suggestion != "" {
				suggestion = cmdErr.Suggestion
			} else if cmdErr.Output != "" {
				suggestion = firstLine(cmdErr.Output)
			}
		}
		return result(c, StatusFail, fmt.Sprintf("flow not usable at %s", bin.BinaryPath), suggestion)
	}
	if version == "" {
		version = "unknown version"
	}
	return result(c, StatusPass, fmt.Sprintf("%s (%s)", firstLine(version), bin.BinaryPath), "")
}

// DevModeCheck warns when a development override is in effect, since
// commands then run against a binary other than the installed flow.
type DevModeCheck struct {
	Binary config.BinaryConfig
}

func (c *DevModeCheck) Name() string     { return "dev_mode" }
func (c *DevModeCheck) Category() string { return "BINARY" }

func (c *DevModeCheck) Run(_ context.Context) CheckResult {
	if !c.Binary.DevMode {
		return result(c, StatusPass, "Release mode", "")
	}
	if c.Binary.BinaryPath == config.DefaultBinary {
		return result(c, StatusWarn, "Development mode, using flow from PATH",
			"Set FLOW_BINARY_PATH to test a local build")
	}
	return result(c, StatusWarn, "Development mode, using "+c.Binary.BinaryPath,
		"Unset "+config.EnvDev+" and "+config.EnvDevMode+" to use the installed flow")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
