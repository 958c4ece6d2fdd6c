package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/flowexec/flowbridge/internal/shell"
)

// ShellCheck verifies the detected login shell exists and is one whose
// profile the bridge knows how to source.
type ShellCheck struct {
	Shell shell.Shell
}

func (c *ShellCheck) Name() string     { return "shell" }
func (c *ShellCheck) Category() string { return "SHELL" }

func (c *ShellCheck) Run(_ context.Context) CheckResult {
	if _, err := os.Stat(c.Shell.Path); err != nil {
		return result(c, StatusFail, "Shell not found: "+c.Shell.Path, "Set SHELL to an installed shell")
	}
	if !c.Shell.Known() {
		return result(c, StatusWarn,
			fmt.Sprintf("Unrecognised shell %s, profile will not be sourced", c.Shell.Path),
			"Use bash, zsh or fish so flow sees your PATH")
	}
	profile, _ := c.Shell.SourceProfileCommand()
	return result(c, StatusPass, fmt.Sprintf("%s (%s)", c.Shell.Name(), profile), "")
}

// CommandCheck verifies that a command line built for the shell parses.
// Fish syntax is not checked.
type CommandCheck struct {
	Shell   shell.Shell
	Command string
}

func (c *CommandCheck) Name() string     { return "command_syntax" }
func (c *CommandCheck) Category() string { return "SHELL" }

func (c *CommandCheck) Run(_ context.Context) CheckResult {
	if c.Shell.Kind == shell.Fish {
		return result(c, StatusPass, "Command syntax not checked for fish", "")
	}
	if err := shell.Validate(c.Command); err != nil {
		return result(c, StatusFail, "Generated command does not parse: "+err.Error(),
			"Check FLOW_BINARY_PATH for shell metacharacters")
	}
	return result(c, StatusPass, "Command line parses", "")
}
