package exec

import (
	"fmt"
	"regexp"
)

// commandNotFoundPatterns are regex patterns to detect "command not found" errors
// from various shells. These require exit code 127.
var commandNotFoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bash: (\S+): command not found`),
	regexp.MustCompile(`(?i)zsh: command not found: (\S+)`),
	regexp.MustCompile(`(?i)fish: Unknown command:? '?([^'\s]+)'?`),
	regexp.MustCompile(`(?i)sh: \d+: (\S+): not found`),
	regexp.MustCompile(`(?i)-bash: (\S+): No such file or directory`),
	regexp.MustCompile(`(?i)(\S+): not found`),
	regexp.MustCompile(`(?i)(\S+): command not found`),
}

// dependencyNotFoundPatterns detect when flow itself ran but a tool one of
// its executables needs isn't available. These can have various exit codes.
var dependencyNotFoundPatterns = []*regexp.Regexp{
	// make: go: No such file or directory
	regexp.MustCompile(`(?i)make: (\S+): No such file or directory`),
	// /bin/sh: go: not found (from scripts)
	regexp.MustCompile(`(?i)/bin/sh: (\S+): not found`),
	// env: go: No such file or directory (from #!/usr/bin/env go)
	regexp.MustCompile(`(?i)env: (\S+): No such file or directory`),
}

// IsCommandNotFound checks if the error output indicates a missing command.
// Returns the command name (if extractable) and whether it's a command-not-found error.
func IsCommandNotFound(stderr string, exitCode int) (string, bool) {
	// Exit code 127 is the standard for command not found
	if exitCode != 127 {
		return "", false
	}

	for _, pattern := range commandNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(stderr); len(matches) > 1 {
			return matches[1], true
		}
	}

	// Exit code is 127 but couldn't extract command name
	return "", true
}

// IsDependencyNotFound checks if a tool failed because a dependency command is missing.
// Returns the missing command name and whether it was detected.
func IsDependencyNotFound(stderr string) (string, bool) {
	for _, pattern := range dependencyNotFoundPatterns {
		if matches := pattern.FindStringSubmatch(stderr); len(matches) > 1 {
			return matches[1], true
		}
	}
	return "", false
}

// Suggest returns a fix-it hint for a failed invocation of binary, or ""
// when the failure isn't recognisable.
func Suggest(binary, stderr string, exitCode int) string {
	if name, notFound := IsCommandNotFound(stderr, exitCode); notFound {
		if name == "" || name == binary {
			return fmt.Sprintf(`'%s' wasn't found in the shell's PATH.

Fixes:

1. Install flow: https://flowexec.io/install

2. If installed, make sure your shell profile adds it to PATH:
   %s --version

3. In dev mode, point FLOW_BINARY_PATH at a local build.`, binary, binary)
		}
		return fmt.Sprintf("'%s' wasn't found in PATH. Install it or add it to PATH in your shell profile.", name)
	}

	if name, missing := IsDependencyNotFound(stderr); missing {
		return fmt.Sprintf("An executable needs '%s', which isn't installed or isn't in PATH.", name)
	}

	return ""
}
