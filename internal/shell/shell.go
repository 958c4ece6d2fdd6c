// Package shell resolves the user's login shell and builds the command lines
// that run the flow binary through it.
package shell

import (
	"path/filepath"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Kind identifies a shell family.
type Kind int

const (
	Bash Kind = iota
	Zsh
	Fish
	Unknown
)

// Shell is the shell used to spawn flow. Path is only set for Unknown shells,
// where it holds the value of SHELL verbatim.
type Shell struct {
	Kind Kind
	Path string
}

// Profile preambles. The trailing "|| true" keeps a missing or broken profile
// from aborting the command that follows the "&&".
const (
	bashProfile = "source ~/.bashrc 2>/dev/null || source ~/.bash_profile 2>/dev/null || true"
	zshProfile  = "source ~/.zshrc 2>/dev/null || true"
	fishProfile = "source ~/.config/fish/config.fish 2>/dev/null || true"
)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Detect classifies the shell named by SHELL. An unset or empty SHELL falls
// back to bash.
func Detect(lookup LookupFunc) Shell {
	path, ok := lookup("SHELL")
	if !ok || path == "" {
		return Shell{Kind: Bash}
	}
	return FromPath(path)
}

// FromPath classifies a shell by the base name of its path.
func FromPath(path string) Shell {
	switch filepath.Base(path) {
	case "bash":
		return Shell{Kind: Bash}
	case "zsh":
		return Shell{Kind: Zsh}
	case "fish":
		return Shell{Kind: Fish}
	default:
		return Shell{Kind: Unknown, Path: path}
	}
}

// Name returns the executable used to spawn the shell.
func (s Shell) Name() string {
	switch s.Kind {
	case Bash:
		return "bash"
	case Zsh:
		return "zsh"
	case Fish:
		return "fish"
	default:
		return s.Path
	}
}

func (s Shell) String() string {
	if s.Kind == Unknown {
		return "unknown(" + s.Path + ")"
	}
	return s.Name()
}

// Known reports whether the shell is one of the recognised families.
func (s Shell) Known() bool {
	return s.Kind != Unknown
}

// CommandArgs returns the executable and argument vector that run command
// through the shell.
func (s Shell) CommandArgs(command string) (string, []string) {
	return s.Name(), []string{"-c", command}
}

// SourceProfileCommand returns the preamble that loads the user's profile so
// PATH customisations are visible. Unknown shells have none.
func (s Shell) SourceProfileCommand() (string, bool) {
	switch s.Kind {
	case Bash:
		return bashProfile, true
	case Zsh:
		return zshProfile, true
	case Fish:
		return fishProfile, true
	default:
		return "", false
	}
}

var plainArg = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote makes arg safe to embed in a command line for this shell. Arguments
// made only of safe characters are returned unchanged.
func (s Shell) Quote(arg string) string {
	if plainArg.MatchString(arg) {
		return arg
	}

	switch s.Kind {
	case Fish:
		return fishQuote(arg)
	case Bash, Zsh:
		return posixQuote(arg, syntax.LangBash)
	default:
		return posixQuote(arg, syntax.LangPOSIX)
	}
}

// JoinArgs quotes each argument and joins them with single spaces.
func (s Shell) JoinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = s.Quote(a)
	}
	return strings.Join(quoted, " ")
}

func posixQuote(arg string, lang syntax.LangVariant) string {
	quoted, err := syntax.Quote(arg, lang)
	if err != nil {
		// Non-printable bytes have no POSIX escape; single quotes still
		// pass them through literally.
		return SingleQuote(arg)
	}
	return quoted
}

// SingleQuote wraps s in single quotes, escaping embedded single quotes the
// POSIX way.
func SingleQuote(s string) string {
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// fish single quotes honour only \\ and \'.
func fishQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// Validate parses command as a POSIX shell program and reports syntax errors.
func Validate(command string) error {
	_, err := syntax.NewParser().Parse(strings.NewReader(command), "command")
	return err
}
