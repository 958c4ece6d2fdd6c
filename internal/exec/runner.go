// Package exec runs the flow binary through the user's shell, either
// capturing its output or streaming it line by line as events.
package exec

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/flowexec/flowbridge/internal/config"
	"github.com/flowexec/flowbridge/internal/errors"
	"github.com/flowexec/flowbridge/internal/events"
	"github.com/flowexec/flowbridge/internal/logger"
	"github.com/flowexec/flowbridge/internal/shell"
)

// DefaultWaitDelay bounds how long Wait keeps draining output after the
// child was killed.
const DefaultWaitDelay = 2 * time.Second

// Executor is what per-domain argument builders need from a runner.
type Executor interface {
	Execute(ctx context.Context, args []string) (string, error)
	ExecuteJSONInto(ctx context.Context, args []string, v interface{}) error
	ExecuteExecutable(ctx context.Context, ch events.Channel, verb, id string, args []string, params map[string]string) error
}

var _ Executor = (*Runner)(nil)

// Runner invokes the flow binary. It holds no mutable state after
// construction and is safe for concurrent use.
type Runner struct {
	binary     config.BinaryConfig
	shell      shell.Shell
	shellSet   bool
	env        config.Environment
	debugBuild bool
	log        logger.Logger
	timeout    time.Duration
	waitDelay  time.Duration
	now        func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell overrides shell detection.
func WithShell(sh shell.Shell) Option {
	return func(r *Runner) {
		r.shell = sh
		r.shellSet = true
	}
}

// WithLogger sets the logger. Defaults to logger.Default().
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTimeout bounds synchronous invocations. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) { r.waitDelay = d }
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithEnvironment replaces the process environment snapshot used for shell
// detection and, with New, binary resolution.
func WithEnvironment(env config.Environment) Option {
	return func(r *Runner) { r.env = env }
}

// WithDebugBuild marks the running binary as an unreleased build, which
// turns on dev mode for New.
func WithDebugBuild(debug bool) Option {
	return func(r *Runner) { r.debugBuild = debug }
}

// New creates a Runner that resolves both the binary and the shell from the
// environment.
func New(opts ...Option) *Runner {
	r := newRunner(opts)
	r.binary = config.ResolveBinary(r.env, r.debugBuild)
	return r
}

// NewWithConfig creates a Runner for an explicit binary. The shell is still
// detected unless WithShell is given.
func NewWithConfig(cfg config.BinaryConfig, opts ...Option) *Runner {
	r := newRunner(opts)
	r.binary = cfg
	return r
}

func newRunner(opts []Option) *Runner {
	r := &Runner{
		env:       config.EnvironmentFromOS(),
		log:       logger.Default(),
		waitDelay: DefaultWaitDelay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if !r.shellSet {
		r.shell = shell.Detect(r.env.Lookup)
	}
	if r.binary.BinaryPath == "" {
		r.binary.BinaryPath = config.DefaultBinary
	}
	return r
}

// Binary returns the resolved binary configuration.
func (r *Runner) Binary() config.BinaryConfig {
	return r.binary
}

// Shell returns the shell used to spawn flow.
func (r *Runner) Shell() shell.Shell {
	return r.shell
}

// CommandString composes the shell command line for args:
// "<binary> <args...>", prefixed with "<profile> && " when the shell has a
// profile preamble. Arguments that need it are quoted.
func (r *Runner) CommandString(args []string) string {
	cmd := r.binary.BinaryPath
	if len(args) > 0 {
		cmd += " " + r.shell.JoinArgs(args)
	}
	if profile, ok := r.shell.SourceProfileCommand(); ok {
		return profile + " && " + cmd
	}
	return cmd
}

// Build returns an unstarted process that runs args through the shell. Stdin
// is not inherited; the caller attaches stdout and stderr.
func (r *Runner) Build(ctx context.Context, args []string) *exec.Cmd {
	return r.buildCommand(ctx, r.CommandString(args))
}

func (r *Runner) buildCommand(ctx context.Context, command string) *exec.Cmd {
	name, shellArgs := r.shell.CommandArgs(command)
	cmd := exec.CommandContext(ctx, name, shellArgs...)
	cmd.WaitDelay = r.waitDelay
	killProcessGroup(cmd)

	if r.binary.DevMode {
		r.log.Info("running: %s", command)
	} else {
		r.log.Debug("running: %s", command)
	}
	return cmd
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// Execute runs args to completion and returns stdout. A non-zero exit yields
// a KindNonZeroExit error carrying both streams.
func (r *Runner) Execute(ctx context.Context, args []string) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	command := r.CommandString(args)
	cmd := r.buildCommand(ctx, command)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if runErr := cmd.Run(); runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Execution("command cancelled", ctxErr).WithCommand(command)
		}
		var exitErr *exec.ExitError
		if !stderrors.As(runErr, &exitErr) {
			return "", errors.Execution("failed to run "+r.binary.BinaryPath, runErr).WithCommand(command)
		}
		code := exitErr.ExitCode()
		output := fmt.Sprintf("stdout: %s\nstderr: %s", stdout.String(), stderr.String())
		cmdErr := errors.NonZeroExit(command, code, output)
		if hint := Suggest(r.binary.BinaryPath, stderr.String(), code); hint != "" {
			cmdErr.WithSuggestion(hint)
		}
		r.log.Debug("command exited with code %d: %s", code, command)
		return "", cmdErr
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", errors.Parse(command, "", fmt.Errorf("output is not valid UTF-8"))
	}
	return stdout.String(), nil
}

// ExecuteJSONInto runs args with "--output json" appended (unless the caller
// already chose an output format) and decodes stdout into v.
func (r *Runner) ExecuteJSONInto(ctx context.Context, args []string, v interface{}) error {
	args = withJSONOutput(args)
	out, err := r.Execute(ctx, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(out), v); err != nil {
		return errors.Parse(r.CommandString(args), out, err)
	}
	return nil
}

// ExecuteJSON runs args through e and decodes the JSON output into a T.
func ExecuteJSON[T any](ctx context.Context, e Executor, args []string) (T, error) {
	var result T
	if err := e.ExecuteJSONInto(ctx, args, &result); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// withJSONOutput adds "--output json" unless an output flag is present. It
// goes before a "--" separator, so flow still parses it as a flag. The input
// slice is never modified.
func withJSONOutput(args []string) []string {
	if HasOutputFlag(args) {
		return args
	}
	end := len(args)
	for i, a := range args {
		if a == "--" {
			end = i
			break
		}
	}
	out := make([]string, 0, len(args)+2)
	out = append(out, args[:end]...)
	out = append(out, "--output", "json")
	return append(out, args[end:]...)
}

// HasOutputFlag reports whether args already select an output format.
func HasOutputFlag(args []string) bool {
	for _, a := range args {
		if a == "--" {
			return false
		}
		if a == "--output" || a == "-o" || strings.HasPrefix(a, "--output=") || strings.HasPrefix(a, "-o=") {
			return true
		}
	}
	return false
}

// CheckBinary runs "<binary> --version" directly, without a shell, and
// returns the trimmed output.
func (r *Runner) CheckBinary(ctx context.Context) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary.BinaryPath, "--version")
	cmd.WaitDelay = r.waitDelay
	command := r.binary.BinaryPath + " --version"

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", errors.Execution("version check cancelled", ctx.Err()).WithCommand(command)
		}
		cmdErr := errors.Execution("flow binary not usable at "+r.binary.BinaryPath, err).WithCommand(command)
		cmdErr.Output = strings.TrimSpace(stderr.String())
		if stderrors.Is(err, exec.ErrNotFound) || stderrors.Is(err, fs.ErrNotExist) {
			cmdErr.WithSuggestion(Suggest(r.binary.BinaryPath, "", 127))
		}
		return "", cmdErr
	}
	return strings.TrimSpace(stdout.String()), nil
}
