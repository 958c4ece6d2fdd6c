package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failed invocation of the flow binary. The set is closed:
// every error produced by the process runner carries exactly one of these.
type Kind int

const (
	// KindExecution means the process could not be spawned, its pipes could
	// not be read, or the invocation was cancelled.
	KindExecution Kind = iota + 1
	// KindParse means the process succeeded but its output did not decode.
	KindParse
	// KindNonZeroExit means the process ran and exited with a non-zero status.
	KindNonZeroExit
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindExecution:
		return "execution_error"
	case KindParse:
		return "parse_error"
	case KindNonZeroExit:
		return "non_zero_exit"
	default:
		return "unknown"
	}
}

// StreamedOutputNotice replaces captured output on streaming failures; the
// output itself was already delivered as events.
const StreamedOutputNotice = "command failed, see streamed output"

// CommandError is a failed invocation of the flow binary. It carries enough
// context (command, raw output, exit code) to render a diagnostic without
// re-running anything.
type CommandError struct {
	Kind    Kind
	Message string
	Command string
	Output  string
	// Code is the exit status. Only meaningful for KindNonZeroExit; -1 when
	// the process was terminated without one.
	Code int
	// Suggestion is an optional hint for recognisable failures.
	Suggestion string
	Cause      error
}

// Execution builds a KindExecution error.
func Execution(message string, cause error) *CommandError {
	return &CommandError{
		Kind:    KindExecution,
		Message: message,
		Cause:   cause,
	}
}

// Parse builds a KindParse error. output is the raw stdout that failed to decode.
func Parse(command, output string, cause error) *CommandError {
	msg := "invalid output"
	if cause != nil {
		msg = cause.Error()
	}
	return &CommandError{
		Kind:    KindParse,
		Message: msg,
		Command: command,
		Output:  output,
		Cause:   cause,
	}
}

// NonZeroExit builds a KindNonZeroExit error.
func NonZeroExit(command string, code int, output string) *CommandError {
	return &CommandError{
		Kind:    KindNonZeroExit,
		Message: fmt.Sprintf("exit status %d", code),
		Command: command,
		Code:    code,
		Output:  output,
	}
}

// WithSuggestion attaches a hint and returns the error for chaining.
func (e *CommandError) WithSuggestion(s string) *CommandError {
	e.Suggestion = s
	return e
}

// WithCommand records the command that failed and returns the error for chaining.
func (e *CommandError) WithCommand(command string) *CommandError {
	e.Command = command
	return e
}

func (e *CommandError) Error() string {
	switch e.Kind {
	case KindExecution:
		if e.Cause != nil {
			return fmt.Sprintf("failed to execute command: %s: %v", e.Message, e.Cause)
		}
		return "failed to execute command: " + e.Message
	case KindParse:
		return fmt.Sprintf("failed to parse command output for '%s': %s\nOutput: %s", e.Command, e.Message, e.Output)
	case KindNonZeroExit:
		return fmt.Sprintf("command '%s' returned non-zero exit code: %d\nOutput: %s", e.Command, e.Code, e.Output)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Cause
}

// AsCommandError extracts a CommandError from err's chain.
func AsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}

// IsKind reports whether err is a CommandError of the given kind.
func IsKind(err error, kind Kind) bool {
	cmdErr, ok := AsCommandError(err)
	return ok && cmdErr.Kind == kind
}

// ExitCode returns the exit status carried by a NonZeroExit error, or -1.
func ExitCode(err error) int {
	cmdErr, ok := AsCommandError(err)
	if !ok || cmdErr.Kind != KindNonZeroExit {
		return -1
	}
	return cmdErr.Code
}
