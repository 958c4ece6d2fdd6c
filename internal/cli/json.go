package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/flowexec/flowbridge/internal/errors"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output except event streams uses this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
// Kind, Command, ExitCode and Output are set for failed flow invocations.
type JSONError struct {
	Code       string      `json:"code"`
	Kind       string      `json:"kind,omitempty"`
	Message    string      `json:"message"`
	Command    string      `json:"command,omitempty"`
	ExitCode   int         `json:"exit_code,omitempty"`
	Output     string      `json:"output,omitempty"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound  = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid   = "CONFIG_INVALID"
	ErrCodeUsage           = "USAGE"
	ErrCodeCache           = "CACHE_ERROR"
	ErrCodeExecutionFailed = "EXECUTION_FAILED"
	ErrCodeParseFailed     = "PARSE_FAILED"
	ErrCodeNonZeroExit     = "NON_ZERO_EXIT"
	ErrCodeCommandFailed   = "COMMAND_FAILED"
	ErrCodeUnknown         = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	if cmdErr, ok := errors.AsCommandError(err); ok {
		return commandErrorToJSON(cmdErr)
	}

	var fbErr *errors.Error
	if stderrors.As(err, &fbErr) {
		return &JSONError{
			Code:       mapErrorCode(fbErr.Code, fbErr.Message),
			Message:    fbErr.Message,
			Suggestion: fbErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

func commandErrorToJSON(e *errors.CommandError) *JSONError {
	out := &JSONError{
		Kind:       e.Kind.String(),
		Message:    e.Message,
		Command:    e.Command,
		Output:     e.Output,
		Suggestion: e.Suggestion,
	}
	switch e.Kind {
	case errors.KindExecution:
		out.Code = ErrCodeExecutionFailed
		if e.Cause != nil {
			out.Details = map[string]interface{}{"cause": e.Cause.Error()}
		}
	case errors.KindParse:
		out.Code = ErrCodeParseFailed
	case errors.KindNonZeroExit:
		out.Code = ErrCodeNonZeroExit
		out.ExitCode = e.Code
	default:
		out.Code = ErrCodeUnknown
	}
	return out
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		msgLower := strings.ToLower(message)
		if strings.Contains(msgLower, "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrUsage:
		return ErrCodeUsage
	case errors.ErrCache:
		return ErrCodeCache
	case errors.ErrExec:
		return ErrCodeCommandFailed
	}
	return ErrCodeUnknown
}
