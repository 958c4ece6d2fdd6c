// Package output renders bridge events on a terminal.
package output

import (
	"io"
	"sync"
)

// StreamHandler writes stdout and stderr lines to their terminal
// counterparts, passing each through an optional Formatter.
type StreamHandler struct {
	stdout io.Writer
	stderr io.Writer
	mu     sync.Mutex

	formatter Formatter

	stdoutLines int
	stderrLines int
}

// NewStreamHandler creates a handler that writes to the given stdout/stderr.
func NewStreamHandler(stdout, stderr io.Writer) *StreamHandler {
	return &StreamHandler{
		stdout: stdout,
		stderr: stderr,
	}
}

// SetFormatter sets the line formatter. nil disables formatting.
func (h *StreamHandler) SetFormatter(f Formatter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.formatter = f
}

// Formatter returns the current formatter, possibly nil.
func (h *StreamHandler) Formatter() Formatter {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.formatter
}

// StdoutLines returns the number of stdout lines written.
func (h *StreamHandler) StdoutLines() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stdoutLines
}

// StderrLines returns the number of stderr lines written.
func (h *StreamHandler) StderrLines() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stderrLines
}

// WriteStdout writes one line to stdout.
func (h *StreamHandler) WriteStdout(line string) error {
	return h.write(false, line)
}

// WriteStderr writes one line to stderr.
func (h *StreamHandler) WriteStderr(line string) error {
	return h.write(true, line)
}

func (h *StreamHandler) write(isStderr bool, line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	w := h.stdout
	if isStderr {
		w = h.stderr
		h.stderrLines++
	} else {
		h.stdoutLines++
	}

	if h.formatter != nil {
		line = h.formatter.ProcessLine(line)
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

// WriteRaw writes s to stderr without formatting or counting. Used for
// status lines that are not command output.
func (h *StreamHandler) WriteRaw(s string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.stderr, s)
	return err
}
