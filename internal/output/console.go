package output

import (
	"fmt"
	"strconv"

	"github.com/flowexec/flowbridge/internal/events"
	"github.com/flowexec/flowbridge/internal/ui"
)

// Console is an events.Channel that prints streamed command output the way a
// terminal user expects: stdout lines on stdout, stderr lines on stderr, and
// a status line on completion.
type Console struct {
	h     *StreamHandler
	quiet bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithFormatter sets the line formatter.
func WithFormatter(f Formatter) ConsoleOption {
	return func(c *Console) { c.h.SetFormatter(f) }
}

// Quiet suppresses the completion and cache status lines.
func Quiet() ConsoleOption {
	return func(c *Console) { c.quiet = true }
}

// NewConsole creates a Console writing to h.
func NewConsole(h *StreamHandler, opts ...ConsoleOption) *Console {
	c := &Console{h: h}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handler returns the underlying stream handler.
func (c *Console) Handler() *StreamHandler { return c.h }

// Publish renders one event. Unknown topics and payloads are ignored.
func (c *Console) Publish(e events.Event) error {
	switch e.Topic {
	case events.TopicCommandOutput:
		line, ok := e.Payload.(events.OutputLine)
		if !ok {
			return nil
		}
		if line.Type == events.Stderr {
			return c.h.WriteStderr(line.Line)
		}
		return c.h.WriteStdout(line.Line)

	case events.TopicCommandComplete:
		done, ok := e.Payload.(events.Completion)
		if !ok || c.quiet {
			return nil
		}
		return c.h.WriteRaw(c.completionLine(done))

	case events.TopicCacheUpdated:
		if c.quiet {
			return nil
		}
		return c.h.WriteRaw(ui.MutedStyle().Render("workspace cache updated") + "\n")
	}
	return nil
}

func (c *Console) completionLine(done events.Completion) string {
	code := -1
	status := "terminated"
	if done.ExitCode != nil {
		code = *done.ExitCode
		status = "exit " + strconv.Itoa(code)
	}

	var out string
	if done.Success {
		out = fmt.Sprintf("%s %s %s\n", ui.SuccessStyle().Render(ui.SymbolSuccess), done.Command, ui.MutedStyle().Render(status))
	} else {
		out = fmt.Sprintf("%s %s %s\n", ui.ErrorStyle().Render(ui.SymbolFail), done.Command, ui.MutedStyle().Render(status))
	}

	if f := c.h.Formatter(); f != nil {
		if summary := f.Summary(code); summary != "" {
			out += summary + "\n"
		}
	}
	return out
}
