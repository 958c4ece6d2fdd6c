package output

import (
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/flowexec/flowbridge/internal/ui"
)

// Formatter decorates streamed lines before they reach the terminal.
type Formatter interface {
	// Name is the value accepted by --format.
	Name() string

	// ProcessLine transforms a single line. ANSI codes must pass through.
	ProcessLine(line string) string

	// Summary is printed once the command finishes; exitCode is -1 when the
	// process was terminated without a status. Empty means print nothing.
	Summary(exitCode int) string
}

// GenericFormatter highlights lines that look like errors.
type GenericFormatter struct {
	errorStyle lipgloss.Style
}

// NewGenericFormatter creates a formatter with default error styling.
func NewGenericFormatter() *GenericFormatter {
	return &GenericFormatter{errorStyle: ui.ErrorStyle()}
}

func (f *GenericFormatter) Name() string { return "generic" }

// ProcessLine renders error lines in the error color.
func (f *GenericFormatter) ProcessLine(line string) string {
	if isErrorLine(line) {
		return f.errorStyle.Render(line)
	}
	return line
}

// Summary reports non-zero exits; success prints nothing.
func (f *GenericFormatter) Summary(exitCode int) string {
	switch {
	case exitCode == 0:
		return ""
	case exitCode < 0:
		return f.errorStyle.Render("Command terminated without an exit code")
	default:
		return f.errorStyle.Render("Command failed with exit code " + strconv.Itoa(exitCode))
	}
}

var errorPrefixes = []string{
	"error:",
	"error ",
	"fatal:",
	"fatal ",
	"panic:",
	"failed:",
	"erro ",
	"fata ",
}

// isErrorLine matches conventional error prefixes plus the level columns
// flow's own logger prints (ERRO, FATA).
func isErrorLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return strings.Contains(line, "ERROR") || strings.HasPrefix(trimmed, "FAILED")
}

// PassthroughFormatter leaves output untouched.
type PassthroughFormatter struct{}

// NewPassthroughFormatter creates a no-op formatter.
func NewPassthroughFormatter() *PassthroughFormatter {
	return &PassthroughFormatter{}
}

func (f *PassthroughFormatter) Name() string              { return "passthrough" }
func (f *PassthroughFormatter) ProcessLine(l string) string { return l }
func (f *PassthroughFormatter) Summary(_ int) string        { return "" }

// FormatterRegistry holds available formatters by name.
type FormatterRegistry struct {
	formatters map[string]Formatter
}

// NewFormatterRegistry creates a registry with the built-in formatters.
func NewFormatterRegistry() *FormatterRegistry {
	r := &FormatterRegistry{formatters: make(map[string]Formatter)}
	r.Register(NewGenericFormatter())
	r.Register(NewPassthroughFormatter())
	return r
}

// Register adds or replaces a formatter.
func (r *FormatterRegistry) Register(f Formatter) {
	r.formatters[f.Name()] = f
}

// Lookup returns the named formatter.
func (r *FormatterRegistry) Lookup(name string) (Formatter, bool) {
	f, ok := r.formatters[name]
	return f, ok
}

// Get returns the named formatter, falling back to generic.
func (r *FormatterRegistry) Get(name string) Formatter {
	if f, ok := r.formatters[name]; ok {
		return f
	}
	return r.formatters["generic"]
}

// Names returns the registered names in sorted order.
func (r *FormatterRegistry) Names() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
