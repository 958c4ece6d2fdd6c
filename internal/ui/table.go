package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/flowexec/flowbridge/internal/cache"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a non-focused Bubbles table with the flowbridge styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	// Nothing is selectable; render the cursor row like any other.
	s.Selected = s.Cell
	t.SetStyles(s)
	// The header now carries a bottom border; size the viewport to fit every row.
	t.SetHeight(len(rows) + lipgloss.Height(s.Header.Render("")))
	return t
}

// RenderSimpleTable renders rows as a static table string. Empty input
// renders nothing.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// WorkspaceRows flattens a cache snapshot into name-sorted rows of
// name, path, tags and executable count.
func WorkspaceRows(data cache.Data) [][]string {
	names := make([]string, 0, len(data.WorkspaceLocations))
	seen := make(map[string]bool)
	for name := range data.WorkspaceLocations {
		names = append(names, name)
		seen[name] = true
	}
	for name := range data.Workspaces {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([][]string, 0, len(names))
	for _, name := range names {
		ws := data.Workspaces[name]
		display := name
		if ws.DisplayName != "" && ws.DisplayName != name {
			display = fmt.Sprintf("%s (%s)", name, ws.DisplayName)
		}
		out = append(out, []string{
			display,
			data.WorkspaceLocations[name],
			strings.Join(ws.Tags, ","),
			filterSummary(ws.Executables),
		})
	}
	return out
}

func filterSummary(f *cache.ExecutableFilter) string {
	if f == nil {
		return "all"
	}
	parts := make([]string, 0, 2)
	if len(f.Included) > 0 {
		parts = append(parts, "+"+strconv.Itoa(len(f.Included)))
	}
	if len(f.Excluded) > 0 {
		parts = append(parts, "-"+strconv.Itoa(len(f.Excluded)))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, " ")
}

// RenderWorkspaceTable renders the workspaces in a cache snapshot.
func RenderWorkspaceTable(data cache.Data) string {
	rows := WorkspaceRows(data)
	if len(rows) == 0 {
		return MutedStyle().Render("No workspaces registered")
	}

	columns := []TableColumn{
		{Title: "WORKSPACE", Width: 9},
		{Title: "PATH", Width: 4},
		{Title: "TAGS", Width: 4},
		{Title: "EXECUTABLES", Width: 11},
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > columns[i].Width {
				columns[i].Width = w
			}
		}
	}
	return RenderSimpleTable(columns, rows)
}

// CheckStatus is the outcome of one doctor check.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// DoctorCheckRow represents a row in the doctor diagnostic table.
type DoctorCheckRow struct {
	Status     CheckStatus
	Category   string
	Message    string
	Suggestion string
}

// RenderDoctorTable renders check results grouped by category, in the order
// categories first appear.
func RenderDoctorTable(rows []DoctorCheckRow) string {
	if len(rows) == 0 {
		return "No checks to display"
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	categories := make(map[string][]DoctorCheckRow)
	var order []string
	for _, row := range rows {
		if _, ok := categories[row.Category]; !ok {
			order = append(order, row.Category)
		}
		categories[row.Category] = append(categories[row.Category], row)
	}

	var b strings.Builder
	for _, cat := range order {
		b.WriteString(header.Render(cat) + "\n")
		for _, row := range categories[cat] {
			b.WriteString("  " + statusIcon(row.Status) + " " + row.Message + "\n")
			if row.Suggestion != "" && row.Status != CheckPass {
				b.WriteString("    " + MutedStyle().Render(row.Suggestion) + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func statusIcon(s CheckStatus) string {
	switch s {
	case CheckPass:
		return SuccessStyle().Render(SymbolSuccess)
	case CheckWarn:
		return WarningStyle().Render(SymbolWarning)
	case CheckFail:
		return ErrorStyle().Render(SymbolFail)
	default:
		return MutedStyle().Render(SymbolPending)
	}
}

// padRight pads s to width visible columns.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
