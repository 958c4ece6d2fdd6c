package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/flowexec/flowbridge/internal/cache"
	"github.com/flowexec/flowbridge/internal/events"
)

// CacheSource is the read side of a workspace cache.
type CacheSource interface {
	Get() (cache.Data, bool)
	Path() string
}

type cacheEventMsg struct{ event events.Event }

type eventsClosedMsg struct{}

// WatchModel is the Bubble Tea model behind "cache watch". It re-reads the
// cache snapshot every time a workspace-cache-updated event arrives.
type WatchModel struct {
	source  CacheSource
	events  <-chan events.Event
	spinner SpinnerComponent
	data    cache.Data
	loaded  bool
	updates int
	last    time.Time
	done    bool
	now     func() time.Time
}

// NewWatchModel creates a watch model reading from source and listening on
// sub, typically a Broker subscription.
func NewWatchModel(source CacheSource, sub <-chan events.Event) WatchModel {
	m := WatchModel{
		source:  source,
		events:  sub,
		spinner: NewSpinnerComponent("Watching " + source.Path()),
		now:     time.Now,
	}
	m.spinner.Start()
	m.data, m.loaded = source.Get()
	return m
}

func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-sub
		if !ok {
			return eventsClosedMsg{}
		}
		return cacheEventMsg{event: e}
	}
}

// Init starts the spinner and the event listener.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick(), waitForEvent(m.events))
}

// Update handles key presses, cache events and spinner ticks.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.done = true
			m.spinner.Success()
			return m, tea.Quit
		}
		return m, nil

	case cacheEventMsg:
		if msg.event.Topic == events.TopicCacheUpdated {
			m.data, m.loaded = m.source.Get()
			m.updates++
			m.last = m.now()
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.done = true
		m.spinner.Fail()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the current snapshot below the spinner line.
func (m WatchModel) View() string {
	var b strings.Builder
	b.WriteString(m.spinner.View() + "\n\n")

	if !m.loaded {
		b.WriteString(ErrorStyle().Render("cache closed") + "\n")
		return b.String()
	}

	rows := WorkspaceRows(m.data)
	if len(rows) == 0 {
		b.WriteString(MutedStyle().Render("No workspaces registered") + "\n")
	}
	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}
	for _, row := range rows {
		b.WriteString("  " + padRight(row[0], width+2) + MutedStyle().Render(row[1]) + "\n")
	}

	status := fmt.Sprintf("%d workspaces, %d updates", len(rows), m.updates)
	if !m.last.IsZero() {
		status += ", last at " + m.last.Format("15:04:05")
	}
	b.WriteString("\n" + MutedStyle().Render(status) + "\n")
	if !m.done {
		b.WriteString(MutedStyle().Render("q to quit") + "\n")
	}
	return b.String()
}

// Updates returns how many cache updates the model has seen.
func (m WatchModel) Updates() int { return m.updates }
