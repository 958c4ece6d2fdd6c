package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames is the animation used inside Bubble Tea programs.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// SpinnerComponent is a spinner meant to be embedded in a larger Bubble Tea
// model. Unlike Spinner it never writes to the terminal itself.
type SpinnerComponent struct {
	spinner   spinner.Model
	Label     string
	State     SpinnerState
	StartTime time.Time
	now       func() time.Time
}

// NewSpinnerComponent creates a pending spinner component.
func NewSpinnerComponent(label string) SpinnerComponent {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	return SpinnerComponent{
		spinner: sp,
		Label:   label,
		State:   SpinnerPending,
		now:     time.Now,
	}
}

// Start moves the component to in-progress and returns the first tick.
func (s *SpinnerComponent) Start() tea.Cmd {
	s.State = SpinnerInProgress
	s.StartTime = s.now()
	return s.spinner.Tick
}

// Tick returns the command that drives the animation.
func (s SpinnerComponent) Tick() tea.Cmd { return s.spinner.Tick }

// Success marks the component as finished successfully.
func (s *SpinnerComponent) Success() { s.State = SpinnerSuccess }

// Fail marks the component as failed.
func (s *SpinnerComponent) Fail() { s.State = SpinnerFailed }

// Update advances the animation. Ticks are ignored unless in progress.
func (s SpinnerComponent) Update(msg tea.Msg) (SpinnerComponent, tea.Cmd) {
	if s.State != SpinnerInProgress {
		return s, nil
	}
	tick, ok := msg.(spinner.TickMsg)
	if !ok {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(tick)
	return s, cmd
}

// View renders the component for its current state.
func (s SpinnerComponent) View() string {
	switch s.State {
	case SpinnerInProgress:
		return s.spinner.View() + " " + s.Label + "..."
	case SpinnerSuccess:
		return s.final(SymbolComplete, ColorSuccess)
	case SpinnerFailed:
		return s.final(SymbolFail, ColorError)
	default:
		return s.final(SymbolPending, ColorMuted)
	}
}

func (s SpinnerComponent) final(symbol string, color lipgloss.Color) string {
	out := lipgloss.NewStyle().Foreground(color).Render(symbol) + " " + s.Label
	if s.StartTime.IsZero() {
		return out
	}
	return out + " " + MutedStyle().Render(FormatDuration(s.now().Sub(s.StartTime)))
}
