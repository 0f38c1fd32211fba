package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/steno-audio/steno/capture"
)

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#268BD2"))

	liveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00F2FE"))

	peakStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5252"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#DC322F"))
)

// MeterModel is the capture-side widget: one status line, a level gauge,
// and the mute toggle. Level events only flow while audio is streaming, so
// the status line shows connection progress until then.
type MeterModel struct {
	streamer *capture.Streamer
	events   <-chan capture.Event
	gauge    progress.Model
	status   string
	level    float64
	hasLevel bool
	muted    bool
	err      error
}

func NewMeter(s *capture.Streamer) MeterModel {
	return MeterModel{
		streamer: s,
		events:   s.Events(),
		gauge:    progress.New(progress.WithDefaultGradient()),
		status:   "Starting...",
	}
}

func (m MeterModel) Init() tea.Cmd {
	return waitForCapture(m.events)
}

func waitForCapture(events <-chan capture.Event) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.streamer.Stop()
			return m, tea.Quit
		case "m":
			m.muted = !m.muted
			m.streamer.SetMute(m.muted)
		}

	case tea.WindowSizeMsg:
		w := msg.Width - 8
		if w > 60 {
			w = 60
		}
		if w < 10 {
			w = 10
		}
		m.gauge.Width = w

	case capture.Status:
		m.status = msg.Message
		m.hasLevel = false
		return m, waitForCapture(m.events)

	case capture.Level:
		m.level = msg.Value
		m.hasLevel = true
		return m, waitForCapture(m.events)

	case capture.Fatal:
		m.err = msg.Err
		return m, waitForCapture(m.events)

	case capture.Finished:
		return m, tea.Quit
	}

	return m, nil
}

func (m MeterModel) View() string {
	level := m.level
	if m.muted {
		level = 0
	}

	var b strings.Builder
	b.WriteString("\n  ")
	b.WriteString(titleStyle.Render("Audio Capture"))
	b.WriteString("\n\n  ")
	b.WriteString(m.StatusLine())
	b.WriteString("\n\n  ")
	b.WriteString(m.gauge.ViewAs(level))
	b.WriteString("\n\n  ")
	b.WriteString(faintStyle.Render("Press m to mute, q to quit"))
	b.WriteString("\n")
	return b.String()
}

// StatusLine picks the label: mute wins, then the signal level, otherwise
// the last connection status.
func (m MeterModel) StatusLine() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	if m.muted {
		return faintStyle.Render("Muted")
	}
	if !m.hasLevel {
		return statusStyle.Render(m.status)
	}
	switch {
	case m.level < 0.01:
		return faintStyle.Render("Silent")
	case m.level > 0.8:
		return peakStyle.Render("Peak/Loud")
	default:
		return liveStyle.Render("Capturing...")
	}
}
