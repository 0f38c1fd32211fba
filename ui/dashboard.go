// Package ui holds the terminal frontends: the server dashboard shown by
// `steno serve --ui` and the capture meter shown by `steno stream --ui`.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/steno-audio/steno/board"
	"github.com/steno-audio/steno/bus"
)

const logLines = 8

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#268BD2"))

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	nameStyle = lipgloss.NewStyle().
			Bold(true)

	activeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#4FFFB0"))

	langStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B58900"))

	faintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type busClosed struct{}

// DashboardModel renders the live board: transcript blocks on the left,
// the client roster and recent log lines on the right. It is the only
// writer to the board while it runs.
type DashboardModel struct {
	board    *board.Board
	events   <-chan bus.Envelope
	viewport viewport.Model
	ready    bool
}

func NewDashboard(b *board.Board, events <-chan bus.Envelope) DashboardModel {
	return DashboardModel{
		board:  b,
		events: events,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return waitForEnvelope(m.events)
}

func waitForEnvelope(events <-chan bus.Envelope) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-events
		if !ok {
			return busClosed{}
		}
		return env
	}
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := lipgloss.Height(m.headerView())
		footerHeight := lipgloss.Height(m.footerView())
		verticalMarginHeight := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-verticalMarginHeight)
			m.viewport.YPosition = headerHeight
			m.viewport.SetContent(m.contentView())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - verticalMarginHeight
			m.viewport.SetContent(m.contentView())
		}

	case bus.Envelope:
		m.board.Apply(msg.Event)
		m.viewport.SetContent(m.contentView())
		m.viewport.GotoBottom()
		cmds = append(cmds, waitForEnvelope(m.events))

	case busClosed:
		return m, tea.Quit
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m DashboardModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf(
		"%s\n%s\n%s",
		m.headerView(),
		m.viewport.View(),
		m.footerView(),
	)
}

func (m DashboardModel) headerView() string {
	title := titleStyle.Render("Live Transcript")
	line := strings.Repeat(
		"─",
		max(0, m.viewport.Width-lipgloss.Width(title)),
	)
	return lipgloss.JoinHorizontal(lipgloss.Center, title, line)
}

func (m DashboardModel) footerView() string {
	info := titleStyle.Render("Press q to quit")
	line := strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(info)))
	return lipgloss.JoinHorizontal(lipgloss.Center, line, info)
}

func (m DashboardModel) contentView() string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	sidebar := width / 3
	if sidebar < 24 {
		sidebar = 24
	}
	left := max(0, width-sidebar)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Width(left).Render(m.TranscriptView()),
		lipgloss.NewStyle().Width(sidebar).PaddingLeft(1).Render(m.RosterView()),
	)
}

// TranscriptView renders the merged blocks, one stanza per speaker run.
func (m DashboardModel) TranscriptView() string {
	blocks := m.board.Blocks()
	if len(blocks) == 0 {
		return faintStyle.Render("Waiting for speech...")
	}

	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(
			&b,
			"%s %s\n%s\n",
			timeStyle.Render("["+blk.Time.Format("15:04")+"]"),
			nameStyle.Render(blk.Name),
			blk.Text,
		)
	}
	return b.String()
}

// RosterView renders the client list with activity markers, then the
// most recent log lines.
func (m DashboardModel) RosterView() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Clients"))
	b.WriteString("\n")
	clients := m.board.Clients()
	if len(clients) == 0 {
		b.WriteString(faintStyle.Render("none connected"))
		b.WriteString("\n")
	}
	for _, c := range clients {
		marker := faintStyle.Render("○")
		name := nameStyle.Render(c.Name)
		if c.Active {
			marker = activeStyle.Render("●")
			name = activeStyle.Render(c.Name)
		}
		fmt.Fprintf(&b, "%s %s %s\n", marker, name, langStyle.Render(c.Language))
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Log"))
	b.WriteString("\n")
	logs := m.board.Logs()
	if len(logs) > logLines {
		logs = logs[len(logs)-logLines:]
	}
	for _, line := range logs {
		b.WriteString(faintStyle.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
