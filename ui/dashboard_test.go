package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/steno-audio/steno/board"
	"github.com/steno-audio/steno/bus"
)

func seededDashboard() DashboardModel {
	b := board.New()
	m := NewDashboard(b, make(chan bus.Envelope))
	b.Apply(bus.Connected{SessionID: "s1", Name: "alice", Language: "fr"})
	b.Apply(bus.Activity{SessionID: "s1", Name: "alice", Active: true})
	b.Apply(bus.Connected{SessionID: "s2", Name: "bob", Language: "en"})
	b.Apply(bus.Transcript{SessionID: "s1", Name: "alice", Text: " Hello"})
	b.Apply(bus.Transcript{SessionID: "s1", Name: "alice", Text: " world."})
	b.Apply(bus.Log{Message: "Server listening on port 5001..."})
	return m
}

func TestTranscriptViewMergesRuns(t *testing.T) {
	m := seededDashboard()
	view := m.TranscriptView()

	if !strings.Contains(view, "alice") {
		t.Errorf("missing speaker name:\n%s", view)
	}
	if !strings.Contains(view, "Hello world.") {
		t.Errorf("fragments not merged into one block:\n%s", view)
	}
	if got := strings.Count(view, "alice"); got != 1 {
		t.Errorf("alice appears %d times, want 1 merged block", got)
	}
}

func TestTranscriptViewEmpty(t *testing.T) {
	m := NewDashboard(board.New(), make(chan bus.Envelope))
	if !strings.Contains(m.TranscriptView(), "Waiting for speech") {
		t.Errorf("empty board should show placeholder, got %q", m.TranscriptView())
	}
}

func TestRosterView(t *testing.T) {
	m := seededDashboard()
	view := m.RosterView()

	for _, want := range []string{"Clients", "alice", "fr", "bob", "en", "●", "○", "Log", "Server listening on port 5001..."} {
		if !strings.Contains(view, want) {
			t.Errorf("roster missing %q:\n%s", want, view)
		}
	}
}

func TestDashboardLifecycle(t *testing.T) {
	m := seededDashboard()

	if !strings.Contains(m.View(), "Initializing") {
		t.Fatalf("unsized dashboard should be initializing, got %q", m.View())
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	dm := next.(DashboardModel)
	view := dm.View()
	for _, want := range []string{"Live Transcript", "alice", "Hello world.", "Press q to quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	next, cmd := dm.Update(bus.Envelope{Event: bus.Transcript{SessionID: "s2", Name: "bob", Text: " Hi."}})
	dm = next.(DashboardModel)
	if cmd == nil {
		t.Error("envelope should re-arm the event wait")
	}
	if !strings.Contains(dm.View(), "Hi.") {
		t.Errorf("new fragment not rendered:\n%s", dm.View())
	}

	_, cmd = dm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("q should produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q should quit, got %T", cmd())
	}
}

func TestDashboardQuitsWhenBusCloses(t *testing.T) {
	events := make(chan bus.Envelope)
	close(events)
	m := NewDashboard(board.New(), events)

	msg := m.Init()()
	if _, ok := msg.(busClosed); !ok {
		t.Fatalf("closed bus should yield busClosed, got %T", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Fatal("busClosed should produce a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("busClosed should quit, got %T", cmd())
	}
}
