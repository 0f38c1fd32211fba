package board

import (
	"strings"
	"testing"
	"time"

	"github.com/steno-audio/steno/bus"
)

func fixedBoard(t *testing.T) *Board {
	t.Helper()
	b := New()
	b.now = func() time.Time {
		return time.Date(2025, time.August, 12, 10, 30, 0, 0, time.UTC)
	}
	return b
}

func TestMergeConsecutiveSameClient(t *testing.T) {
	b := fixedBoard(t)

	b.Apply(bus.Transcript{Name: "alice", Text: " Hello"})
	b.Apply(bus.Transcript{Name: "alice", Text: " world"})
	b.Apply(bus.Transcript{Name: "alice", Text: "."})
	b.Apply(bus.Transcript{Name: "bob", Text: " Hi"})
	b.Apply(bus.Transcript{Name: "alice", Text: " Again"})

	blocks := b.Blocks()
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].Name != "alice" || blocks[0].Text != "Hello world." {
		t.Errorf("block 0: got %q from %q", blocks[0].Text, blocks[0].Name)
	}
	if blocks[1].Name != "bob" || blocks[1].Text != "Hi" {
		t.Errorf("block 1: got %q from %q", blocks[1].Text, blocks[1].Name)
	}
	if blocks[2].Name != "alice" || blocks[2].Text != "Again" {
		t.Errorf("block 2: got %q from %q", blocks[2].Text, blocks[2].Name)
	}
}

func TestClientRoster(t *testing.T) {
	b := fixedBoard(t)

	b.Apply(bus.Connected{Name: "alice", Language: "en", RemoteAddr: "1.2.3.4:5000"})
	b.Apply(bus.Connected{Name: "bob", Language: "ja", RemoteAddr: "1.2.3.4:5001"})

	// Reconnecting under the same name refreshes the entry in place.
	b.Apply(bus.Connected{Name: "alice", Language: "fr", RemoteAddr: "1.2.3.4:5002"})

	clients := b.Clients()
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if clients[0].Name != "alice" || clients[0].Language != "fr" {
		t.Errorf("expected alice refreshed to fr, got %+v", clients[0])
	}
	if clients[1].Name != "bob" {
		t.Errorf("expected bob second, got %+v", clients[1])
	}

	b.Apply(bus.Activity{Name: "bob", Active: true})
	if clients := b.Clients(); !clients[1].Active {
		t.Error("expected bob marked active")
	}
	b.Apply(bus.Activity{Name: "ghost", Active: true}) // unknown names are ignored

	b.Apply(bus.Disconnected{Name: "alice"})
	clients = b.Clients()
	if len(clients) != 1 || clients[0].Name != "bob" {
		t.Errorf("expected only bob left, got %+v", clients)
	}
}

func TestExportFormat(t *testing.T) {
	b := fixedBoard(t)

	b.Apply(bus.Transcript{Name: "alice", Text: " Hello"})
	b.Apply(bus.Transcript{Name: "alice", Text: " world"})
	b.Apply(bus.Transcript{Name: "alice", Text: "."})
	b.Apply(bus.Transcript{Name: "bob", Text: " Hi"})
	b.Apply(bus.Transcript{Name: "bob", Text: "."})

	want := "=== SESSION TRANSCRIPT ===\n" +
		"Date: Tue Aug 12 10:30:00 2025\n" +
		"------------------------------\n\n" +
		"[10:30] alice: Hello world.\n" +
		"[10:30] bob: Hi.\n"
	if got := b.Export(); got != want {
		t.Errorf("export mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestLogRing(t *testing.T) {
	b := fixedBoard(t)
	b.logCap = 3

	for _, msg := range []string{"one", "two", "three", "four", "five"} {
		b.Apply(bus.Log{Message: msg})
	}

	logs := b.Logs()
	if len(logs) != 3 {
		t.Fatalf("expected 3 retained lines, got %d", len(logs))
	}
	for i, suffix := range []string{"three", "four", "five"} {
		if !strings.HasPrefix(logs[i], "[10:30:00] ") || !strings.HasSuffix(logs[i], suffix) {
			t.Errorf("line %d: got %q", i, logs[i])
		}
	}
}
