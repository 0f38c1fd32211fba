// Package board is the server's presentation model: who is connected, the
// merged transcript, and the recent log lines. One goroutine feeds it from
// a bus subscription; web handlers and the dashboard read snapshots.
package board

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/steno-audio/steno/bus"
)

const defaultLogLines = 100

// Client is one connected speaker as shown in the roster.
type Client struct {
	Name        string    `json:"name"`
	Language    string    `json:"language"`
	RemoteAddr  string    `json:"remote_addr"`
	Active      bool      `json:"active"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Block is one run of consecutive fragments from the same speaker.
type Block struct {
	Time time.Time `json:"time"`
	Name string    `json:"name"`
	Text string    `json:"text"`
}

type Board struct {
	now func() time.Time

	mu       sync.RWMutex
	clients  map[string]*Client
	order    []string
	blocks   []Block
	lastName string
	logs     []string
	logCap   int
}

func New() *Board {
	return &Board{
		now:     time.Now,
		clients: make(map[string]*Client),
		logCap:  defaultLogLines,
	}
}

// Run consumes a bus subscription until the channel closes.
func (b *Board) Run(events <-chan bus.Envelope) {
	for env := range events {
		b.Apply(env.Event)
	}
}

func (b *Board) Apply(e bus.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev := e.(type) {
	case bus.Connected:
		if _, ok := b.clients[ev.Name]; !ok {
			b.order = append(b.order, ev.Name)
		}
		b.clients[ev.Name] = &Client{
			Name:        ev.Name,
			Language:    ev.Language,
			RemoteAddr:  ev.RemoteAddr,
			ConnectedAt: b.now(),
		}
	case bus.Disconnected:
		if _, ok := b.clients[ev.Name]; ok {
			delete(b.clients, ev.Name)
			for i, name := range b.order {
				if name == ev.Name {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		}
	case bus.Activity:
		if c, ok := b.clients[ev.Name]; ok {
			c.Active = ev.Active
		}
	case bus.Transcript:
		b.addFragment(ev.Name, ev.Text)
	case bus.Log:
		b.addLog(ev.Message)
	}
}

// addFragment merges consecutive fragments from the same speaker into the
// open block; anyone else starts a new timestamped block with the leading
// space stripped.
func (b *Board) addFragment(name, text string) {
	if b.lastName == name && len(b.blocks) > 0 {
		b.blocks[len(b.blocks)-1].Text += text
		return
	}
	b.lastName = name
	b.blocks = append(b.blocks, Block{
		Time: b.now(),
		Name: name,
		Text: strings.TrimLeft(text, " "),
	})
}

func (b *Board) addLog(msg string) {
	line := fmt.Sprintf("[%s] %s", b.now().Format("15:04:05"), msg)
	b.logs = append(b.logs, line)
	if len(b.logs) > b.logCap {
		b.logs = b.logs[len(b.logs)-b.logCap:]
	}
}

// Clients returns the roster in connect order.
func (b *Board) Clients() []Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Client, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, *b.clients[name])
	}
	return out
}

func (b *Board) Blocks() []Block {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Block, len(b.blocks))
	copy(out, b.blocks)
	return out
}

// Logs returns the retained log lines, oldest first.
func (b *Board) Logs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.logs))
	copy(out, b.logs)
	return out
}

// Export renders the transcript in the session export file format.
func (b *Board) Export() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("=== SESSION TRANSCRIPT ===\n")
	fmt.Fprintf(&sb, "Date: %s\n", b.now().Format(time.ANSIC))
	sb.WriteString(strings.Repeat("-", 30))
	sb.WriteString("\n\n")
	for _, blk := range b.blocks {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", blk.Time.Format("15:04"), blk.Name, blk.Text)
	}
	return sb.String()
}
