// Package bus carries session events from the relay to whatever wants to
// present them: the terminal dashboard, the web handlers, the archive
// recorder. Delivery is fan-out with a global sequence number; per-publisher
// order is preserved at every subscriber.
package bus

import (
	"sync"
	"time"
)

// Event is the closed set of things that happen on the relay.
type Event interface {
	event()
}

// Connected is published once per session, after the handshake.
type Connected struct {
	SessionID  string
	Name       string
	Language   string
	RemoteAddr string
}

// Disconnected is published exactly once per session.
type Disconnected struct {
	SessionID string
	Name      string
}

// Transcript carries one assembled sentence fragment, leading space
// included. Consumers concatenate fragments verbatim.
type Transcript struct {
	SessionID string
	Name      string
	Text      string
}

// Activity reports the speech/silence estimate for one audio chunk. It is
// published on every chunk; consumers detect changes themselves.
type Activity struct {
	SessionID string
	Name      string
	Active    bool
}

// Log is a human-readable server log line for the dashboard log pane.
type Log struct {
	Message string
}

func (Connected) event()    {}
func (Disconnected) event() {}
func (Transcript) event()   {}
func (Activity) event()     {}
func (Log) event()          {}

// Envelope wraps a published event with its global sequence number and
// publish time.
type Envelope struct {
	Seq   int64
	Time  time.Time
	Event Event
}

// Bus fans events out to subscribers. Publishing blocks until every
// subscriber channel has accepted the envelope, so nothing is dropped;
// subscribers are expected to keep draining until they cancel.
type Bus struct {
	mu   sync.Mutex
	seq  int64
	subs []chan Envelope
}

func New() *Bus {
	return &Bus{}
}

// Publish stamps the event and delivers it to every subscriber in
// subscription order. Events published from one goroutine arrive in publish
// order everywhere.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	env := Envelope{Seq: b.seq, Time: time.Now(), Event: e}
	for _, ch := range b.subs {
		ch <- env
	}
}

// Subscribe registers a new subscriber with the given channel buffer and
// returns its channel plus a cancel func. Cancel drains whatever is still
// queued, removes the subscription, and closes the channel, so it is safe
// to call with publishers mid-flight.
func (b *Bus) Subscribe(buffer int) (<-chan Envelope, func()) {
	ch := make(chan Envelope, buffer)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	cancel := func() {
		// Unstick any publisher blocked on this channel before taking the
		// lock it is holding.
		go func() {
			for range ch {
			}
		}()
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, c := range b.subs {
			if c == ch {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}

	return ch, cancel
}
