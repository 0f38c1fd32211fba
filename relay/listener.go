// Package relay is the server side of the wire protocol: a TCP listener
// that turns each client connection into a recognition session. The wire
// format is a single plaintext greeting ("name|language") followed by an
// unframed stream of 16 kHz mono s16le PCM.
package relay

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/steno-audio/steno/bus"
)

const (
	// DefaultPort is the relay's TCP port. Clients hardcode it too.
	DefaultPort = 5001

	// DefaultLanguage applies when a greeting does not name one.
	DefaultLanguage = "en"
)

// Config carries the listener tunables.
type Config struct {
	// Port to bind on all interfaces. Zero asks the OS for an ephemeral
	// port, which tests use.
	Port int

	// DefaultLanguage for sessions whose greeting omits the language.
	DefaultLanguage string
}

// Listener accepts relay connections and runs one Session goroutine per
// client. There is no session cap; the ceiling is file descriptors plus one
// engine websocket per client.
type Listener struct {
	cfg    Config
	bus    *bus.Bus
	engine Transcriber
	logger *log.Logger

	mu       sync.Mutex
	ln       net.Listener
	sessions map[*Session]struct{}
	stopped  bool
}

func NewListener(cfg Config, b *bus.Bus, engine Transcriber, logger *log.Logger) *Listener {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = DefaultLanguage
	}
	return &Listener{
		cfg:      cfg,
		bus:      b,
		engine:   engine,
		logger:   logger,
		sessions: make(map[*Session]struct{}),
	}
}

// Start binds the port and begins accepting on a background goroutine.
func (l *Listener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", l.cfg.Port))
	if err != nil {
		return fmt.Errorf("bind relay port: %w", err)
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	port := ln.Addr().(*net.TCPAddr).Port
	l.logger.Info("listening", "port", port)
	l.bus.Publish(bus.Log{Message: fmt.Sprintf("Server listening on port %d...", port)})

	go l.acceptLoop(ctx)
	return nil
}

// Addr reports the bound address, for callers that asked for port zero.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

func (l *Listener) acceptLoop(ctx context.Context) {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			l.mu.Lock()
			stopped := l.stopped
			l.mu.Unlock()
			if !stopped {
				l.logger.Error("accept", "error", err)
				l.bus.Publish(bus.Log{Message: fmt.Sprintf("Server error: %v", err)})
			}
			return
		}

		sess := newSession(conn, l.cfg.DefaultLanguage, l.bus, l.engine, l.logger)

		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			conn.Close()
			return
		}
		l.sessions[sess] = struct{}{}
		l.mu.Unlock()

		go func() {
			sess.run(ctx)
			l.mu.Lock()
			delete(l.sessions, sess)
			l.mu.Unlock()
		}()
	}
}

// Stop closes the listening socket and tears down every live session. Safe
// to call more than once and concurrently with accepts.
func (l *Listener) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	ln := l.ln
	live := make([]*Session, 0, len(l.sessions))
	for sess := range l.sessions {
		live = append(live, sess)
	}
	l.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, sess := range live {
		sess.cleanup()
	}
}
