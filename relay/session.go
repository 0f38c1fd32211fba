package relay

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/steno-audio/steno/bus"
	"github.com/steno-audio/steno/etc"
	"github.com/steno-audio/steno/metrics"
	"github.com/steno-audio/steno/sentence"
)

const (
	// handshakeMax caps the single greeting read.
	handshakeMax = 1024

	// activityThreshold is the RMS level above which a chunk counts as
	// speech for the activity indicators.
	activityThreshold = 150
)

// AudioSource is the pull contract between a session and the engine: the
// engine reads chunks until it gets an empty one, which means the stream is
// over. Read never fails; whatever goes wrong on the socket reads as end of
// stream.
type AudioSource interface {
	Read(maxBytes int) []byte
}

// Transcriber runs one recognition session over a pulled audio stream,
// calling onWord for every recognized token in result order. It returns
// once the source is drained or the engine fails.
type Transcriber interface {
	Stream(ctx context.Context, language string, source AudioSource, onWord func(string)) error
}

// Session owns one client connection from greeting to disconnect.
type Session struct {
	id     string
	conn   net.Conn
	bus    *bus.Bus
	engine Transcriber
	logger *log.Logger
	asm    *sentence.Assembler

	mu       sync.Mutex
	name     string
	language string

	cleanupOnce sync.Once
}

func newSession(conn net.Conn, defaultLanguage string, b *bus.Bus, engine Transcriber, logger *log.Logger) *Session {
	id := etc.NewFreshID()
	s := &Session{
		id:       id,
		conn:     conn,
		bus:      b,
		engine:   engine,
		logger:   logger,
		name:     fallbackName(conn, id),
		language: defaultLanguage,
	}
	s.asm = sentence.New(func(fragment string) {
		metrics.FragmentsTotal.Inc()
		name, _ := s.identity()
		s.bus.Publish(bus.Transcript{SessionID: s.id, Name: name, Text: fragment})
	})
	return s
}

// run drives the session on its own goroutine: greeting, recognition,
// teardown. Errors never escape; they end this session and nothing else.
func (s *Session) run(ctx context.Context) {
	defer s.cleanup()

	s.handshake()

	metrics.SessionsTotal.Inc()
	metrics.ClientsConnected.Inc()
	defer metrics.ClientsConnected.Dec()

	name, language := s.identity()
	s.bus.Publish(bus.Connected{
		SessionID:  s.id,
		Name:       name,
		Language:   language,
		RemoteAddr: s.conn.RemoteAddr().String(),
	})
	s.logger.Info("new connection", "name", name, "language", language)
	s.bus.Publish(bus.Log{Message: fmt.Sprintf("New connection: %s (Lang: %s)", name, language)})

	err := s.engine.Stream(ctx, language, &socketSource{s}, s.asm.AddWord)
	if err != nil {
		metrics.EngineErrorsTotal.Inc()
		s.logger.Error("recognition ended", "name", name, "error", err)
		s.bus.Publish(bus.Log{Message: fmt.Sprintf("Error with %s: %v", name, err)})
	}
}

// handshake performs the single greeting read: "<name>|<language>", UTF-8,
// at most handshakeMax bytes. A bad greeting never rejects the connection;
// the session keeps its placeholder name and the default language. The
// language is everything right of the first pipe.
func (s *Session) handshake() {
	buf := make([]byte, handshakeMax)
	n, err := s.conn.Read(buf)
	if err != nil || n == 0 {
		return
	}

	raw := strings.TrimSpace(string(buf[:n]))
	name := raw
	language := ""
	if left, right, found := strings.Cut(raw, "|"); found {
		name = left
		language = right
	}

	s.mu.Lock()
	if name != "" {
		s.name = name
	}
	if language != "" {
		s.language = language
	}
	s.mu.Unlock()
}

func (s *Session) identity() (name, language string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name, s.language
}

// cleanup tears the session down: flush the assembler, announce the
// disconnect, close the socket swallowing errors. Safe to call from both
// the session goroutine and Listener.Stop; the disconnect event fires
// exactly once.
func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.asm.Flush()

		name, _ := s.identity()
		s.bus.Publish(bus.Disconnected{SessionID: s.id, Name: name})
		s.logger.Info("disconnected", "name", name)
		s.bus.Publish(bus.Log{Message: fmt.Sprintf("Disconnected: %s", name)})

		_ = s.conn.Close()
	})
}

func fallbackName(conn net.Conn, id string) string {
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return fmt.Sprintf("Client-%d", addr.Port)
	}
	return "Client-" + id[:8]
}

// socketSource adapts the TCP connection to the engine's pull contract and
// feeds the activity indicator as a side effect of every read.
type socketSource struct {
	s *Session
}

func (src *socketSource) Read(maxBytes int) []byte {
	buf := make([]byte, maxBytes)
	n, _ := src.s.conn.Read(buf)
	if n == 0 {
		return nil
	}
	data := buf[:n]

	metrics.AudioBytesTotal.Add(float64(n))
	if active, ok := audioActivity(data); ok {
		name, _ := src.s.identity()
		src.s.bus.Publish(bus.Activity{SessionID: src.s.id, Name: name, Active: active})
	}
	return data
}

// audioActivity estimates whether a chunk of s16le audio contains speech.
// It samples one frame in ten (20-byte stride) and normalizes the square
// sum by count/10 so the estimate stays on the int16 amplitude scale. ok is
// false when the chunk is too short to hold a sample.
func audioActivity(data []byte) (active, ok bool) {
	count := len(data) / 2
	if count == 0 {
		return false, false
	}

	var sumSquares float64
	for i := 0; i+2 <= len(data); i += 20 {
		sample := int16(binary.LittleEndian.Uint16(data[i : i+2]))
		sumSquares += float64(sample) * float64(sample)
	}

	rms := math.Sqrt(sumSquares / (float64(count) / 10))
	return rms > activityThreshold, true
}
